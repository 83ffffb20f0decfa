// Package stats counts what a simulation run did (runs, events, tracks,
// steps) and what the biasing did to the photon weights. Counters live in
// their own Prometheus registry so a run can be dumped as a textfile.
package stats

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildstyl3r/comptsplit/internal/biasing"
)

const namespace = "comptsplit"

type Collector struct {
	registry *prometheus.Registry

	runs      prometheus.Counter
	events    prometheus.Counter
	tracks    *prometheus.CounterVec
	steps     prometheus.Counter
	decisions *prometheus.CounterVec
	daughters prometheus.Counter

	// statistical weight entering and leaving biased interactions
	weightIn  prometheus.Gauge
	weightOut prometheus.Gauge
}

// NewCollector registers the run metrics in registry. A nil registry gets a
// fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: registry,
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of completed runs.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of simulated events.",
		}),
		tracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_total",
			Help:      "Number of tracked particles by particle name.",
		}, []string{"particle"}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Number of transport steps.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "biasing",
			Name:      "decisions_total",
			Help:      "Biased Compton interactions by outcome.",
		}, []string{"outcome"}),
		daughters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "biasing",
			Name:      "daughters_total",
			Help:      "Photons emitted by splitting.",
		}),
		weightIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "biasing",
			Name:      "weight_in",
			Help:      "Sum of parent weights entering biased interactions.",
		}),
		weightOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "biasing",
			Name:      "weight_out",
			Help:      "Sum of weights leaving biased interactions.",
		}),
	}
	registry.MustRegister(c.runs, c.events, c.tracks, c.steps, c.decisions, c.daughters, c.weightIn, c.weightOut)

	for _, d := range []biasing.Disposition{biasing.Unbiased, biasing.Split, biasing.Survived, biasing.Killed} {
		c.decisions.WithLabelValues(d.String())
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordRun()                  { c.runs.Inc() }
func (c *Collector) RecordEvent()                { c.events.Inc() }
func (c *Collector) RecordTrack(particle string) { c.tracks.WithLabelValues(particle).Inc() }
func (c *Collector) RecordSteps(n int)           { c.steps.Add(float64(n)) }

// RecordDecision accounts for one applied biasing operation on a parent that
// carried weightIn.
func (c *Collector) RecordDecision(out biasing.Outcome, weightIn float64) {
	c.decisions.WithLabelValues(out.Disposition.String()).Inc()
	c.daughters.Add(float64(len(out.Daughters)))
	c.weightIn.Add(weightIn)
	c.weightOut.Add(out.TotalWeight())
}

// WriteTextfile writes every metric in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
