// Package transport is a small photon transport engine hosting the Compton
// splitting actor: box geometry, Klein-Nishina scattering, photoelectric
// absorption, and one worker goroutine per thread.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wildstyl3r/comptsplit/internal/biasing"
	"github.com/wildstyl3r/comptsplit/internal/config"
	"github.com/wildstyl3r/comptsplit/internal/constants"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
	"github.com/wildstyl3r/comptsplit/internal/hits"
	"github.com/wildstyl3r/comptsplit/internal/random"
	"github.com/wildstyl3r/comptsplit/internal/stats"
	"github.com/wildstyl3r/comptsplit/internal/utils"
)

// RunResult summarizes a finished run. Weighted sums are over statistical
// weights, energies in MeV.
type RunResult struct {
	RunID   int
	Seed    int64
	Threads int

	Events int
	Tracks int
	Steps  int
	Hits   int

	Decisions map[biasing.Disposition]int
	Daughters int
	WeightIn  float64 // entering biased interactions
	WeightOut float64 // leaving biased interactions

	EnergyDeposit float64 // weighted total over all volumes
	MeanDeposit   float64 // per event
	DepositError  float64 // 95% confidence half-width of MeanDeposit
	EscapedWeight float64 // weight of photons that left the world
	EscapedEnergy float64 // weighted energy carried out of the world
	Stuck         int

	Duration time.Duration
}

type Engine struct {
	runID     int
	seed      int64
	threads   int
	events    int
	energyCut float64

	store     *geometry.Store
	source    Source
	splitting *biasing.Configuration

	recorder *hits.Recorder
	stats    *stats.Collector
	log      *slog.Logger
}

// Options carries the pieces of a run that are not part of the configuration
// file. All fields are optional.
type Options struct {
	RunID    int
	Recorder *hits.Recorder
	Stats    *stats.Collector
	Logger   *slog.Logger
}

// NewEngine prepares a run from a validated configuration. A zero seed is
// replaced with a random one, which is logged so the run can be repeated.
func NewEngine(cfg *config.Config, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewCollector(nil)
	}
	store, err := cfg.BuildGeometry()
	if err != nil {
		return nil, err
	}
	if store.World() == nil {
		return nil, fmt.Errorf("build geometry: no world volume")
	}

	e := &Engine{
		runID:     opts.RunID,
		seed:      cfg.Seed,
		threads:   max(1, cfg.Threads),
		events:    cfg.Events,
		energyCut: cfg.EnergyCut,
		store:     store,
		source:    NewSource(cfg.Source),
		recorder:  opts.Recorder,
		stats:     opts.Stats,
		log:       opts.Logger,
	}
	if cfg.Splitting.Mother != "" {
		splitting, err := biasing.NewConfiguration(cfg.Splitting)
		if err != nil {
			return nil, err
		}
		e.splitting = &splitting
	}
	if e.seed == 0 {
		if e.seed, err = random.NewSeed(); err != nil {
			return nil, err
		}
		e.log.Info("drew random seed", "seed", e.seed)
	}
	return e, nil
}

func (e *Engine) Seed() int64            { return e.seed }
func (e *Engine) Store() *geometry.Store { return e.store }

// Run transports all events. Workers take events from a shared channel and
// stream their steps to a single aggregator that owns the hit recorder.
// Cancelling ctx stops handing out events; events already taken finish and the
// partial result is returned with the context error.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	result := RunResult{
		RunID:     e.runID,
		Seed:      e.seed,
		Threads:   e.threads,
		Decisions: map[biasing.Disposition]int{},
	}

	workers := make([]*Worker, e.threads)
	for i := range workers {
		workers[i] = newWorker(i, e)
		if err := workers[i].startRun(); err != nil {
			return result, err
		}
	}
	e.log.Debug("run started", "run", e.runID, "seed", e.seed, "threads", e.threads, "events", e.events)

	var computeWg, stateWg sync.WaitGroup

	deposits := make([]float64, e.events)
	stepflow := make(chan stepRecord, 4096)
	stateWg.Add(1)
	go func() {
		defer stateWg.Done()
		steps := 0
		for rec := range stepflow {
			result.Steps++
			steps++
			deposits[rec.EventID] += rec.Weight * rec.EnergyDeposit
			if e.recorder != nil && e.recorder.Process(&rec.Step, rec.touchable) {
				result.Hits++
			}
			if steps == 1024 {
				e.stats.RecordSteps(steps)
				steps = 0
			}
		}
		e.stats.RecordSteps(steps)
	}()

	computeflow := make(chan int)
	for _, w := range workers {
		computeWg.Add(1)
		go func() {
			defer computeWg.Done()
			for event := range computeflow {
				w.processEvent(event, stepflow)
			}
		}()
	}

	var err error
dispatch:
	for event := range e.events {
		if ctx.Err() != nil {
			err = fmt.Errorf("run interrupted after %d events: %w", event, ctx.Err())
			break
		}
		select {
		case <-ctx.Done():
			err = fmt.Errorf("run interrupted after %d events: %w", event, ctx.Err())
			break dispatch
		case computeflow <- event:
			result.Events++
		}
	}
	close(computeflow)
	computeWg.Wait()
	close(stepflow)
	stateWg.Wait()

	for _, w := range workers {
		result.Tracks += w.tally.tracks
		for d, n := range w.tally.decisions {
			if n > 0 {
				result.Decisions[biasing.Disposition(d)] += n
			}
		}
		result.Daughters += w.tally.daughters
		result.WeightIn += w.tally.weightIn
		result.WeightOut += w.tally.weightOut
		result.EscapedWeight += w.tally.escapedWeight
		result.EscapedEnergy += w.tally.escapedEnergy
		result.Stuck += w.tally.stuck
	}
	deposits = deposits[:result.Events]
	result.EnergyDeposit = utils.SumSlice(deposits)
	result.MeanDeposit = utils.Average(deposits)
	result.DepositError = utils.StdError(deposits, constants.Quantile95)

	e.stats.RecordRun()
	result.Duration = time.Since(start)
	return result, err
}
