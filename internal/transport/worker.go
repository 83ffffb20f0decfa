package transport

import (
	"log/slog"
	"math/rand"

	"github.com/wildstyl3r/comptsplit/internal/biasing"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
	"github.com/wildstyl3r/comptsplit/internal/hits"
	"github.com/wildstyl3r/comptsplit/internal/random"
	"github.com/wildstyl3r/comptsplit/internal/stats"
)

const (
	particleName = "gamma"

	// boundaryPush moves a track past the surface it just reached so that the
	// next location lookup lands in the volume behind it.
	boundaryPush = 1e-7 // [mm]
	maxSteps     = 100000
)

type stepRecord struct {
	hits.Step
	touchable geometry.Touchable
}

type tally struct {
	tracks        int
	decisions     [4]int // indexed by biasing.Disposition
	daughters     int
	weightIn      float64
	weightOut     float64
	escapedWeight float64
	escapedEnergy float64
	stuck         int
}

// Worker transports whole events on one goroutine. Everything it mutates is
// its own: random stream, biasing actor and track stack.
type Worker struct {
	id    int
	runID int
	seed  int64
	rng   *rand.Rand

	store     *geometry.Store
	source    Source
	energyCut float64
	actor     *biasing.SplittingActor
	operators map[string]biasing.Operator

	stack  []*Track
	nextID int
	tally  tally

	stats *stats.Collector
	log   *slog.Logger
}

func newWorker(id int, e *Engine) *Worker {
	w := &Worker{
		id:        id,
		runID:     e.runID,
		seed:      e.seed,
		rng:       random.NewStream(e.seed, uint64(id)),
		store:     e.store,
		source:    e.source,
		energyCut: e.energyCut,
		operators: map[string]biasing.Operator{},
		stats:     e.stats,
		log:       e.log.With("thread", id),
	}
	if e.splitting != nil {
		w.actor = biasing.NewSplittingActor(*e.splitting, biasing.NewRandomSampler(w.rng), w.log)
	}
	return w
}

// Volume resolves a volume by name for the biasing actors.
func (w *Worker) Volume(name string) (*geometry.Volume, error) { return w.store.Get(name) }

// AttachTo makes op responsible for Compton interactions inside volume.
func (w *Worker) AttachTo(volume string, op biasing.Operator) { w.operators[volume] = op }

func (w *Worker) startRun() error {
	clear(w.operators)
	if w.actor == nil {
		return nil
	}
	return w.actor.StartRun(w)
}

// processEvent transports the primary of event and every photon split off it.
// The random stream is reseeded from the event number, so the outcome does not
// depend on which worker picks the event up.
func (w *Worker) processEvent(event int, steps chan<- stepRecord) {
	w.rng.Seed(random.DeriveSeed(w.seed, uint64(event)))
	w.nextID = 2
	w.stack = append(w.stack[:0], w.source.primary(event, w.rng))
	for len(w.stack) > 0 {
		t := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		w.transport(t, steps)
	}
	w.stats.RecordEvent()
}

func (w *Worker) transport(t *Track, steps chan<- stepRecord) {
	w.tally.tracks++
	w.stats.RecordTrack(particleName)
	t.volume = w.store.Locate(t.position)
	w.startTracking(t)
	defer w.endTracking(t)

	for t.alive {
		vol := t.volume
		if vol == nil {
			w.tally.escapedWeight += t.weight
			w.tally.escapedEnergy += t.weight * t.energy
			t.alive = false
			return
		}
		if t.energy < w.energyCut {
			w.absorb(t, vol, steps)
			return
		}
		t.steps++
		if t.steps > maxSteps {
			w.tally.stuck++
			w.log.Warn("track killed after too many steps", "event", t.eventID, "track", t.id, "volume", vol.Name)
			t.alive = false
			return
		}

		geom := vol.DistanceToOut(t.position, t.direction)
		for _, d := range w.store.Daughters(vol.Name) {
			if dist, ok := d.DistanceToIn(t.position, t.direction); ok && dist < geom {
				geom = dist
			}
		}
		phys := freePath(vol.Attenuation, w.rng)

		if phys >= geom {
			t.advance(geom + boundaryPush)
			t.volume = w.store.Locate(t.position)
			w.emit(steps, w.newStep(t), vol)
			continue
		}

		t.advance(phys)
		if w.rng.Float64() >= vol.ComptonFraction {
			// photoelectric
			w.absorb(t, vol, steps)
			return
		}
		w.emit(steps, w.compton(t, vol), vol)
	}
}

// absorb deposits the whole photon energy where the track stands.
func (w *Worker) absorb(t *Track, vol *geometry.Volume, steps chan<- stepRecord) {
	deposit := t.energy
	t.kill()
	s := w.newStep(t)
	s.EnergyDeposit = deposit
	w.emit(steps, s, vol)
}

// compton performs one Compton interaction of t in vol, biased when an
// operator attached to vol proposes an operation. The returned step carries the
// locally deposited electron energy and the weight it counts with.
func (w *Worker) compton(t *Track, vol *geometry.Volume) hits.Step {
	ix := &comptonInteraction{energy: t.energy, direction: t.direction, rng: w.rng}

	var op biasing.Operation
	if operator, ok := w.operators[vol.Name]; ok {
		op = operator.ProposeBiasing(t, ix)
	}
	if op == nil {
		fs := ix.SampleFinalState()
		t.direction, t.energy = fs.Direction, fs.Energy
		s := w.newStep(t)
		s.EnergyDeposit = fs.ElectronEnergy
		return s
	}

	weightIn := t.weight
	out := op.Apply(t, ix)
	w.tally.decisions[out.Disposition]++
	w.tally.daughters += len(out.Daughters)
	w.tally.weightIn += weightIn
	w.tally.weightOut += out.TotalWeight()
	w.stats.RecordDecision(out, weightIn)

	switch out.Disposition {
	case biasing.Unbiased, biasing.Survived:
		t.weight = out.Weight
		t.direction, t.energy = out.FinalState.Direction, out.FinalState.Energy
		s := w.newStep(t)
		s.EnergyDeposit = out.FinalState.ElectronEnergy
		return s
	case biasing.Split:
		deposit := 0.
		for _, d := range out.Daughters {
			deposit += d.LocalDeposit * d.Weight
			w.stack = append(w.stack, w.daughter(t, d))
		}
		t.kill()
		s := w.newStep(t)
		s.Weight = weightIn
		if weightIn > 0 {
			s.EnergyDeposit = deposit / weightIn
		}
		return s
	}
	// lost the roulette
	t.weight = 0
	t.kill()
	return w.newStep(t)
}

func (w *Worker) daughter(parent *Track, d biasing.Daughter) *Track {
	id := w.nextID
	w.nextID++
	return &Track{
		id:         id,
		parentID:   parent.id,
		eventID:    parent.eventID,
		position:   d.Position,
		direction:  d.Direction,
		energy:     d.Energy,
		weight:     d.Weight,
		globalTime: d.Time,
		creator:    comptonProcess,
		alive:      true,
	}
}

func (w *Worker) startTracking(t *Track) {
	if w.actor != nil {
		w.actor.StartTracking(t)
	}
}

func (w *Worker) endTracking(t *Track) {
	if w.actor != nil {
		w.actor.EndTracking(t)
	}
}

// newStep fills the post-step view of t. Weight is the weight the step's
// energy deposit counts with.
func (w *Worker) newStep(t *Track) hits.Step {
	return hits.Step{
		RunID:          w.runID,
		EventID:        t.eventID,
		ThreadID:       w.id,
		TrackID:        t.id,
		ParentID:       t.parentID,
		Particle:       particleName,
		CreatorProcess: t.creator,
		KineticEnergy:  t.energy,
		LocalTime:      t.localTime,
		GlobalTime:     t.globalTime,
		Weight:         t.weight,
		PostPosition:   t.position,
		PostDirection:  t.direction,
	}
}

func (w *Worker) emit(steps chan<- stepRecord, s hits.Step, vol *geometry.Volume) {
	steps <- stepRecord{Step: s, touchable: geometry.Touchable{Volume: vol}}
}

var _ biasing.Host = (*Worker)(nil)
