package biasing

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/wildstyl3r/comptsplit/internal/config"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

func approxEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

type fakeTrack struct {
	id, parent int
	weight     float64
	position   geometry.Vec3
	time       float64
}

func (t *fakeTrack) TrackID() int            { return t.id }
func (t *fakeTrack) ParentID() int           { return t.parent }
func (t *fakeTrack) Weight() float64         { return t.weight }
func (t *fakeTrack) Position() geometry.Vec3 { return t.position }
func (t *fakeTrack) GlobalTime() float64     { return t.time }

// fixedInteraction always scatters into the same direction.
type fixedInteraction struct {
	direction geometry.Vec3
	calls     int
}

func (ix *fixedInteraction) ProcessName() string { return "compt" }
func (ix *fixedInteraction) SampleFinalState() FinalState {
	ix.calls++
	return FinalState{Direction: ix.direction, Energy: 0.1, ElectronEnergy: 0.04}
}

// isotropicInteraction draws uniformly distributed directions.
type isotropicInteraction struct {
	rng *rand.Rand
}

func (ix *isotropicInteraction) ProcessName() string { return "compt" }
func (ix *isotropicInteraction) SampleFinalState() FinalState {
	z := 1 - 2*ix.rng.Float64()
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * ix.rng.Float64()
	return FinalState{Direction: geometry.Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}, Energy: 0.1}
}

type fixedSampler float64

func (s fixedSampler) Get1D() float64 { return float64(s) }

type fakeHost struct {
	store    *geometry.Store
	attached map[string]Operator
}

func newFakeHost(t *testing.T, rotation geometry.Rot3) *fakeHost {
	t.Helper()
	store := geometry.NewStore()
	if err := store.Add(geometry.NewVolume("world", "", geometry.Vec3{}, geometry.Vec3{X: 100, Y: 100, Z: 100}, geometry.Rot3{})); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(geometry.NewVolume("phantom", "world", geometry.Vec3{}, geometry.Vec3{X: 10, Y: 10, Z: 10}, rotation)); err != nil {
		t.Fatal(err)
	}
	return &fakeHost{store: store, attached: map[string]Operator{}}
}

func (h *fakeHost) Volume(name string) (*geometry.Volume, error) { return h.store.Get(name) }
func (h *fakeHost) AttachTo(volume string, op Operator)          { h.attached[volume] = op }

func scenarioConfig(roulette bool) Configuration {
	return Configuration{
		Mother:          "phantom",
		SplittingFactor: 4,
		Direction:       geometry.Vec3{Z: 1},
		MaxTheta:        10 * math.Pi / 180,
		RussianRoulette: roulette,
	}
}

func startedActor(t *testing.T, cfg Configuration, rnd Sampler) *SplittingActor {
	t.Helper()
	a := NewSplittingActor(cfg, rnd, nil)
	if err := a.StartRun(newFakeHost(t, geometry.Rot3{})); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	return a
}

func TestScenarioSplitInsideCone(t *testing.T) {
	a := startedActor(t, scenarioConfig(false), fixedSampler(0.5))
	parent := &fakeTrack{id: 1, weight: 2, position: geometry.Vec3{X: 1, Y: 2, Z: 3}, time: 0.25}
	ix := &fixedInteraction{direction: geometry.Vec3{Z: 1}}
	a.StartTracking(parent)

	op := a.ProposeBiasing(parent, ix)
	if op == nil {
		t.Fatalf("primary in the attached volume should be biased")
	}
	out := op.Apply(parent, ix)
	if out.Disposition != Split {
		t.Fatalf("disposition = %s, want split", out.Disposition)
	}
	if len(out.Daughters) != 4 {
		t.Fatalf("daughters = %d, want 4", len(out.Daughters))
	}
	for i, d := range out.Daughters {
		if d.Weight != 0.5 {
			t.Fatalf("daughter %d weight = %g, want 0.5", i, d.Weight)
		}
		if d.Position != parent.position || d.Time != parent.time {
			t.Fatalf("daughter %d spawn point = %+v t=%g", i, d.Position, d.Time)
		}
		if d.LocalDeposit != 0.04 || d.Energy != 0.1 {
			t.Fatalf("daughter %d kinematics = %+v", i, d)
		}
	}
	if out.Weight != 0 || out.TotalWeight() != 2 {
		t.Fatalf("parent weight %g, total %g", out.Weight, out.TotalWeight())
	}
	// the accepted sample is the first daughter
	if ix.calls != 4 {
		t.Fatalf("final state sampled %d times, want 4", ix.calls)
	}
}

// sequenceInteraction replays a list of directions.
type sequenceInteraction struct {
	directions []geometry.Vec3
	calls      int
}

func (ix *sequenceInteraction) ProcessName() string { return "compt" }
func (ix *sequenceInteraction) SampleFinalState() FinalState {
	d := ix.directions[ix.calls%len(ix.directions)]
	ix.calls++
	return FinalState{Direction: d, Energy: 0.1}
}

func TestSplitDaughtersStayInCone(t *testing.T) {
	a := startedActor(t, scenarioConfig(false), fixedSampler(0.5))
	parent := &fakeTrack{id: 1, weight: 1}
	in, out := geometry.Vec3{Z: 1}, geometry.Vec3{X: 1}
	ix := &sequenceInteraction{directions: []geometry.Vec3{in, out, out, in, out, in, in}}

	res := a.operation.Apply(parent, ix)
	if res.Disposition != Split || len(res.Daughters) != 4 {
		t.Fatalf("outcome = %+v, want 4 daughters", res)
	}
	for i, d := range res.Daughters {
		if !a.operation.Accepts(d.Direction) {
			t.Fatalf("daughter %d outside the cone: %+v", i, d.Direction)
		}
	}
	if ix.calls != 7 {
		t.Fatalf("final state sampled %d times, want 7", ix.calls)
	}
}

// The weight scattered into the cone must match analog scattering, where a
// fraction P(cone) of the weight ends up there.
func TestSplitKeepsConeWeightUnbiased(t *testing.T) {
	const trials = 400000
	for _, roulette := range []bool{false, true} {
		cfg := scenarioConfig(roulette)
		cfg.MaxTheta = math.Pi / 3 // P(cone) = 1/4 for isotropic scattering
		rng := rand.New(rand.NewSource(5))
		a := startedActor(t, cfg, NewRandomSampler(rng))
		ix := &isotropicInteraction{rng: rng}
		parent := &fakeTrack{id: 1, weight: 1}

		inCone, outside := 0., 0.
		for range trials {
			res := a.operation.Apply(parent, ix)
			for _, d := range res.Daughters {
				if a.operation.Accepts(d.Direction) {
					inCone += d.Weight
				} else {
					outside += d.Weight
				}
			}
			if res.Weight > 0 {
				if a.operation.Accepts(res.FinalState.Direction) {
					inCone += res.Weight
				} else {
					outside += res.Weight
				}
			}
		}
		inCone /= trials
		outside /= trials
		if !approxEqual(inCone, 0.25, 0.004) {
			t.Fatalf("roulette=%v: in-cone weight %g, want 0.25", roulette, inCone)
		}
		// survivors carry weight 4: standard error about 0.0025
		if !approxEqual(outside, 0.75, 0.0125) {
			t.Fatalf("roulette=%v: outside weight %g, want 0.75", roulette, outside)
		}
	}
}

func TestScenarioOutsideConeWithoutRoulette(t *testing.T) {
	a := startedActor(t, scenarioConfig(false), fixedSampler(0.1))
	parent := &fakeTrack{id: 1, weight: 1}
	ix := &fixedInteraction{direction: geometry.Vec3{X: 1}}
	a.StartTracking(parent)

	out := a.ProposeBiasing(parent, ix).Apply(parent, ix)
	if out.Disposition != Unbiased || len(out.Daughters) != 0 || out.Weight != 1 {
		t.Fatalf("outcome = %+v, want unbiased pass-through", out)
	}
	if out.FinalState.Direction != (geometry.Vec3{X: 1}) {
		t.Fatalf("the sampled final state must be kept: %+v", out.FinalState)
	}
}

func TestScenarioRouletteFixedDraws(t *testing.T) {
	parent := &fakeTrack{id: 1, weight: 1}
	ix := &fixedInteraction{direction: geometry.Vec3{X: 1}}

	survive := startedActor(t, scenarioConfig(true), fixedSampler(0.1))
	out := survive.operation.Apply(parent, ix)
	if out.Disposition != Survived || out.Weight != 4 || len(out.Daughters) != 0 {
		t.Fatalf("u=0.1: outcome = %+v, want survival at weight 4", out)
	}
	die := startedActor(t, scenarioConfig(true), fixedSampler(0.9))
	out = die.operation.Apply(parent, ix)
	if out.Disposition != Killed || out.TotalWeight() != 0 {
		t.Fatalf("u=0.9: outcome = %+v, want termination", out)
	}
}

func TestRouletteBoundary(t *testing.T) {
	parent := &fakeTrack{id: 1, weight: 1}
	ix := &fixedInteraction{direction: geometry.Vec3{X: 1}}
	// survival requires u < 1/F strictly
	if out := startedActor(t, scenarioConfig(true), fixedSampler(0.25)).operation.Apply(parent, ix); out.Disposition != Killed {
		t.Fatalf("u = 1/F must not survive, got %s", out.Disposition)
	}
	if out := startedActor(t, scenarioConfig(true), fixedSampler(0.2499999)).operation.Apply(parent, ix); out.Disposition != Survived {
		t.Fatalf("u just below 1/F must survive, got %s", out.Disposition)
	}
}

func TestWeightConservationInExpectation(t *testing.T) {
	const trials = 200000
	for _, factor := range []float64{2, 4, 7} {
		cfg := scenarioConfig(true)
		cfg.SplittingFactor = factor
		cfg.MaxTheta = math.Pi / 3
		rng := rand.New(rand.NewSource(int64(factor)))
		a := startedActor(t, cfg, NewRandomSampler(rng))
		ix := &isotropicInteraction{rng: rng}
		parent := &fakeTrack{id: 1, weight: 3}

		sum := 0.
		for range trials {
			out := a.operation.Apply(parent, ix)
			if out.Disposition == Split && !approxEqual(out.TotalWeight(), 3, 1e-12) {
				t.Fatalf("split branch must conserve weight exactly, got %g", out.TotalWeight())
			}
			sum += out.TotalWeight()
		}
		mean := sum / trials
		// roulette weight variance is w^2 (F-1); allow about five standard errors
		tolerance := 5 * 3 * math.Sqrt(factor-1) / math.Sqrt(trials)
		if !approxEqual(mean, 3, tolerance) {
			t.Fatalf("F=%g: mean outgoing weight %g, want 3 ± %g", factor, mean, tolerance)
		}
	}
}

func TestAcceptanceIsDeterministic(t *testing.T) {
	op := NewSplittingOperation(fixedSampler(0))
	op.Configure(4, geometry.Vec3{Z: 3}, 10*math.Pi/180, false)
	if op.Direction() != (geometry.Vec3{Z: 1}) {
		t.Fatalf("director not renormalized: %+v", op.Direction())
	}
	cases := []struct {
		v    geometry.Vec3
		want bool
	}{
		{geometry.Vec3{Z: 1}, true},
		{geometry.Vec3{Z: 1e-9}, true},
		{geometry.Vec3{Z: 250}, true},
		{geometry.Vec3{X: math.Sin(9.9 * math.Pi / 180), Z: math.Cos(9.9 * math.Pi / 180)}, true},
		{geometry.Vec3{X: math.Sin(10.1 * math.Pi / 180), Z: math.Cos(10.1 * math.Pi / 180)}, false},
		{geometry.Vec3{X: 1}, false},
		{geometry.Vec3{Z: -1}, false},
		{geometry.Vec3{}, false},
		{geometry.Vec3{X: math.NaN(), Z: 1}, false},
	}
	for _, c := range cases {
		for range 3 {
			if got := op.Accepts(c.v); got != c.want {
				t.Fatalf("Accepts(%+v) = %v, want %v", c.v, got, c.want)
			}
		}
	}
}

func TestZeroMaxThetaAcceptsOnlyColinear(t *testing.T) {
	op := NewSplittingOperation(fixedSampler(0))
	op.Configure(4, geometry.Vec3{Z: 1}, 0, false)
	if !op.Accepts(geometry.Vec3{Z: 2}) {
		t.Fatalf("colinear direction must be accepted with max theta 0")
	}
	if op.Accepts(geometry.Vec3{X: 1e-6, Z: 1}) {
		t.Fatalf("non-colinear direction must be rejected with max theta 0")
	}
}

func TestFactorOneNeverSplits(t *testing.T) {
	cfg := scenarioConfig(true)
	cfg.SplittingFactor = 1
	a := startedActor(t, cfg, fixedSampler(0.99))
	parent := &fakeTrack{id: 1, weight: 1.5}
	for _, dir := range []geometry.Vec3{{Z: 1}, {X: 1}, {Z: -1}} {
		out := a.operation.Apply(parent, &fixedInteraction{direction: dir})
		if len(out.Daughters) != 1 || out.Daughters[0].Weight != 1.5 || out.TotalWeight() != 1.5 {
			t.Fatalf("F=1 outcome for %+v = %+v", dir, out)
		}
	}
}

func TestCounterMonotonicity(t *testing.T) {
	a := startedActor(t, scenarioConfig(false), fixedSampler(0))
	track := &fakeTrack{id: 7, weight: 1}
	ix := &fixedInteraction{direction: geometry.Vec3{Z: 1}}
	a.StartTracking(track)
	if got := a.Interactions(7); got != 0 {
		t.Fatalf("counter at track start = %d", got)
	}
	for i := 1; i <= 5; i++ {
		if a.ProposeBiasing(track, ix) == nil {
			t.Fatalf("call %d: expected an operation", i)
		}
		if got := a.Interactions(7); got != i {
			t.Fatalf("after %d decisions counter = %d", i, got)
		}
	}
	a.EndTracking(track)
	a.StartTracking(track)
	if got := a.Interactions(7); got != 0 {
		t.Fatalf("counter not reset on new tracking: %d", got)
	}
}

func TestPrimaryOnlyGating(t *testing.T) {
	cfg := scenarioConfig(true)
	cfg.PrimaryOnly = true
	a := startedActor(t, cfg, fixedSampler(0))
	ix := &fixedInteraction{direction: geometry.Vec3{Z: 1}}

	secondary := &fakeTrack{id: 2, parent: 1, weight: 1}
	a.StartTracking(secondary)
	for range 3 {
		if a.ProposeBiasing(secondary, ix) != nil {
			t.Fatalf("secondary must not be biased with primary-only")
		}
	}
	if a.Interactions(2) != 0 {
		t.Fatalf("rejected proposals must not count")
	}
	primary := &fakeTrack{id: 1, weight: 1}
	a.StartTracking(primary)
	if a.ProposeBiasing(primary, ix) == nil {
		t.Fatalf("primary should be biased")
	}
}

func TestOnceOnlyGating(t *testing.T) {
	cfg := scenarioConfig(false)
	cfg.OnceOnly = true
	a := startedActor(t, cfg, fixedSampler(0))
	ix := &fixedInteraction{direction: geometry.Vec3{Z: 1}}
	first, second := &fakeTrack{id: 1, weight: 1}, &fakeTrack{id: 2, weight: 1}
	a.StartTracking(first)
	a.StartTracking(second)

	if a.ProposeBiasing(first, ix) == nil {
		t.Fatalf("first decision should be biased")
	}
	for range 4 {
		if a.ProposeBiasing(first, ix) != nil {
			t.Fatalf("track already biased once")
		}
	}
	if a.Interactions(1) != 1 {
		t.Fatalf("counter = %d, want 1", a.Interactions(1))
	}
	if a.ProposeBiasing(second, ix) == nil {
		t.Fatalf("another track keeps its own counter")
	}
}

func TestMinWeightGating(t *testing.T) {
	cfg := scenarioConfig(false)
	cfg.MinWeight = 0.1
	a := startedActor(t, cfg, fixedSampler(0))
	ix := &fixedInteraction{direction: geometry.Vec3{Z: 1}}
	light := &fakeTrack{id: 1, weight: 0.05}
	a.StartTracking(light)
	if a.ProposeBiasing(light, ix) != nil {
		t.Fatalf("track below the minimum weight must not be biased")
	}
	heavy := &fakeTrack{id: 2, weight: 0.1}
	a.StartTracking(heavy)
	if a.ProposeBiasing(heavy, ix) == nil {
		t.Fatalf("track at the minimum weight should be biased")
	}
}

func TestStartRunRotatesDirector(t *testing.T) {
	cfg := scenarioConfig(false)
	cfg.RotateWithVolume = true
	a := NewSplittingActor(cfg, fixedSampler(0), nil)
	host := newFakeHost(t, geometry.Rot3{X: math.Pi / 2})
	if err := a.StartRun(host); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	d := a.Operation().Direction()
	if !approxEqual(d.X, 0, 1e-12) || !approxEqual(d.Y, -1, 1e-12) || !approxEqual(d.Z, 0, 1e-12) {
		t.Fatalf("rotated director = %+v, want (0,-1,0)", d)
	}
	if host.attached["phantom"] != a {
		t.Fatalf("actor not attached to the target volume")
	}
	if a.Operation().SplittingFactor() != 4 || !approxEqual(a.Operation().MaxTheta(), 10*math.Pi/180, 0) {
		t.Fatalf("operation not configured")
	}

	cfg.RotateWithVolume = false
	b := NewSplittingActor(cfg, fixedSampler(0), nil)
	if err := b.StartRun(host); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if b.Operation().Direction() != (geometry.Vec3{Z: 1}) {
		t.Fatalf("director must not rotate when disabled: %+v", b.Operation().Direction())
	}
}

func TestStartRunUnknownVolume(t *testing.T) {
	cfg := scenarioConfig(false)
	cfg.Mother = "nowhere"
	a := NewSplittingActor(cfg, fixedSampler(0), nil)
	err := a.StartRun(newFakeHost(t, geometry.Rot3{}))
	if !errors.Is(err, geometry.ErrVolumeNotFound) {
		t.Fatalf("expected ErrVolumeNotFound, got %v", err)
	}
}

func TestNewConfiguration(t *testing.T) {
	cfg, err := NewConfiguration(config.Splitting{
		Mother:          "phantom",
		SplittingFactor: 5,
		VectorDirector:  []float64{0, 3, 4},
		MaxTheta:        0.2,
		BiasOnlyOnce:    true,
	})
	if err != nil {
		t.Fatalf("NewConfiguration: %v", err)
	}
	if cfg.SplittingFactor != 5 || !cfg.OnceOnly || cfg.PrimaryOnly {
		t.Fatalf("configuration = %+v", cfg)
	}
	if !approxEqual(cfg.Direction.Y, 0.6, 1e-15) || !approxEqual(cfg.Direction.Z, 0.8, 1e-15) {
		t.Fatalf("director not normalized: %+v", cfg.Direction)
	}

	_, err = NewConfiguration(config.Splitting{
		SplittingFactor: -2,
		VectorDirector:  []float64{0, 0},
		MaxTheta:        -1,
	})
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"splitting.mother", "splitting.splitting_factor", "splitting.vector_director", "splitting.max_theta"} {
		if !verr.Has(field) {
			t.Errorf("missing error for %s in %v", field, verr)
		}
	}
}
