package biasing

import (
	"math"

	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

// maxResample bounds the draws spent on one in-cone daughter.
const maxResample = 1 << 20

// Disposition says what happened to the parent track.
type Disposition int

const (
	// Unbiased: no replacement, the parent continues with the sampled final
	// state at its original weight.
	Unbiased Disposition = iota
	// Split: the parent is discarded and replaced by the daughters, all of
	// them inside the acceptance cone.
	Split
	// Survived: the parent won the roulette and continues with its weight
	// multiplied by the splitting factor.
	Survived
	// Killed: the parent lost the roulette.
	Killed
)

func (d Disposition) String() string {
	switch d {
	case Unbiased:
		return "unbiased"
	case Split:
		return "split"
	case Survived:
		return "survived"
	case Killed:
		return "killed"
	}
	return "unknown"
}

// Daughter is a photon emitted by a split interaction.
type Daughter struct {
	Position     geometry.Vec3
	Direction    geometry.Vec3
	Energy       float64 // [MeV]
	Weight       float64
	Time         float64 // [ns]
	LocalDeposit float64 // [MeV] recoil electron energy, deposited in place
}

type Outcome struct {
	Disposition Disposition
	// FinalState is the real scattering sampled first. It applies to the
	// parent when the disposition is Unbiased or Survived.
	FinalState FinalState
	// Weight of the parent after the interaction; 0 when it was discarded.
	Weight    float64
	Daughters []Daughter
}

// TotalWeight is the photon weight leaving the interaction.
func (o Outcome) TotalWeight() float64 {
	w := o.Weight
	for _, d := range o.Daughters {
		w += d.Weight
	}
	return w
}

// SplittingOperation is the Compton splitting / Russian roulette operation.
// Its parameters are pushed once per run by the owning actor.
type SplittingOperation struct {
	factor          float64
	direction       geometry.Vec3
	maxTheta        float64
	russianRoulette bool

	rnd Sampler
}

func NewSplittingOperation(rnd Sampler) *SplittingOperation {
	return &SplittingOperation{
		factor:    1,
		direction: geometry.Vec3{Z: 1},
		maxTheta:  math.Pi,
		rnd:       rnd,
	}
}

// Configure sets the run parameters. The direction is renormalized; a factor
// below 1 is clamped to 1.
func (op *SplittingOperation) Configure(factor float64, direction geometry.Vec3, maxTheta float64, russianRoulette bool) {
	op.factor = math.Max(1, math.Floor(factor))
	op.direction = direction.Norm()
	op.maxTheta = maxTheta
	op.russianRoulette = russianRoulette
}

func (op *SplittingOperation) SplittingFactor() float64 { return op.factor }
func (op *SplittingOperation) Direction() geometry.Vec3 { return op.direction }
func (op *SplittingOperation) MaxTheta() float64        { return op.maxTheta }

// Accepts reports whether v lies within the acceptance cone. Zero-length or
// non-finite vectors are never accepted.
func (op *SplittingOperation) Accepts(v geometry.Vec3) bool {
	theta := op.direction.Angle(v)
	if math.IsNaN(theta) {
		return false
	}
	return theta <= op.maxTheta
}

// Apply executes the operation on parent.
func (op *SplittingOperation) Apply(parent Track, ix Interaction) Outcome {
	w := parent.Weight()
	state := ix.SampleFinalState()

	if op.factor <= 1 {
		return Outcome{
			Disposition: Split,
			FinalState:  state,
			Daughters:   []Daughter{newDaughter(parent, state, w)},
		}
	}

	if op.Accepts(state.Direction) {
		n := int(op.factor)
		dw := w / op.factor
		daughters := make([]Daughter, 0, n)
		daughters = append(daughters, newDaughter(parent, state, dw))
		for len(daughters) < n {
			daughters = append(daughters, newDaughter(parent, op.sampleInCone(ix, state), dw))
		}
		return Outcome{Disposition: Split, FinalState: state, Daughters: daughters}
	}

	if !op.russianRoulette {
		return Outcome{Disposition: Unbiased, FinalState: state, Weight: w}
	}
	if op.rnd.Get1D() < 1/op.factor {
		return Outcome{Disposition: Survived, FinalState: state, Weight: w * op.factor}
	}
	return Outcome{Disposition: Killed, FinalState: state}
}

// sampleInCone draws final states until one falls inside the cone. accepted
// is returned if the cone is too narrow to be hit within maxResample draws.
func (op *SplittingOperation) sampleInCone(ix Interaction, accepted FinalState) FinalState {
	for range maxResample {
		if state := ix.SampleFinalState(); op.Accepts(state.Direction) {
			return state
		}
	}
	return accepted
}

func newDaughter(parent Track, state FinalState, weight float64) Daughter {
	return Daughter{
		Position:     parent.Position(),
		Direction:    state.Direction.Norm(),
		Energy:       state.Energy,
		Weight:       weight,
		Time:         parent.GlobalTime(),
		LocalDeposit: state.ElectronEnergy,
	}
}
