package biasing

import "github.com/wildstyl3r/comptsplit/internal/geometry"

// Track is the engine's view of the particle being transported.
type Track interface {
	TrackID() int
	// ParentID is 0 for primaries.
	ParentID() int
	Weight() float64
	Position() geometry.Vec3
	GlobalTime() float64
}

// FinalState is one sampled Compton outcome for the incident photon.
type FinalState struct {
	Direction      geometry.Vec3
	Energy         float64 // [MeV] scattered photon
	ElectronEnergy float64 // [MeV] transferred to the recoil electron
}

// Interaction is the pending Compton process of the current step. Each call
// to SampleFinalState draws a new, independent outcome for the same incident
// kinematics.
type Interaction interface {
	ProcessName() string
	SampleFinalState() FinalState
}

// Operation replaces the default outcome of an interaction.
type Operation interface {
	Apply(parent Track, ix Interaction) Outcome
}

// Operator receives tracking callbacks for the volume it is attached to.
type Operator interface {
	StartTracking(t Track)
	EndTracking(t Track)
	// ProposeBiasing returns nil when the interaction must follow the
	// unbiased physics.
	ProposeBiasing(t Track, ix Interaction) Operation
}

// Host is the part of the transport engine an operator sees at run start.
type Host interface {
	Volume(name string) (*geometry.Volume, error)
	AttachTo(volume string, op Operator)
}

// Sampler provides uniform random numbers in [0, 1). It can be swapped for a
// fixed sequence in tests.
type Sampler interface {
	Get1D() float64
}
