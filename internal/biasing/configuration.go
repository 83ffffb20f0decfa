package biasing

import (
	"github.com/wildstyl3r/comptsplit/internal/config"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

// Configuration is the validated, run-independent biasing setup. It is a value
// type; each worker receives its own copy.
type Configuration struct {
	Mother           string
	SplittingFactor  float64 // kept as a real: the roulette survival probability is 1/F
	Direction        geometry.Vec3
	MaxTheta         float64 // [rad]
	RotateWithVolume bool
	PrimaryOnly      bool
	OnceOnly         bool
	RussianRoulette  bool
	MinWeight        float64
}

// NewConfiguration validates p and normalizes the director vector. All
// problems are reported together as a config.ValidationError.
func NewConfiguration(p config.Splitting) (Configuration, error) {
	if errs := config.ValidateSplitting(&p); len(errs) > 0 {
		return Configuration{}, config.ValidationError{Errors: errs}
	}
	direction, _ := geometry.FromSlice(p.VectorDirector)
	return Configuration{
		Mother:           p.Mother,
		SplittingFactor:  float64(p.SplittingFactor),
		Direction:        direction.Norm(),
		MaxTheta:         p.MaxTheta,
		RotateWithVolume: p.RotationVectorDirector,
		PrimaryOnly:      p.BiasPrimaryOnly,
		OnceOnly:         p.BiasOnlyOnce,
		RussianRoulette:  p.RussianRoulette,
		MinWeight:        p.MinWeightOfParticle,
	}, nil
}
