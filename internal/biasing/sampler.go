package biasing

import "math/rand"

// RandomSampler wraps a per-worker Go random generator.
type RandomSampler struct {
	random *rand.Rand
}

func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}
