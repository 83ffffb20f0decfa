package transport

import (
	"math"
	"math/rand"

	"github.com/wildstyl3r/comptsplit/internal/biasing"
	"github.com/wildstyl3r/comptsplit/internal/constants"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
	"github.com/wildstyl3r/comptsplit/internal/utils"
)

const comptonProcess = "compt"

// KleinNishina samples the energy ratio eps = E'/E and cos(theta) of a free
// electron Compton scattering with Kahn's rejection method. energy in MeV.
func KleinNishina(energy float64, rng *rand.Rand) (eps, cosTheta float64) {
	k := energy / constants.ElectronMassEnergy
	a := 1 + 2*k
	for {
		r1, r2, r3 := rng.Float64(), rng.Float64(), rng.Float64()
		var x float64 // E/E'
		if r1 <= a/(a+8) {
			x = 1 + 2*k*r2
			if r3 > 4*(1/x-1/(x*x)) {
				continue
			}
		} else {
			x = a / (1 + 2*k*r2)
			mu := 1 - (x-1)/k
			if r3 > 0.5*(mu*mu+1/x) {
				continue
			}
		}
		return 1 / x, utils.Clamp(1-(x-1)/k, -1, 1)
	}
}

// scatter turns the unit vector d by the polar angle acos(cosTheta) and the
// azimuth phi.
func scatter(d geometry.Vec3, cosTheta, phi float64) geometry.Vec3 {
	u, v := d.Basis()
	sinTheta := math.Sqrt(math.Max(0, math.FMA(cosTheta, -cosTheta, 1)))
	return d.Mul(cosTheta).
		Add(u.Mul(sinTheta * math.Cos(phi))).
		Add(v.Mul(sinTheta * math.Sin(phi))).
		Norm()
}

// comptonInteraction is the pending Compton process of one photon. It samples
// final states from the incident kinematics it was created with.
type comptonInteraction struct {
	energy    float64
	direction geometry.Vec3
	rng       *rand.Rand
}

func (ix *comptonInteraction) ProcessName() string { return comptonProcess }

func (ix *comptonInteraction) SampleFinalState() biasing.FinalState {
	eps, cosTheta := KleinNishina(ix.energy, ix.rng)
	phi := 2 * math.Pi * ix.rng.Float64()
	scattered := eps * ix.energy
	return biasing.FinalState{
		Direction:      scatter(ix.direction, cosTheta, phi),
		Energy:         scattered,
		ElectronEnergy: ix.energy - scattered,
	}
}

// freePath samples the distance to the next interaction in a medium with
// linear attenuation mu [mm^-1]. A transparent medium never interacts.
func freePath(mu float64, rng *rand.Rand) float64 {
	if mu <= 0 {
		return math.Inf(1)
	}
	return utils.R(rng) / mu
}
