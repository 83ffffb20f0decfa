package transport

import (
	"math/rand"

	"github.com/wildstyl3r/comptsplit/internal/config"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
	"github.com/wildstyl3r/comptsplit/internal/utils"
)

// Source emits one mono-energetic photon per event, uniformly on a disk of
// the given radius perpendicular to the beam direction.
type Source struct {
	Energy    float64 // [MeV]
	Position  geometry.Vec3
	Direction geometry.Vec3
	Radius    float64 // [mm]

	u, v geometry.Vec3
}

func NewSource(p config.Source) Source {
	pos, _ := geometry.FromSlice(p.Position)
	dir, _ := geometry.FromSlice(p.Direction)
	s := Source{Energy: p.Energy, Position: pos, Direction: dir.Norm(), Radius: p.Radius}
	s.u, s.v = s.Direction.Basis()
	return s
}

func (s Source) primary(event int, rng *rand.Rand) *Track {
	pos := s.Position
	if s.Radius > 0 {
		a, b := utils.UniformOnDisk(s.Radius, rng)
		pos = pos.Add(s.u.Mul(a)).Add(s.v.Mul(b))
	}
	return &Track{
		id:        1,
		eventID:   event,
		position:  pos,
		direction: s.Direction,
		energy:    s.Energy,
		weight:    1,
		alive:     true,
	}
}
