package transport

import (
	"github.com/wildstyl3r/comptsplit/internal/constants"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

// Track is a photon being transported by a worker.
type Track struct {
	id, parentID, eventID int

	position  geometry.Vec3 // [mm]
	direction geometry.Vec3
	energy    float64 // [MeV]
	weight    float64

	globalTime float64 // [ns]
	localTime  float64 // [ns] since the track was created

	volume  *geometry.Volume
	creator string
	alive   bool
	steps   int
}

func (t *Track) TrackID() int             { return t.id }
func (t *Track) ParentID() int            { return t.parentID }
func (t *Track) Weight() float64          { return t.weight }
func (t *Track) Position() geometry.Vec3  { return t.position }
func (t *Track) Direction() geometry.Vec3 { return t.direction }
func (t *Track) KineticEnergy() float64   { return t.energy }
func (t *Track) GlobalTime() float64      { return t.globalTime }
func (t *Track) LocalTime() float64       { return t.localTime }
func (t *Track) CreatorProcess() string   { return t.creator }
func (t *Track) Alive() bool              { return t.alive }

// advance moves the track by dist along its direction at the speed of light.
func (t *Track) advance(dist float64) {
	t.position = t.position.Add(t.direction.Mul(dist))
	dt := dist / constants.SpeedOfLight
	t.globalTime += dt
	t.localTime += dt
}

func (t *Track) kill() {
	t.alive = false
	t.energy = 0
}
