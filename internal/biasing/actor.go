package biasing

import (
	"fmt"
	"log/slog"

	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

// SplittingActor decides, per track and per Compton candidate, whether the
// splitting operation replaces the default interaction.
type SplittingActor struct {
	cfg       Configuration
	direction geometry.Vec3 // cone axis in world coordinates, resolved at run start
	operation *SplittingOperation

	// interactions biased so far, per track id
	interactions map[int]int

	log *slog.Logger
}

func NewSplittingActor(cfg Configuration, rnd Sampler, logger *slog.Logger) *SplittingActor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SplittingActor{
		cfg:          cfg,
		direction:    cfg.Direction,
		operation:    NewSplittingOperation(rnd),
		interactions: map[int]int{},
		log:          logger,
	}
}

func (a *SplittingActor) Operation() *SplittingOperation { return a.operation }

// Direction is the cone axis in world coordinates.
func (a *SplittingActor) Direction() geometry.Vec3 { return a.direction }

// StartRun resolves the target volume, aligns the cone axis with the volume
// rotation when requested, configures the operation and attaches the actor to
// the volume.
func (a *SplittingActor) StartRun(host Host) error {
	volume, err := host.Volume(a.cfg.Mother)
	if err != nil {
		return fmt.Errorf("compton splitting: %w", err)
	}
	a.direction = a.cfg.Direction
	if a.cfg.RotateWithVolume {
		a.direction = volume.Rotation.MulVec(a.direction).Norm()
	}
	a.operation.Configure(a.cfg.SplittingFactor, a.direction, a.cfg.MaxTheta, a.cfg.RussianRoulette)
	clear(a.interactions)

	a.log.Debug("compton splitting attached",
		"volume", volume.Name,
		"splitting_factor", a.cfg.SplittingFactor,
		"direction", a.direction,
		"max_theta", a.cfg.MaxTheta,
		"russian_roulette", a.cfg.RussianRoulette,
		"primaries_only", a.cfg.PrimaryOnly,
		"once_per_track", a.cfg.OnceOnly,
	)
	host.AttachTo(volume.Name, a)
	return nil
}

func (a *SplittingActor) StartTracking(t Track) {
	a.interactions[t.TrackID()] = 0
}

func (a *SplittingActor) EndTracking(t Track) {
	delete(a.interactions, t.TrackID())
}

func (a *SplittingActor) ProposeBiasing(t Track, ix Interaction) Operation {
	if a.cfg.PrimaryOnly && t.ParentID() != 0 {
		return nil
	}
	id := t.TrackID()
	if a.cfg.OnceOnly && a.interactions[id] > 0 {
		return nil
	}
	if a.cfg.MinWeight > 0 && t.Weight() < a.cfg.MinWeight {
		return nil
	}
	a.interactions[id]++
	return a.operation
}

// Interactions returns how many interactions of the track were biased.
func (a *SplittingActor) Interactions(trackID int) int {
	return a.interactions[trackID]
}
