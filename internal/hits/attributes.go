// Package hits extracts per-step quantities ("hit attributes") and collects
// them into tables that are written as CSV or SQLite.
package hits

import (
	"errors"
	"fmt"
	"sort"

	"github.com/facette/natsort"
	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

var ErrUnknownAttribute = errors.New("unknown hit attribute")

// Type tags the value an attribute produces.
type Type byte

const (
	Double Type = 'D'
	Int    Type = 'I'
	String Type = 'S'
	Vector Type = '3'
)

func (t Type) String() string { return string(t) }

// Step is one transport step as seen by the hit attributes. Positions and
// directions are post-step, energies in MeV, times in ns.
type Step struct {
	RunID    int
	EventID  int
	ThreadID int

	TrackID        int
	ParentID       int
	Particle       string
	CreatorProcess string

	EnergyDeposit float64
	KineticEnergy float64
	LocalTime     float64
	GlobalTime    float64
	Weight        float64

	PostPosition  geometry.Vec3
	PostDirection geometry.Vec3
}

// Attribute extracts a value of the declared Type from a step taken in the
// given touchable. Extract must not retain or modify its arguments.
type Attribute struct {
	Type    Type
	Extract func(s *Step, t geometry.Touchable) any
}

type Registry struct {
	attributes map[string]Attribute
}

// NewRegistry returns a registry holding the built-in attributes.
func NewRegistry() *Registry {
	r := &Registry{attributes: map[string]Attribute{}}
	for name, a := range builtins {
		r.attributes[name] = a
	}
	return r
}

func (r *Registry) Register(name string, a Attribute) error {
	if _, ok := r.attributes[name]; ok {
		return fmt.Errorf("hit attribute %q already registered", name)
	}
	if a.Extract == nil {
		return fmt.Errorf("hit attribute %q has no extractor", name)
	}
	switch a.Type {
	case Double, Int, String, Vector:
	default:
		return fmt.Errorf("hit attribute %q has unknown type %q", name, a.Type)
	}
	r.attributes[name] = a
	return nil
}

func (r *Registry) Get(name string) (Attribute, error) {
	a, ok := r.attributes[name]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return a, nil
}

// Names lists the registered attributes in natural order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.attributes))
	for name := range r.attributes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return natsort.Compare(names[i], names[j]) })
	return names
}

// IsBuiltin reports whether name is one of the attributes every registry
// starts with.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

var builtins = map[string]Attribute{
	"TotalEnergyDeposit": {
		Type:    Double,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.EnergyDeposit },
	},
	"KineticEnergy": {
		Type:    Double,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.KineticEnergy },
	},
	"LocalTime": {
		Type:    Double,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.LocalTime },
	},
	"GlobalTime": {
		Type:    Double,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.GlobalTime },
	},
	"Weight": {
		Type:    Double,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.Weight },
	},
	"TrackID": {
		Type:    Int,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.TrackID },
	},
	"ParentID": {
		Type:    Int,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.ParentID },
	},
	"EventID": {
		Type:    Int,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.EventID },
	},
	"RunID": {
		Type:    Int,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.RunID },
	},
	"ThreadID": {
		Type:    Int,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.ThreadID },
	},
	"CreatorProcess": {
		Type:    String,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.CreatorProcess },
	},
	"ParticleName": {
		Type:    String,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.Particle },
	},
	"VolumeName": {
		Type:    String,
		Extract: func(_ *Step, t geometry.Touchable) any { return t.Name() },
	},
	"PostPosition": {
		Type:    Vector,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.PostPosition },
	},
	"PostDirection": {
		Type:    Vector,
		Extract: func(s *Step, _ geometry.Touchable) any { return s.PostDirection },
	},
}
