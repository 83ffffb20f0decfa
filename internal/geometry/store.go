package geometry

import (
	"errors"
	"fmt"
)

var ErrVolumeNotFound = errors.New("volume not found")

// Store is the named volume registry. It is built once before a run and only
// read afterwards, so it is shared between workers without locking.
type Store struct {
	volumes   map[string]*Volume
	order     []string
	daughters map[string][]*Volume
	world     *Volume
}

func NewStore() *Store {
	return &Store{
		volumes:   map[string]*Volume{},
		daughters: map[string][]*Volume{},
	}
}

// Add registers v. The first volume without a mother becomes the world;
// mothers must be added before their daughters.
func (s *Store) Add(v *Volume) error {
	if _, dup := s.volumes[v.Name]; dup {
		return fmt.Errorf("volume %q defined twice", v.Name)
	}
	if v.Mother == "" {
		if s.world != nil {
			return fmt.Errorf("volume %q: world already defined as %q", v.Name, s.world.Name)
		}
		s.world = v
	} else {
		mother, ok := s.volumes[v.Mother]
		if !ok {
			return fmt.Errorf("volume %q: mother %q: %w", v.Name, v.Mother, ErrVolumeNotFound)
		}
		v.depth = mother.depth + 1
		s.daughters[v.Mother] = append(s.daughters[v.Mother], v)
	}
	s.volumes[v.Name] = v
	s.order = append(s.order, v.Name)
	return nil
}

func (s *Store) Get(name string) (*Volume, error) {
	v, ok := s.volumes[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrVolumeNotFound)
	}
	return v, nil
}

func (s *Store) World() *Volume { return s.world }

func (s *Store) Names() []string { return s.order }

func (s *Store) Daughters(name string) []*Volume { return s.daughters[name] }

// Locate returns the deepest volume containing p, or nil outside the world.
func (s *Store) Locate(p Vec3) *Volume {
	if s.world == nil || !s.world.Contains(p) {
		return nil
	}
	current := s.world
	for {
		next := (*Volume)(nil)
		for _, d := range s.daughters[current.Name] {
			if d.Contains(p) {
				next = d
				break
			}
		}
		if next == nil {
			return current
		}
		current = next
	}
}

// Touchable identifies where a step point lies: the volume and its depth in
// the hierarchy.
type Touchable struct {
	Volume *Volume
}

func (t Touchable) Name() string {
	if t.Volume == nil {
		return "OutOfWorld"
	}
	return t.Volume.Name
}

func (t Touchable) Depth() int {
	if t.Volume == nil {
		return -1
	}
	return t.Volume.Depth()
}
