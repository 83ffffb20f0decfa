package hits

import (
	"fmt"
	"strconv"

	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

// Recorder keeps one row per step for a fixed list of attributes. When Volume
// is set, only steps taken inside that volume are recorded.
type Recorder struct {
	Volume string

	names      []string
	attributes []Attribute
	rows       [][]any
}

func NewRecorder(reg *Registry, volume string, names []string) (*Recorder, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("hit recorder needs at least one attribute")
	}
	r := &Recorder{Volume: volume}
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("hit attribute %q listed twice", name)
		}
		seen[name] = true
		a, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		r.names = append(r.names, name)
		r.attributes = append(r.attributes, a)
	}
	return r, nil
}

// Process appends a row for the step. It returns false when the step was
// filtered out by volume.
func (r *Recorder) Process(s *Step, t geometry.Touchable) bool {
	if r.Volume != "" && t.Name() != r.Volume {
		return false
	}
	row := make([]any, len(r.attributes))
	for i, a := range r.attributes {
		row[i] = a.Extract(s, t)
	}
	r.rows = append(r.rows, row)
	return true
}

func (r *Recorder) Rows() [][]any { return r.rows }
func (r *Recorder) Len() int      { return len(r.rows) }

// Columns returns the flat column names; vector attributes expand to
// name_X, name_Y and name_Z.
func (r *Recorder) Columns() []string {
	var cols []string
	for i, name := range r.names {
		if r.attributes[i].Type == Vector {
			cols = append(cols, name+"_X", name+"_Y", name+"_Z")
			continue
		}
		cols = append(cols, name)
	}
	return cols
}

// columnTypes follows Columns with every vector component typed Double.
func (r *Recorder) columnTypes() []Type {
	var types []Type
	for _, a := range r.attributes {
		if a.Type == Vector {
			types = append(types, Double, Double, Double)
			continue
		}
		types = append(types, a.Type)
	}
	return types
}

// flatten expands vector values in place of their attribute.
func (r *Recorder) flatten(row []any) []any {
	flat := make([]any, 0, len(row)+2)
	for i, v := range row {
		if r.attributes[i].Type == Vector {
			vec := v.(geometry.Vec3)
			flat = append(flat, vec.X, vec.Y, vec.Z)
			continue
		}
		flat = append(flat, v)
	}
	return flat
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
