package config

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/wildstyl3r/comptsplit/internal/hits"
)

// FieldError is a validation problem with one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "splitting.max_theta").
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError carries every problem found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether a problem was recorded for field.
func (e ValidationError) Has(field string) bool {
	return slices.ContainsFunc(e.Errors, func(fe FieldError) bool { return fe.Field == field })
}

// Validate checks the whole configuration; all problems are returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRun(cfg)...)
	errs = append(errs, validateSource(&cfg.Source)...)
	errs = append(errs, validateVolumes(cfg.Volumes)...)
	errs = append(errs, ValidateSplitting(&cfg.Splitting)...)
	errs = append(errs, validateHits(&cfg.Hits)...)

	names := map[string]struct{}{}
	for _, v := range cfg.Volumes {
		names[v.Name] = struct{}{}
	}
	if _, ok := names[cfg.Splitting.Mother]; cfg.Splitting.Mother != "" && !ok {
		errs = append(errs, FieldError{
			Field:   "splitting.mother",
			Message: fmt.Sprintf("unknown volume %q", cfg.Splitting.Mother),
		})
	}
	if _, ok := names[cfg.Hits.Volume]; cfg.Hits.Volume != "" && !ok {
		errs = append(errs, FieldError{
			Field:   "hits.volume",
			Message: fmt.Sprintf("unknown volume %q", cfg.Hits.Volume),
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRun(cfg *Config) []FieldError {
	var errs []FieldError
	if cfg.Threads < 1 {
		errs = append(errs, FieldError{Field: "threads", Message: "must be at least 1"})
	}
	if cfg.Runs < 1 {
		errs = append(errs, FieldError{Field: "runs", Message: "must be at least 1"})
	}
	if cfg.Events < 1 {
		errs = append(errs, FieldError{Field: "events", Message: "must be at least 1"})
	}
	if cfg.EnergyCut < 0 {
		errs = append(errs, FieldError{Field: "energy_cut", Message: "must be non-negative"})
	}
	_, conflicts, unknown := checkUnits(cfg.InputUnits)
	if len(conflicts) > 0 {
		errs = append(errs, FieldError{Field: "input_units", Message: fmt.Sprintf("conflicting units %v", conflicts)})
	}
	if len(unknown) > 0 {
		errs = append(errs, FieldError{Field: "input_units", Message: fmt.Sprintf("unknown units %v", unknown)})
	}
	return errs
}

func validateSource(s *Source) []FieldError {
	var errs []FieldError
	if s.Particle != "gamma" {
		errs = append(errs, FieldError{Field: "source.particle", Message: fmt.Sprintf("unsupported particle %q, only gamma is transported", s.Particle)})
	}
	if !(s.Energy > 0) {
		errs = append(errs, FieldError{Field: "source.energy", Message: "must be positive"})
	}
	errs = append(errs, checkVector("source.position", s.Position, false)...)
	errs = append(errs, checkVector("source.direction", s.Direction, true)...)
	if s.Radius < 0 {
		errs = append(errs, FieldError{Field: "source.radius", Message: "must be non-negative"})
	}
	return errs
}

func validateVolumes(volumes []VolumeParameters) []FieldError {
	var errs []FieldError
	if len(volumes) == 0 {
		return append(errs, FieldError{Field: "volumes", Message: "at least a world volume is required"})
	}
	seen := map[string]struct{}{}
	worlds := 0
	for i, v := range volumes {
		prefix := fmt.Sprintf("volumes[%d]", i)
		if v.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: "name is required"})
		} else if _, dup := seen[v.Name]; dup {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate volume %q", v.Name)})
		}
		if v.Mother == "" {
			worlds++
		} else if _, ok := seen[v.Mother]; !ok {
			errs = append(errs, FieldError{Field: prefix + ".mother", Message: fmt.Sprintf("mother %q must be declared before %q", v.Mother, v.Name)})
		}
		seen[v.Name] = struct{}{}

		errs = append(errs, checkVector(prefix+".center", v.Center, false)...)
		if len(v.HalfSize) != 3 {
			errs = append(errs, FieldError{Field: prefix + ".half_size", Message: "must have 3 components"})
		} else if slices.ContainsFunc(v.HalfSize, func(h float64) bool { return !(h > 0) }) {
			errs = append(errs, FieldError{Field: prefix + ".half_size", Message: "components must be positive"})
		}
		if len(v.Rotation) != 0 {
			errs = append(errs, checkVector(prefix+".rotation", v.Rotation, false)...)
		}
		if v.Attenuation < 0 {
			errs = append(errs, FieldError{Field: prefix + ".attenuation", Message: "must be non-negative"})
		}
		if cf := v.ComptonFractionOrDefault(); cf < 0 || cf > 1 {
			errs = append(errs, FieldError{Field: prefix + ".compton_fraction", Message: "must be within [0, 1]"})
		}
	}
	if worlds != 1 {
		errs = append(errs, FieldError{Field: "volumes", Message: fmt.Sprintf("exactly one volume without mother expected, found %d", worlds)})
	}
	return errs
}

// ValidateSplitting checks the biasing parameters on their own, so the same
// rules apply to parameters built in code.
func ValidateSplitting(s *Splitting) []FieldError {
	var errs []FieldError
	if s.Mother == "" {
		errs = append(errs, FieldError{Field: "splitting.mother", Message: "target volume is required"})
	}
	if s.SplittingFactor < 1 {
		errs = append(errs, FieldError{Field: "splitting.splitting_factor", Message: "must be a positive integer"})
	}
	errs = append(errs, checkVector("splitting.vector_director", s.VectorDirector, true)...)
	if !(s.MaxTheta >= 0 && s.MaxTheta <= math.Pi) {
		errs = append(errs, FieldError{Field: "splitting.max_theta", Message: "must be within [0, pi] rad"})
	}
	if !(s.MinWeightOfParticle >= 0) {
		errs = append(errs, FieldError{Field: "splitting.min_weight_of_particle", Message: "must be non-negative"})
	}
	return errs
}

func validateHits(h *Hits) []FieldError {
	var errs []FieldError
	if h.Volume == "" {
		return nil
	}
	if len(h.Attributes) == 0 {
		errs = append(errs, FieldError{Field: "hits.attributes", Message: "at least one attribute is required"})
	}
	for i, name := range h.Attributes {
		if !hits.IsBuiltin(name) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("hits.attributes[%d]", i), Message: fmt.Sprintf("unknown attribute %q", name)})
		}
	}
	if !slices.Contains([]string{"csv", "sqlite"}, h.Format) {
		errs = append(errs, FieldError{Field: "hits.format", Message: fmt.Sprintf("unsupported format %q", h.Format)})
	}
	return errs
}

func checkVector(field string, v []float64, direction bool) []FieldError {
	if len(v) != 3 {
		return []FieldError{{Field: field, Message: "must have 3 components"}}
	}
	norm := 0.
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return []FieldError{{Field: field, Message: "components must be finite"}}
		}
		norm += c * c
	}
	if direction && norm == 0 {
		return []FieldError{{Field: field, Message: "must not be the zero vector"}}
	}
	return nil
}
