package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wildstyl3r/comptsplit/internal/geometry"
)

type Config struct {
	OutputDir  string   `toml:"output_dir" yaml:"output_dir"`
	MakeDir    bool     `toml:"make_dir" yaml:"make_dir"`
	Threads    int      `toml:"threads" yaml:"threads"`
	Seed       int64    `toml:"seed" yaml:"seed"`
	Runs       int      `toml:"runs" yaml:"runs"`
	Events     int      `toml:"events" yaml:"events"` // per run
	Verbose    bool     `toml:"verbose" yaml:"verbose"`
	EnergyCut  float64  `toml:"energy_cut" yaml:"energy_cut"` // [MeV]
	InputUnits []string `toml:"input_units" yaml:"input_units"`

	Source    Source             `toml:"source" yaml:"source"`
	Volumes   []VolumeParameters `toml:"volumes" yaml:"volumes"`
	Splitting Splitting          `toml:"splitting" yaml:"splitting"`
	Hits      Hits               `toml:"hits" yaml:"hits"`

	defined map[string]struct{}
}

type Source struct {
	Particle  string    `toml:"particle" yaml:"particle"`
	Energy    float64   `toml:"energy" yaml:"energy"`       // [MeV]
	Position  []float64 `toml:"position" yaml:"position"`   // [mm]
	Direction []float64 `toml:"direction" yaml:"direction"` // unit vector
	Radius    float64   `toml:"radius" yaml:"radius"`       // [mm] beam radius around Position
}

type VolumeParameters struct {
	Name            string    `toml:"name" yaml:"name"`
	Mother          string    `toml:"mother" yaml:"mother"`
	Center          []float64 `toml:"center" yaml:"center"`             // [mm]
	HalfSize        []float64 `toml:"half_size" yaml:"half_size"`       // [mm]
	Rotation        []float64 `toml:"rotation" yaml:"rotation"`         // [rad] about x, y, z
	Attenuation     float64   `toml:"attenuation" yaml:"attenuation"`   // [mm^-1]
	ComptonFraction *float64  `toml:"compton_fraction" yaml:"compton_fraction"`
}

// ComptonFractionOrDefault treats a missing fraction as pure Compton scattering.
func (v VolumeParameters) ComptonFractionOrDefault() float64 {
	if v.ComptonFraction == nil {
		return 1
	}
	return *v.ComptonFraction
}

// Splitting holds the user parameters of the Compton splitting actor.
type Splitting struct {
	Mother                 string    `toml:"mother" yaml:"mother"`
	SplittingFactor        int       `toml:"splitting_factor" yaml:"splitting_factor"`
	RotationVectorDirector bool      `toml:"rotation_vector_director" yaml:"rotation_vector_director"`
	BiasPrimaryOnly        bool      `toml:"bias_primary_only" yaml:"bias_primary_only"`
	BiasOnlyOnce           bool      `toml:"bias_only_once" yaml:"bias_only_once"`
	RussianRoulette        bool      `toml:"russian_roulette" yaml:"russian_roulette"`
	VectorDirector         []float64 `toml:"vector_director" yaml:"vector_director"`
	MaxTheta               float64   `toml:"max_theta" yaml:"max_theta"` // [rad]
	MinWeightOfParticle    float64   `toml:"min_weight_of_particle" yaml:"min_weight_of_particle"`
}

type Hits struct {
	Volume     string   `toml:"volume" yaml:"volume"`
	Attributes []string `toml:"attributes" yaml:"attributes"`
	Format     string   `toml:"format" yaml:"format"`
	File       string   `toml:"file" yaml:"file"`
}

// values are in internal units
var defaultValues = map[string]func(*Config){
	"make_dir":                    func(c *Config) { c.MakeDir = true },
	"threads":                     func(c *Config) { c.Threads = runtime.NumCPU() },
	"runs":                        func(c *Config) { c.Runs = 1 },
	"events":                      func(c *Config) { c.Events = 1000 },
	"energy_cut":                  func(c *Config) { c.EnergyCut = 1e-3 },
	"source.particle":             func(c *Config) { c.Source.Particle = "gamma" },
	"source.position":             func(c *Config) { c.Source.Position = []float64{0, 0, 0} },
	"source.direction":            func(c *Config) { c.Source.Direction = []float64{0, 0, 1} },
	"splitting.splitting_factor":  func(c *Config) { c.Splitting.SplittingFactor = 1 },
	"splitting.bias_primary_only": func(c *Config) { c.Splitting.BiasPrimaryOnly = true },
	"splitting.bias_only_once":    func(c *Config) { c.Splitting.BiasOnlyOnce = true },
	"splitting.vector_director":   func(c *Config) { c.Splitting.VectorDirector = []float64{0, 0, 1} },
	"splitting.max_theta":         func(c *Config) { c.Splitting.MaxTheta = math.Pi / 2 },
	"hits.format":                 func(c *Config) { c.Hits.Format = "csv" },
	"hits.file":                   func(c *Config) { c.Hits.File = "hits" },
}

var valueUnits = map[string][]UnitElement{
	"energy_cut":          {{Class: Energy, Power: 1}},
	"source.energy":       {{Class: Energy, Power: 1}},
	"source.position":     {{Class: Length, Power: 1}},
	"source.radius":       {{Class: Length, Power: 1}},
	"volumes.center":      {{Class: Length, Power: 1}},
	"volumes.half_size":   {{Class: Length, Power: 1}},
	"volumes.rotation":    {{Class: Angle, Power: 1}},
	"volumes.attenuation": {{Class: Length, Power: -1}},
	"splitting.max_theta": {{Class: Angle, Power: 1}},
}

// Load reads a TOML or YAML configuration, converts it to internal units,
// fills defaults for keys the file leaves out and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	units, _, _ := checkUnits(cfg.InputUnits)
	cfg.toSI(units)
	cfg.applyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	cfg.defined = map[string]struct{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		for _, key := range meta.Keys() {
			cfg.defined[key.String()] = struct{}{}
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("decode %s: unknown keys %v", path, undecoded)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		collectKeys("", raw, cfg.defined)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func collectKeys(prefix string, m map[string]any, into map[string]struct{}) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		into[path] = struct{}{}
		if nested, ok := v.(map[string]any); ok {
			collectKeys(path, nested, into)
		}
	}
}

func (c *Config) IsDefined(path string) bool {
	_, ok := c.defined[path]
	return ok
}

func (c *Config) applyDefaults() {
	for path, set := range defaultValues {
		if !c.IsDefined(path) {
			set(c)
		}
	}
}

func (c *Config) toSI(units []string) {
	c.InputUnits = units
	scale := func(path string, values ...*float64) {
		for _, v := range values {
			*v = SI(*v, valueUnits[path], units, true)
		}
	}
	scaleSlice := func(path string, values []float64) {
		for i := range values {
			values[i] = SI(values[i], valueUnits[path], units, true)
		}
	}
	scale("energy_cut", &c.EnergyCut)
	scale("source.energy", &c.Source.Energy)
	scaleSlice("source.position", c.Source.Position)
	scale("source.radius", &c.Source.Radius)
	scale("splitting.max_theta", &c.Splitting.MaxTheta)
	for i := range c.Volumes {
		v := &c.Volumes[i]
		scaleSlice("volumes.center", v.Center)
		scaleSlice("volumes.half_size", v.HalfSize)
		scaleSlice("volumes.rotation", v.Rotation)
		scale("volumes.attenuation", &v.Attenuation)
	}
}

// BuildGeometry turns the volume list into a geometry store.
func (c *Config) BuildGeometry() (*geometry.Store, error) {
	store := geometry.NewStore()
	for _, p := range c.Volumes {
		center, _ := geometry.FromSlice(p.Center)
		half, _ := geometry.FromSlice(p.HalfSize)
		var rot geometry.Rot3
		if r, ok := geometry.FromSlice(p.Rotation); ok {
			rot = geometry.Rot3{X: r.X, Y: r.Y, Z: r.Z}
		}
		v := geometry.NewVolume(p.Name, p.Mother, center, half, rot)
		v.Attenuation = p.Attenuation
		v.ComptonFraction = p.ComptonFractionOrDefault()
		if err := store.Add(v); err != nil {
			return nil, fmt.Errorf("build geometry: %w", err)
		}
	}
	return store, nil
}
