// Package config loads the votemap.toml source registry.
//
// The file has three parts: [schema] with the zone-name property priority,
// [transform] with pipeline defaults, and one [[departments]] table per
// department listing its input files. Relative paths are resolved against
// the directory of the configuration file.
//
//	[schema]
//	zone_keys = ["BARRIO", "texto", "zona", "name"]
//
//	[transform]
//	size_limit = 3145728
//	tolerance = 0.0005
//	method = "jenks"
//
//	[[departments]]
//	code = "montevideo"
//	name = "Montevideo"
//	odn = "raw/montevideo/odn.csv"
//	odd = "raw/montevideo/odd.csv"
//	geojson = "raw/montevideo/barrios.geojson"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// DefaultFile is the configuration file name looked up in the working
// directory.
const DefaultFile = "votemap.toml"

// Config is a parsed votemap.toml.
type Config struct {
	Schema      Schema       `toml:"schema"`
	Transform   Transform    `toml:"transform"`
	Departments []Department `toml:"departments"`

	// Path is the file the configuration was loaded from.
	Path string `toml:"-"`
}

// Schema describes how zone identity is read from boundary files.
type Schema struct {
	// ZoneKeys is the property-key priority for zone names.
	ZoneKeys []string `toml:"zone_keys"`
	// SeriesKeys is the property-key priority for electoral series codes.
	SeriesKeys []string `toml:"series_keys"`
}

// Transform holds pipeline defaults. Zero values leave the pipeline's own
// defaults in place; a negative precision keeps full precision and a
// negative tolerance disables simplification.
type Transform struct {
	Precision  int     `toml:"precision"`
	Tolerance  float64 `toml:"tolerance"`
	SizeLimit  int     `toml:"size_limit"`
	MinOverlap float64 `toml:"min_overlap"`
	Strategy   string  `toml:"strategy"`
	Classes    int     `toml:"classes"`
	Method     string  `toml:"method"`
	Workers    int     `toml:"workers"`
	Output     string  `toml:"output"`
}

// Department is one registry entry.
type Department struct {
	Code string `toml:"code"`
	Name string `toml:"name"`

	ODN     string `toml:"odn"`
	ODD     string `toml:"odd"`
	GeoJSON string `toml:"geojson"`

	// SeriesGeoJSON holds electoral polygons named by series code.
	SeriesGeoJSON string `toml:"series_geojson"`
	// Lookup is a CSV relating CSV zones to series. When empty and
	// SeriesGeoJSON is set, the ODN file itself is used.
	Lookup     string `toml:"lookup"`
	LookupFrom string `toml:"lookup_from"`
	LookupTo   string `toml:"lookup_to"`

	// ZoneKeys overrides Schema.ZoneKeys for this department.
	ZoneKeys []string `toml:"zone_keys"`
	// MinOverlap overrides Transform.MinOverlap for this department.
	MinOverlap float64 `toml:"min_overlap"`

	// URLs records where the raw files were downloaded from.
	URLs map[string]string `toml:"urls"`
}

// Default lookup columns.
const (
	DefaultLookupFrom = "ZONA"
	DefaultLookupTo   = "SERIES"
)

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.Wrap(verrors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, verrors.Wrap(verrors.ErrCodeIO, err, "read config %s", path)
	}
	cfg, err := Parse(string(data), filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes a configuration document. Relative input paths are resolved
// against dir.
func Parse(data, dir string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, verrors.New(verrors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	for i := range cfg.Departments {
		cfg.Departments[i].Resolve(dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve makes relative input paths absolute against dir and fills the
// lookup defaults. A series boundary file without a lookup reads the chain
// from the ODN file itself.
func (d *Department) Resolve(dir string) {
	for _, p := range []*string{&d.ODN, &d.ODD, &d.GeoJSON, &d.SeriesGeoJSON, &d.Lookup} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if d.SeriesGeoJSON != "" && d.Lookup == "" {
		d.Lookup = d.ODN
	}
	if d.LookupFrom == "" {
		d.LookupFrom = DefaultLookupFrom
	}
	if d.LookupTo == "" {
		d.LookupTo = DefaultLookupTo
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Transform.MinOverlap < 0 || c.Transform.MinOverlap > 1 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "transform.min_overlap must be within [0, 1]")
	}
	if c.Transform.SizeLimit < 0 || c.Transform.Classes < 0 || c.Transform.Workers < 0 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "transform values cannot be negative")
	}
	seen := make(map[string]bool, len(c.Departments))
	for i, d := range c.Departments {
		if err := verrors.ValidateDepartmentCode(d.Code); err != nil {
			return fmt.Errorf("departments[%d]: %w", i, err)
		}
		if seen[d.Code] {
			return verrors.New(verrors.ErrCodeInvalidConfig, "department %s listed twice", d.Code)
		}
		seen[d.Code] = true
		if d.ODN == "" {
			return verrors.New(verrors.ErrCodeInvalidConfig, "department %s: odn is required", d.Code)
		}
		for _, p := range []string{d.ODN, d.ODD, d.GeoJSON, d.SeriesGeoJSON, d.Lookup} {
			if p == "" {
				continue
			}
			if err := verrors.ValidatePath(p); err != nil {
				return fmt.Errorf("department %s: %w", d.Code, err)
			}
		}
		if d.MinOverlap < 0 || d.MinOverlap > 1 {
			return verrors.New(verrors.ErrCodeInvalidConfig, "department %s: min_overlap must be within [0, 1]", d.Code)
		}
	}
	return nil
}

// Department returns the entry for code.
func (c *Config) Department(code string) (Department, bool) {
	for _, d := range c.Departments {
		if d.Code == code {
			return d, true
		}
	}
	return Department{}, false
}

// Select returns the entries named by codes, in the given order. No codes
// selects every department.
func (c *Config) Select(codes []string) ([]Department, error) {
	if len(codes) == 0 {
		return c.Departments, nil
	}
	out := make([]Department, 0, len(codes))
	for _, code := range codes {
		d, ok := c.Department(code)
		if !ok {
			return nil, verrors.New(verrors.ErrCodeInvalidConfig, "unknown department %q", code)
		}
		out = append(out, d)
	}
	return out, nil
}

// DisplayName returns Name, or Code when no name is configured.
func (d Department) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Code
}

// EffectiveZoneKeys returns the department's zone keys, or fallback when
// none are configured.
func (d Department) EffectiveZoneKeys(fallback []string) []string {
	if len(d.ZoneKeys) > 0 {
		return d.ZoneKeys
	}
	return fallback
}

// EffectiveMinOverlap returns the department's threshold, or fallback when
// none is configured.
func (d Department) EffectiveMinOverlap(fallback float64) float64 {
	if d.MinOverlap > 0 {
		return d.MinOverlap
	}
	return fallback
}
