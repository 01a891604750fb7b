// Package pipeline provides the department transform pipeline for votemap.
//
// This package implements the complete aggregate → geometry → match →
// classify → write pipeline used by the CLI. Every entry point goes through
// the same [Runner], so a department transformed from the transform command
// and one re-matched from the match command follow the same policy.
//
// # Architecture
//
// A department run has five stages:
//
//  1. Aggregate: fold the ODN (and optional ODD) vote CSV into vote tables
//  2. Geometry: normalize the boundary file, simplifying it when the encoded
//     map exceeds the size limit
//  3. Match: reconcile CSV zone names with polygon names
//  4. Classify: compute choropleth breaks for every list
//  5. Write: stage all artifacts and publish them atomically
//
// Problems in the data never abort a run; they become warnings in the
// department's [report.Report]. Malformed input and I/O failures fail the
// department only, and [Runner.RunAll] carries on with its siblings.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Output: "out", Tolerance: 0.0005}
//	summary, err := runner.RunAll(ctx, cfg.Departments, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary.Succeeded, summary.Failed)
//
// Run a single department:
//
//	result, err := runner.Execute(ctx, dept, opts)
package pipeline

import (
	"io"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/votemap/pkg/cache"
	"github.com/matzehuels/votemap/pkg/classify"
	"github.com/matzehuels/votemap/pkg/config"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/geo"
	"github.com/matzehuels/votemap/pkg/geo/simplify"
	"github.com/matzehuels/votemap/pkg/match"
	"github.com/matzehuels/votemap/pkg/report"
)

// =============================================================================
// Default Values - Single Source of Truth for the CLI and the config file
// =============================================================================

const (
	// DefaultSizeLimit is the soft limit for the encoded map artifact.
	DefaultSizeLimit = 3 << 20

	// DefaultTolerance is the simplification tolerance in degrees (about 11 m).
	DefaultTolerance = 0.0001
	// NoSimplify disables simplification when used as Tolerance.
	NoSimplify = -1.0

	// DefaultOutput is the output root.
	DefaultOutput = "out"
)

// DefaultSeriesKeys is the property-key priority for series codes in
// electoral boundary files.
var DefaultSeriesKeys = []string{"serie", "SERIE", "series", "SERIES"}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a transform run.
type Options struct {
	// Output is the root directory of the artifact tree.
	Output string `json:"output"`

	// Geometry options
	ZoneKeys   []string `json:"zone_keys,omitempty"`
	SeriesKeys []string `json:"series_keys,omitempty"`
	// Precision is the number of decimals kept; negative keeps all.
	Precision  int      `json:"precision"`
	// Tolerance is the simplification tolerance in degrees; [NoSimplify]
	// (or any negative value) leaves oversized maps unsimplified.
	Tolerance  float64  `json:"tolerance"`
	SizeLimit  int      `json:"size_limit"`

	// Match options
	MinOverlap float64        `json:"min_overlap"`
	Strategy   match.Strategy `json:"strategy"`

	// Classification options
	Classes int             `json:"classes"`
	Method  classify.Method `json:"method"`

	// Workers bounds the number of departments transformed at once.
	Workers int `json:"workers"`

	// Refresh skips cache reads; results are still written to the cache.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger      `json:"-"`
	Now    func() time.Time `json:"-"`
	RunID  string           `json:"-"`
}

// FromConfig returns options seeded from a configuration file. Zero values
// in the file leave the defaults in place.
func FromConfig(cfg *config.Config) Options {
	t := cfg.Transform
	return Options{
		Output:     t.Output,
		ZoneKeys:   cfg.Schema.ZoneKeys,
		SeriesKeys: cfg.Schema.SeriesKeys,
		Precision:  t.Precision,
		Tolerance:  t.Tolerance,
		SizeLimit:  t.SizeLimit,
		MinOverlap: t.MinOverlap,
		Strategy:   match.Strategy(t.Strategy),
		Classes:    t.Classes,
		Method:     classify.Method(t.Method),
		Workers:    t.Workers,
	}
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Output == "" {
		o.Output = DefaultOutput
	}
	if len(o.ZoneKeys) == 0 {
		o.ZoneKeys = geo.DefaultZoneKeys
	}
	if len(o.SeriesKeys) == 0 {
		o.SeriesKeys = DefaultSeriesKeys
	}
	if o.Precision == 0 {
		o.Precision = geo.DefaultPrecision
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.SizeLimit == 0 {
		o.SizeLimit = DefaultSizeLimit
	}
	if o.MinOverlap == 0 {
		o.MinOverlap = match.DefaultMinOverlap
	}
	if o.Strategy == "" {
		o.Strategy = match.StrategyOverlap
	}
	if o.Classes == 0 {
		o.Classes = classify.DefaultClasses
	}
	if o.Method == "" {
		o.Method = classify.Jenks
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Validate checks option ranges and normalizes the method name. Call
// SetDefaults first.
func (o *Options) Validate() error {
	if math.IsNaN(o.Tolerance) {
		return verrors.New(verrors.ErrCodeInvalidConfig, "tolerance is not a number")
	}
	if o.SizeLimit < 0 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "size limit cannot be negative, got %d", o.SizeLimit)
	}
	if o.Precision > 15 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "precision must be at most 15 decimals, got %d", o.Precision)
	}
	if o.Classes < 1 || o.Classes > len(classify.DefaultPalette)-1 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "classes must be within [1, %d], got %d", len(classify.DefaultPalette)-1, o.Classes)
	}
	m, err := classify.ParseMethod(string(o.Method))
	if err != nil {
		return err
	}
	o.Method = m
	if o.Workers < 1 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "workers must be positive, got %d", o.Workers)
	}
	if err := verrors.ValidatePath(o.Output); err != nil {
		return err
	}
	mo := o.MatchOptions(0)
	return mo.Validate()
}

// MatchOptions returns matcher options. A positive override replaces
// MinOverlap, for departments configured with their own threshold.
func (o *Options) MatchOptions(override float64) match.Options {
	m := match.Options{
		MinOverlap: o.MinOverlap,
		Strategy:   o.Strategy,
		Logger:     o.Logger,
	}
	if override > 0 {
		m.MinOverlap = override
	}
	m.SetDefaults()
	return m
}

// GeometryKeyOpts returns cache key options for the geometry stage.
func (o *Options) GeometryKeyOpts(department string, zoneKeys []string) cache.GeometryKeyOpts {
	return cache.GeometryKeyOpts{
		Department: department,
		ZoneKeys:   zoneKeys,
		Precision:  o.Precision,
		Tolerance:  o.Tolerance,
		SizeLimit:  o.SizeLimit,
	}
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a department run.
type Result struct {
	Department config.Department

	// Report is always set, including for failed runs.
	Report *report.Report

	// Artifacts lists the published file names.
	Artifacts []string

	// Mapping is nil when the department has no geography.
	Mapping *match.Mapping

	// Simplify is set when the map was simplified.
	Simplify *simplify.Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GeometryHit bool
}

// HasMap reports whether a map artifact was published.
func (r *Result) HasMap() bool {
	for _, a := range r.Artifacts {
		if a == mapFileOf(r.Department.Code) {
			return true
		}
	}
	return false
}
