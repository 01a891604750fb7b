package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/votemap/pkg/artifact"
	"github.com/matzehuels/votemap/pkg/cache"
	"github.com/matzehuels/votemap/pkg/config"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/observability"
	"github.com/matzehuels/votemap/pkg/report"
)

// Stage names used in reports and observability hooks.
const (
	StageAggregate = "aggregate"
	StageGeometry  = "geometry"
	StageMatch     = "match"
	StageClassify  = "classify"
	StageWrite     = "write"
)

// TTLGeometry is how long a geometry stage result stays cached.
const TTLGeometry = 30 * 24 * time.Hour

// CacheScope prefixes geometry cache keys with the layout version of the
// cached entry. Change it whenever that layout changes.
const CacheScope = "geometry-v1:"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; it doesn't store
// pipeline results. Departments share nothing else, so the worker pool of
// [Runner.RunAll] calls Execute concurrently on one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer scoped with [CacheScope] is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), CacheScope)
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute transforms one department and publishes its artifacts.
//
// The returned Result always carries the department's report. A non-nil
// error means the department failed and nothing was published; the report
// then holds the error as well.
func (r *Runner) Execute(ctx context.Context, dept config.Department, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()

	rep := report.New(opts.RunID, dept.Code)
	rep.StartedAt = opts.Now().UTC()
	res := &Result{Department: dept, Report: rep}
	logger := opts.Logger.With("department", dept.Code)

	err := opts.Validate()
	if err == nil {
		err = r.execute(ctx, dept, opts, res, logger)
	}
	if err != nil {
		res.Artifacts = nil
		rep.Fail(err, string(verrors.GetCode(err)))
	}
	rep.Finish(opts.Now().UTC())
	observability.Pipeline().OnDepartmentComplete(ctx, dept.Code, string(rep.Status), len(rep.Warnings), rep.FinishedAt.Sub(rep.StartedAt))

	if err != nil {
		logger.Error("department failed", "error", err)
		return res, err
	}
	logger.Info("department done", "status", rep.Status, "warnings", len(rep.Warnings), "artifacts", len(res.Artifacts))
	return res, nil
}

func (r *Runner) execute(ctx context.Context, dept config.Department, opts Options, res *Result, logger *log.Logger) error {
	rep := res.Report
	var (
		tally    *voteOutput
		geometry *geometryOutput
		mapping  *mappingOutput
	)

	// Stage 1: Aggregate
	err := r.stage(ctx, rep, StageAggregate, func() (err error) {
		tally, err = aggregate(dept, opts.Now())
		return err
	})
	if err != nil {
		return err
	}
	rep.Warn(tally.warnings...)
	rep.SetStat("total_votes", tally.odn.Stats.TotalVotes)
	rep.SetStat("lists", tally.odn.Stats.UniqueLists)
	rep.SetStat("csv_zones", tally.odn.Stats.UniqueZones)
	logger.Debug("aggregated votes", "lists", tally.odn.Stats.UniqueLists, "zones", tally.odn.Stats.UniqueZones, "odd", tally.odd != nil)

	// Stage 2: Geometry
	if dept.GeoJSON != "" {
		err = r.stage(ctx, rep, StageGeometry, func() (err error) {
			geometry, err = r.geometry(ctx, dept, opts)
			return err
		})
		if err != nil {
			return err
		}
		rep.Warn(geometry.warnings(dept, opts)...)
		rep.SetStat("features", len(geometry.collection.Features))
		rep.SetStat("map_bytes", len(geometry.data))
		res.Simplify = geometry.entry.Simplify
		res.CacheInfo.GeometryHit = geometry.hit
		logger.Debug("normalized geometry", "features", len(geometry.collection.Features), "bytes", len(geometry.data), "cached", geometry.hit)

		// Stage 3: Match
		err = r.stage(ctx, rep, StageMatch, func() (err error) {
			mapping, err = matchZones(dept, opts, tally.odn.Table.ZoneList(), geometry.collection)
			return err
		})
		if err != nil {
			return err
		}
		rep.Warn(mapping.warnings()...)
		rep.SetStat("match_rate_percent", mapping.mapping.MatchRatePercent)
		res.Mapping = mapping.mapping
		logger.Debug("matched zones", "rate", mapping.mapping.MatchRatePercent, "unmatched_csv", len(mapping.mapping.UnmatchedCSV))
	} else {
		logger.Debug("no geography configured")
	}

	// Stage 4: Classify
	err = r.stage(ctx, rep, StageClassify, func() error {
		rep.Warn(classifyDocuments(opts, tally.docs...)...)
		return nil
	})
	if err != nil {
		return err
	}

	// Stage 5: Write
	return r.stage(ctx, rep, StageWrite, func() (err error) {
		res.Artifacts, err = publish(dept, opts, rep, tally, geometry, mapping)
		return err
	})
}

// stage runs fn between the observability hooks and records its duration.
// A cancelled context stops the run before the stage starts.
func (r *Runner) stage(ctx context.Context, rep *report.Report, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, rep.Department, name)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	rep.SetDuration(name, d)
	hooks.OnStageComplete(ctx, rep.Department, name, d, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// geometry loads the department's boundary file, going through the cache.
func (r *Runner) geometry(ctx context.Context, dept config.Department, opts Options) (*geometryOutput, error) {
	raw, err := readInput(dept.GeoJSON)
	if err != nil {
		return nil, err
	}
	zoneKeys := dept.EffectiveZoneKeys(opts.ZoneKeys)
	key := r.Keyer.GeometryKey(cache.Hash(raw), opts.GeometryKeyOpts(dept.Code, zoneKeys))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if out, err := decodeGeometry(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "geometry")
				out.hit = true
				return out, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "geometry")
	}

	out, err := normalizeGeometry(raw, dept.Code, zoneKeys, opts)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out.entry); err == nil {
		if err := r.Cache.Set(ctx, key, data, TTLGeometry); err != nil {
			r.Logger.Warn("cache write failed", "department", dept.Code, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "geometry", len(data))
		}
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.Wrap(verrors.ErrCodeFileNotFound, err, "input %s", filepath.Base(path))
		}
		return nil, verrors.Wrap(verrors.ErrCodeIO, err, "read %s", path)
	}
	return data, nil
}

func mapFileOf(department string) string {
	return artifact.MapFile(department)
}
