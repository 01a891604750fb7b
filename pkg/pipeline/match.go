package pipeline

import (
	"context"

	"github.com/matzehuels/votemap/pkg/config"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/match"
	"github.com/matzehuels/votemap/pkg/report"
)

// MatchResult is the outcome of [Runner.Match].
type MatchResult struct {
	Mapping  *match.Mapping
	Warnings []report.Warning
	// GeometryHit is true when the boundary file came from the cache.
	GeometryHit bool
}

// Match runs the aggregate, geometry and match stages of dept without
// publishing anything. It is the entry point of the match command, so
// ad-hoc matching follows the same policy as a full transform.
func (r *Runner) Match(ctx context.Context, dept config.Department, opts Options) (*MatchResult, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if dept.GeoJSON == "" {
		return nil, verrors.New(verrors.ErrCodeInvalidInput, "department %s has no boundary file", dept.Code)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tally, err := aggregateFile(dept.ODN)
	if err != nil {
		return nil, err
	}
	geometry, err := r.geometry(ctx, dept, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mapping, err := matchZones(dept, opts, tally.Table.ZoneList(), geometry.collection)
	if err != nil {
		return nil, err
	}

	ws := append([]report.Warning(nil), tally.Warnings...)
	ws = append(ws, geometry.warnings(dept, opts)...)
	ws = append(ws, mapping.warnings()...)
	return &MatchResult{Mapping: mapping.mapping, Warnings: ws, GeometryHit: geometry.hit}, nil
}
