package pipeline

import (
	"path/filepath"
	"time"

	"github.com/matzehuels/votemap/pkg/artifact"
	"github.com/matzehuels/votemap/pkg/buildinfo"
	"github.com/matzehuels/votemap/pkg/config"
	"github.com/matzehuels/votemap/pkg/geo"
	"github.com/matzehuels/votemap/pkg/geo/simplify"
	"github.com/matzehuels/votemap/pkg/report"
	"github.com/matzehuels/votemap/pkg/votes"
)

// Metadata is the metadata.json artifact of a department.
type Metadata struct {
	Department  string            `json:"department"`
	Name        string            `json:"name"`
	RunID       string            `json:"runId"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Generator   string            `json:"generator"`
	Files       Files             `json:"files"`
	Sources     map[string]string `json:"sources"`
	URLs        map[string]string `json:"urls,omitempty"`
	Map         *geo.MapMetadata  `json:"map,omitempty"`
	Simplify    *simplify.Stats   `json:"simplify,omitempty"`
	MatchRate   *float64          `json:"matchRatePercent,omitempty"`
}

// Files flags which artifacts a department has.
type Files struct {
	ODN          bool `json:"odn"`
	ODD          bool `json:"odd"`
	Map          bool `json:"map"`
	ZoneMappings bool `json:"zoneMappings"`
}

// publish writes every artifact into a staging directory and swaps it into
// place. Nothing is published when any write fails.
func publish(dept config.Department, opts Options, rep *report.Report, tally *voteOutput, g *geometryOutput, m *mappingOutput) (files []string, err error) {
	stage, err := artifact.NewStage(opts.Output, dept.Code)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = stage.Abort()
		}
	}()

	meta := Metadata{
		Department:  dept.Code,
		Name:        dept.DisplayName(),
		RunID:       opts.RunID,
		GeneratedAt: opts.Now().UTC(),
		Generator:   buildinfo.Short(),
		Sources:     map[string]string{"odn": filepath.Base(dept.ODN)},
		URLs:        dept.URLs,
	}

	for _, doc := range tally.docs {
		name := artifact.FileODN
		if doc.Ballot == votes.BallotODD {
			name = artifact.FileODD
			meta.Files.ODD = true
			meta.Sources["odd"] = filepath.Base(dept.ODD)
		} else {
			meta.Files.ODN = true
		}
		if err := stage.WriteJSON(name, doc, false); err != nil {
			return nil, err
		}
	}

	if g != nil {
		if err := stage.Write(artifact.MapFile(dept.Code), g.data); err != nil {
			return nil, err
		}
		md := g.collection.Metadata()
		meta.Map = &md
		meta.Simplify = g.entry.Simplify
		meta.Files.Map = true
		meta.Sources["geojson"] = filepath.Base(dept.GeoJSON)
		if dept.SeriesGeoJSON != "" {
			meta.Sources["series_geojson"] = filepath.Base(dept.SeriesGeoJSON)
		}
	}
	if m != nil {
		if err := stage.WriteJSON(artifact.FileMappings, m.mapping, true); err != nil {
			return nil, err
		}
		rate := m.mapping.MatchRatePercent
		meta.MatchRate = &rate
		meta.Files.ZoneMappings = true
	}

	if err := stage.WriteJSON(artifact.FileMetadata, meta, true); err != nil {
		return nil, err
	}

	// The report is written last so it can list every other artifact.
	rep.SetStat("artifacts", append(stage.Files(), artifact.FileReport))
	rep.Finish(opts.Now().UTC())
	if err := stage.WriteJSON(artifact.FileReport, rep, true); err != nil {
		return nil, err
	}
	if err := stage.Commit(); err != nil {
		return nil, err
	}
	return stage.Files(), nil
}
