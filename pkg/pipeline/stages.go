package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/votemap/pkg/classify"
	"github.com/matzehuels/votemap/pkg/config"
	"github.com/matzehuels/votemap/pkg/geo"
	"github.com/matzehuels/votemap/pkg/geo/simplify"
	"github.com/matzehuels/votemap/pkg/match"
	"github.com/matzehuels/votemap/pkg/report"
	"github.com/matzehuels/votemap/pkg/votes"
)

// maxListed bounds how many zone names a warning message spells out.
const maxListed = 10

// =============================================================================
// Aggregate
// =============================================================================

type voteOutput struct {
	odn      *votes.Result
	odd      *votes.Result // nil without an ODD file
	docs     []*votes.Document
	warnings []report.Warning
}

func aggregate(dept config.Department, now time.Time) (*voteOutput, error) {
	out := &voteOutput{}
	var err error
	if out.odn, err = aggregateFile(dept.ODN); err != nil {
		return nil, err
	}
	out.warnings = append(out.warnings, out.odn.Warnings...)
	out.docs = append(out.docs, votes.NewDocument(dept.Code, votes.BallotODN, out.odn.Table, out.odn.Stats, now))

	if dept.ODD != "" {
		if out.odd, err = aggregateFile(dept.ODD); err != nil {
			return nil, err
		}
		out.warnings = append(out.warnings, out.odd.Warnings...)
		out.docs = append(out.docs, votes.NewDocument(dept.Code, votes.BallotODD, out.odd.Table, out.odd.Stats, now))
	}
	return out, nil
}

func aggregateFile(path string) (*votes.Result, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return votes.Aggregate(bytes.NewReader(data), filepath.Base(path))
}

// =============================================================================
// Geometry
// =============================================================================

// geometryEntry is the cached result of the geometry stage.
type geometryEntry struct {
	Map            json.RawMessage `json:"map"`
	Simplify       *simplify.Stats `json:"simplify,omitempty"`
	NullGeometries int             `json:"null_geometries"`
}

type geometryOutput struct {
	entry      geometryEntry
	collection *geo.Collection
	data       []byte
	hit        bool
}

func normalizeGeometry(raw []byte, department string, zoneKeys []string, opts Options) (*geometryOutput, error) {
	c, err := geo.Parse(raw, department, geo.Options{ZoneKeys: zoneKeys, Precision: opts.Precision})
	if err != nil {
		return nil, err
	}
	data, err := c.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode map: %w", err)
	}

	out := &geometryOutput{collection: c, data: data}
	if len(data) > opts.SizeLimit && opts.Tolerance > 0 {
		simplified, stats, err := simplify.Collection(c, opts.Tolerance)
		if err != nil {
			return nil, err
		}
		if data, err = simplified.MarshalJSON(); err != nil {
			return nil, fmt.Errorf("encode map: %w", err)
		}
		opts.Logger.Info("simplified map",
			"department", department,
			"vertices_before", stats.VerticesBefore,
			"vertices_after", stats.VerticesAfter,
			"bytes_before", stats.BytesBefore,
			"bytes_after", stats.BytesAfter)
		out.collection, out.data = simplified, data
		out.entry.Simplify = &stats
	}
	out.entry.Map = out.data
	out.entry.NullGeometries = c.NullGeometries
	return out, nil
}

func decodeGeometry(data []byte) (*geometryOutput, error) {
	var entry geometryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	c, err := geo.ReadMap(entry.Map)
	if err != nil {
		return nil, err
	}
	c.NullGeometries = entry.NullGeometries
	return &geometryOutput{entry: entry, collection: c, data: entry.Map}, nil
}

func (g *geometryOutput) warnings(dept config.Department, opts Options) []report.Warning {
	source := filepath.Base(dept.GeoJSON)
	var ws []report.Warning
	if n := g.collection.Unnamed(); n > 0 {
		ws = append(ws, report.DataQuality(report.CodeMissingZoneName, source, 0,
			"%d of %d features have no zone name under keys %s", n, len(g.collection.Features), strings.Join(dept.EffectiveZoneKeys(opts.ZoneKeys), ", ")))
	}
	if len(g.data) > opts.SizeLimit {
		msg := "map is %d bytes, above the %d byte limit"
		if g.entry.Simplify != nil {
			msg += fmt.Sprintf(" after simplifying at tolerance %g; rerun with a higher tolerance", g.entry.Simplify.Tolerance)
		}
		ws = append(ws, report.SizePolicy(mapFileOf(dept.Code), msg, len(g.data), opts.SizeLimit))
	}
	return ws
}

// =============================================================================
// Match
// =============================================================================

type mappingOutput struct {
	mapping *match.Mapping
	lookup  []report.Warning
}

func matchZones(dept config.Department, opts Options, csvZones []string, c *geo.Collection) (*mappingOutput, error) {
	m, err := match.New(opts.MatchOptions(dept.EffectiveMinOverlap(opts.MinOverlap)))
	if err != nil {
		return nil, err
	}

	in := match.Input{CSV: csvZones}
	for _, f := range c.Features {
		in.Geo = append(in.Geo, match.Zone{Name: f.Zone, Geometry: f.Geometry})
	}

	out := &mappingOutput{}
	if dept.SeriesGeoJSON != "" {
		raw, err := readInput(dept.SeriesGeoJSON)
		if err != nil {
			return nil, err
		}
		series, err := geo.Parse(raw, dept.Code, geo.Options{ZoneKeys: opts.SeriesKeys, Precision: opts.Precision})
		if err != nil {
			return nil, fmt.Errorf("series geometry: %w", err)
		}
		for _, f := range series.Features {
			if f.Zone != "" {
				in.Electoral = append(in.Electoral, match.Zone{Name: f.Zone, Geometry: f.Geometry})
			}
		}
	}
	if dept.Lookup != "" {
		data, err := readInput(dept.Lookup)
		if err != nil {
			return nil, err
		}
		l, err := votes.ReadLookup(bytes.NewReader(data), filepath.Base(dept.Lookup), dept.LookupFrom, dept.LookupTo)
		if err != nil {
			return nil, err
		}
		in.Chain = l.Map()
		out.lookup = l.Warnings
	}

	out.mapping = m.Match(in)
	return out, nil
}

func (m *mappingOutput) warnings() []report.Warning {
	ws := append([]report.Warning(nil), m.lookup...)
	mp := m.mapping
	if n := len(mp.UnmatchedCSV); n > 0 {
		ws = append(ws, report.DataQuality(report.CodeUnmatchedZones, "", 0,
			"%d of %d CSV zones have no polygon: %s", n, mp.CSVZones, listNames(mp.UnmatchedCSV)))
	}
	if n := len(mp.UnmatchedGeo); n > 0 {
		ws = append(ws, report.DataQuality(report.CodeUnmatchedZones, "", 0,
			"%d of %d polygon names have no CSV zone: %s", n, mp.GeoZones, listNames(mp.UnmatchedGeo)))
	}
	for _, u := range mp.UnresolvedChains {
		ws = append(ws, report.DataQuality(report.CodeUnresolvedChain, "", 0, "zone %s: %s", u.Zone, u.Reason))
	}
	return ws
}

func listNames(names []string) string {
	quoted := make([]string, 0, maxListed)
	for i, n := range names {
		if i == maxListed {
			quoted = append(quoted, fmt.Sprintf("and %d more", len(names)-maxListed))
			break
		}
		quoted = append(quoted, fmt.Sprintf("%q", n))
	}
	return strings.Join(quoted, ", ")
}

// =============================================================================
// Classify
// =============================================================================

// classifyDocuments attaches per-list breaks to every document. Lists
// without positive votes get no breaks.
func classifyDocuments(opts Options, docs ...*votes.Document) []report.Warning {
	var ws []report.Warning
	for _, doc := range docs {
		cl := &votes.Classification{
			Method:  string(opts.Method),
			Classes: opts.Classes,
			Breaks:  votes.NewOrderedMap[[]float64](),
		}
		var empty []string
		for _, list := range doc.VotosPorListas.Keys() {
			values, _ := doc.ZoneValues(list)
			breaks, err := classify.Breaks(values, opts.Classes, opts.Method)
			if errors.Is(err, classify.ErrNoData) {
				empty = append(empty, list)
				continue
			}
			if err != nil {
				ws = append(ws, report.DataQuality(report.CodeNoClassification, string(doc.Ballot)+".json", 0, "list %s: %v", list, err))
				continue
			}
			cl.Breaks.Set(list, breaks)
		}
		if len(empty) > 0 {
			ws = append(ws, report.DataQuality(report.CodeNoClassification, string(doc.Ballot)+".json", 0,
				"%d lists have no positive votes and no breaks: %s", len(empty), listNames(empty)))
		}
		doc.Classification = cl
	}
	return ws
}
