package match

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"

	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/geo"
)

// =============================================================================
// Options
// =============================================================================

// Strategy selects how electoral polygons are matched to named polygons.
type Strategy string

const (
	// StrategyOverlap picks the named polygon with the largest intersection area.
	StrategyOverlap Strategy = "overlap"
	// StrategyCentroid picks the named polygon containing the centroid.
	StrategyCentroid Strategy = "centroid"
)

// Defaults for [Options].
const (
	DefaultMinOverlap = 0.30
	DefaultCoverLevel = 18 // cells of roughly 40 m
	DefaultMaxCells   = 256
)

// Options configures a [Matcher].
type Options struct {
	// MinOverlap is the fraction of the smaller polygon an overlap must
	// cover to count as a match. Zero means DefaultMinOverlap.
	MinOverlap float64
	Strategy   Strategy
	// CoverLevel is the S2 level boundary cells are refined to.
	CoverLevel int
	// MaxCells bounds the number of cells of the initial ring covering.
	MaxCells int
	Logger   *log.Logger
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.MinOverlap == 0 {
		o.MinOverlap = DefaultMinOverlap
	}
	if o.Strategy == "" {
		o.Strategy = StrategyOverlap
	}
	if o.CoverLevel == 0 {
		o.CoverLevel = DefaultCoverLevel
	}
	if o.MaxCells == 0 {
		o.MaxCells = DefaultMaxCells
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option ranges.
func (o *Options) Validate() error {
	if o.MinOverlap < 0 || o.MinOverlap > 1 || math.IsNaN(o.MinOverlap) {
		return verrors.New(verrors.ErrCodeInvalidConfig, "min overlap must be within [0, 1], got %v", o.MinOverlap)
	}
	if o.Strategy != StrategyOverlap && o.Strategy != StrategyCentroid {
		return verrors.New(verrors.ErrCodeInvalidConfig, "unknown match strategy %q (want overlap or centroid)", o.Strategy)
	}
	if o.CoverLevel < 1 || o.CoverLevel > s2.MaxLevel {
		return verrors.New(verrors.ErrCodeInvalidConfig, "cover level must be within [1, %d], got %d", s2.MaxLevel, o.CoverLevel)
	}
	if o.MaxCells < 1 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "max cells must be positive, got %d", o.MaxCells)
	}
	return nil
}

// =============================================================================
// Input and Output
// =============================================================================

// Zone is a named geometry. Geometry may be nil for name-only zones.
type Zone struct {
	Name     string
	Geometry geom.T
}

// Names returns name-only zones.
func Names(names []string) []Zone {
	zones := make([]Zone, len(names))
	for i, n := range names {
		zones[i] = Zone{Name: n}
	}
	return zones
}

// Input holds both sides of a matching run.
type Input struct {
	// CSV is the zone list of the vote table.
	CSV []string
	// Geo are the named polygons. Repeated names are merged.
	Geo []Zone
	// Electoral are polygons named by electoral code: either a CSV zone
	// directly or an intermediate code reached through Chain.
	Electoral []Zone
	// Chain maps a CSV zone to an intermediate code, e.g. circuit to series.
	Chain map[string]string
}

// Method records how a match was found.
type Method string

const (
	MethodExact   Method = "exact"
	MethodSpatial Method = "spatial"
	MethodChain   Method = "chain"
)

// Match is one CSV zone resolved to a polygon name.
type Match struct {
	CSV    string `json:"csv"`
	Geo    string `json:"geo"`
	Method Method `json:"method"`
	// Overlap is the fraction of the smaller polygon covered (spatial only).
	Overlap float64 `json:"overlap,omitempty"`
	// Via is the intermediate code of a chained match.
	Via string `json:"via,omitempty"`
	// Geohash locates the electoral polygon used for a spatial match.
	Geohash string `json:"geohash,omitempty"`
}

// UnresolvedChain is a CSV zone whose chain led nowhere.
type UnresolvedChain struct {
	Zone   string `json:"zone"`
	Via    string `json:"via,omitempty"`
	Reason string `json:"reason"`
}

// Mapping is the result of a matching run.
type Mapping struct {
	CSVToGeo         map[string]string   `json:"csv_to_geo"`
	GeoToCSV         map[string][]string `json:"geo_to_csv"`
	Matches          []Match             `json:"matches"`
	UnmatchedCSV     []string            `json:"unmatched_csv"`
	UnmatchedGeo     []string            `json:"unmatched_geo"`
	UnresolvedChains []UnresolvedChain   `json:"unresolved_chains"`
	CSVZones         int                 `json:"csv_zones"`
	GeoZones         int                 `json:"geo_zones"`
	// MatchRate is matched CSV zones over all CSV zones.
	MatchRate        float64 `json:"match_rate"`
	MatchRatePercent float64 `json:"match_rate_percent"`
}

// Matched returns the number of matched CSV zones.
func (m *Mapping) Matched() int { return len(m.CSVToGeo) }

// =============================================================================
// Matcher
// =============================================================================

// Matcher applies one matching policy. It is safe for concurrent use.
type Matcher struct {
	opts Options
	rc   *s2.RegionCoverer
}

// New returns a Matcher for opts.
func New(opts Options) (*Matcher, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		opts: opts,
		rc: &s2.RegionCoverer{
			MinLevel: 0,
			MaxLevel: opts.CoverLevel,
			LevelMod: 1,
			MaxCells: opts.MaxCells,
		},
	}, nil
}

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Match reconciles in.CSV against the names of in.Geo. See the package
// documentation for the phases.
func (m *Matcher) Match(in Input) *Mapping {
	r := newRun(m, in)

	csv := distinct(in.CSV)
	var residual []string
	for _, z := range csv {
		if r.geoSet[z] {
			r.add(Match{CSV: z, Geo: z, Method: MethodExact})
			continue
		}
		residual = append(residual, z)
	}
	if len(r.electoral) > 0 {
		residual = r.spatial(residual)
	}
	if in.Chain != nil {
		residual = r.chain(residual, in.Chain)
	}

	out := r.out
	out.CSVZones = len(csv)
	out.GeoZones = len(r.geoNames)
	out.UnmatchedCSV = append(out.UnmatchedCSV, residual...)
	for _, g := range r.geoNames {
		if _, ok := out.GeoToCSV[g]; !ok {
			out.UnmatchedGeo = append(out.UnmatchedGeo, g)
		}
	}
	if out.CSVZones > 0 {
		out.MatchRate = float64(len(out.CSVToGeo)) / float64(out.CSVZones)
		out.MatchRatePercent = math.Round(out.MatchRate*10000) / 100
	}
	m.opts.Logger.Debug("zones matched",
		"csv", out.CSVZones, "geo", out.GeoZones, "matched", len(out.CSVToGeo),
		"unmatched_csv", len(out.UnmatchedCSV), "unmatched_geo", len(out.UnmatchedGeo))
	return out
}

// run is the state of one Match call.
type run struct {
	m         *Matcher
	out       *Mapping
	geoNames  []string
	geoSet    map[string]bool
	geoGeoms  map[string][]geom.T
	electoral map[string][]geom.T

	named    []*shape
	built    bool
	resolved map[string]resolution
}

type resolution struct {
	geo     string
	overlap float64
	geohash string
	reason  string
}

func newRun(m *Matcher, in Input) *run {
	r := &run{
		m: m,
		out: &Mapping{
			CSVToGeo:         map[string]string{},
			GeoToCSV:         map[string][]string{},
			Matches:          []Match{},
			UnmatchedCSV:     []string{},
			UnmatchedGeo:     []string{},
			UnresolvedChains: []UnresolvedChain{},
		},
		geoSet:    map[string]bool{},
		geoGeoms:  map[string][]geom.T{},
		electoral: map[string][]geom.T{},
		resolved:  map[string]resolution{},
	}
	for _, z := range in.Geo {
		if z.Name == "" {
			continue
		}
		if !r.geoSet[z.Name] {
			r.geoSet[z.Name] = true
			r.geoNames = append(r.geoNames, z.Name)
		}
		if z.Geometry != nil {
			r.geoGeoms[z.Name] = append(r.geoGeoms[z.Name], z.Geometry)
		}
	}
	for _, z := range in.Electoral {
		if z.Name != "" && z.Geometry != nil {
			r.electoral[z.Name] = append(r.electoral[z.Name], z.Geometry)
		}
	}
	return r
}

func (r *run) add(mt Match) {
	r.out.Matches = append(r.out.Matches, mt)
	r.out.CSVToGeo[mt.CSV] = mt.Geo
	r.out.GeoToCSV[mt.Geo] = append(r.out.GeoToCSV[mt.Geo], mt.CSV)
}

func (r *run) spatial(zones []string) []string {
	var residual []string
	for _, z := range zones {
		if _, ok := r.electoral[z]; !ok {
			residual = append(residual, z)
			continue
		}
		res := r.resolve(z)
		if res.geo == "" {
			residual = append(residual, z)
			continue
		}
		r.add(Match{CSV: z, Geo: res.geo, Method: MethodSpatial, Overlap: res.overlap, Geohash: res.geohash})
	}
	return residual
}

func (r *run) chain(zones []string, chain map[string]string) []string {
	var residual []string
	for _, z := range zones {
		via, ok := chain[z]
		switch {
		case !ok || via == "":
			r.unresolved(z, "", "no lookup entry")
		case r.geoSet[via]:
			r.add(Match{CSV: z, Geo: via, Method: MethodChain, Via: via})
			continue
		default:
			if _, ok := r.electoral[via]; !ok {
				r.unresolved(z, via, fmt.Sprintf("%s is neither a polygon name nor an electoral polygon", via))
				break
			}
			res := r.resolve(via)
			if res.geo == "" {
				r.unresolved(z, via, res.reason)
				break
			}
			r.add(Match{CSV: z, Geo: res.geo, Method: MethodChain, Via: via, Overlap: res.overlap, Geohash: res.geohash})
			continue
		}
		residual = append(residual, z)
	}
	return residual
}

func (r *run) unresolved(zone, via, reason string) {
	r.out.UnresolvedChains = append(r.out.UnresolvedChains, UnresolvedChain{Zone: zone, Via: via, Reason: reason})
}

// namedShapes covers the named polygons on first use.
func (r *run) namedShapes() []*shape {
	if r.built {
		return r.named
	}
	r.built = true
	for _, name := range r.geoNames {
		if gs := r.geoGeoms[name]; len(gs) > 0 {
			if sh := newShape(name, gs, r.m.rc); sh != nil {
				r.named = append(r.named, sh)
			}
		}
	}
	return r.named
}

// resolve finds the named polygon for the electoral polygon code.
func (r *run) resolve(code string) resolution {
	if res, ok := r.resolved[code]; ok {
		return res
	}
	res := r.resolveShape(code)
	r.resolved[code] = res
	return res
}

func (r *run) resolveShape(code string) resolution {
	sh := newShape(code, r.electoral[code], r.m.rc)
	if sh == nil {
		return resolution{reason: fmt.Sprintf("electoral polygon %s has no usable ring", code)}
	}
	var res resolution
	c, err := sh.centroid()
	if err == nil {
		res.geohash = geo.Geohash(c)
	}

	switch r.m.opts.Strategy {
	case StrategyCentroid:
		if err != nil {
			res.reason = fmt.Sprintf("centroid of %s: %v", code, err)
			return res
		}
		for _, n := range r.namedShapes() {
			if n.contains(c) {
				res.geo = n.name
				_, res.overlap = overlap(sh, n)
				break
			}
		}
		if res.geo == "" {
			res.reason = fmt.Sprintf("centroid of %s lies in no named polygon", code)
		}
	default:
		var bestArea float64
		for _, n := range r.namedShapes() {
			area, frac := overlap(sh, n)
			if area == 0 || frac < r.m.opts.MinOverlap {
				continue
			}
			if area > bestArea {
				bestArea, res.geo, res.overlap = area, n.name, frac
			}
		}
		if res.geo == "" {
			res.reason = fmt.Sprintf("no named polygon covers %.0f%% of %s", r.m.opts.MinOverlap*100, code)
		}
	}
	if res.geo != "" {
		r.m.opts.Logger.Debug("spatial match", "code", code, "geo", res.geo, "overlap", res.overlap)
	}
	return res
}

// distinct returns the values of s without repeats, in order.
func distinct(s []string) []string {
	seen := make(map[string]bool, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
