package match

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/twpayne/go-geom"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

func square(w, s, e, n float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{w, s, e, s, e, n, w, n, w, s}, []int{10})
}

// Two named neighbourhoods side by side, 0.02 x 0.01 degrees each.
var named = []Zone{
	{Name: "Centro", Geometry: square(-56.20, -34.91, -56.18, -34.90)},
	{Name: "Cordon", Geometry: square(-56.18, -34.91, -56.16, -34.90)},
}

func newMatcher(t *testing.T, opts Options) *Matcher {
	t.Helper()
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return m
}

func TestMatch_ExactScenario(t *testing.T) {
	m := newMatcher(t, Options{})
	got := m.Match(Input{
		CSV: []string{"A", "B", "C"},
		Geo: Names([]string{"A", "B", "D"}),
	})

	if got.Matched() != 2 || got.CSVToGeo["A"] != "A" || got.CSVToGeo["B"] != "B" {
		t.Errorf("CSVToGeo = %v, want A and B", got.CSVToGeo)
	}
	if strings.Join(got.UnmatchedCSV, ",") != "C" {
		t.Errorf("UnmatchedCSV = %v, want [C]", got.UnmatchedCSV)
	}
	if strings.Join(got.UnmatchedGeo, ",") != "D" {
		t.Errorf("UnmatchedGeo = %v, want [D]", got.UnmatchedGeo)
	}
	if math.Abs(got.MatchRate-2.0/3.0) > 1e-12 {
		t.Errorf("MatchRate = %v, want 2/3", got.MatchRate)
	}
	if got.MatchRatePercent != 66.67 {
		t.Errorf("MatchRatePercent = %v, want 66.67", got.MatchRatePercent)
	}
	for _, mt := range got.Matches {
		if mt.Method != MethodExact {
			t.Errorf("match %+v: method = %s, want exact", mt, mt.Method)
		}
	}
	checkConservation(t, got, 3, 3)
}

func TestMatch_CaseSensitive(t *testing.T) {
	got := newMatcher(t, Options{}).Match(Input{
		CSV: []string{"centro", "Centro", "Centro"},
		Geo: Names([]string{"Centro", "Centro"}),
	})
	if got.Matched() != 1 || got.CSVToGeo["Centro"] != "Centro" {
		t.Errorf("CSVToGeo = %v", got.CSVToGeo)
	}
	checkConservation(t, got, 2, 1)
}

func TestMatch_Spatial(t *testing.T) {
	got := newMatcher(t, Options{}).Match(Input{
		CSV: []string{"S1", "S2", "S3", "S4", "Centro"},
		Geo: named,
		Electoral: []Zone{
			{Name: "S1", Geometry: square(-56.199, -34.909, -56.182, -34.901)}, // inside Centro
			{Name: "S2", Geometry: square(-56.185, -34.909, -56.165, -34.901)}, // mostly Cordon
			{Name: "S3", Geometry: square(-55.010, -34.010, -55.000, -34.000)}, // far away
			{Name: "S4", Geometry: square(-56.161, -34.909, -56.141, -34.901)}, // 5% in Cordon
		},
	})

	want := map[string]string{"S1": "Centro", "S2": "Cordon", "Centro": "Centro"}
	for csv, geo := range want {
		if got.CSVToGeo[csv] != geo {
			t.Errorf("CSVToGeo[%s] = %q, want %q", csv, got.CSVToGeo[csv], geo)
		}
	}
	sort.Strings(got.UnmatchedCSV)
	if strings.Join(got.UnmatchedCSV, ",") != "S3,S4" {
		t.Errorf("UnmatchedCSV = %v, want [S3 S4]", got.UnmatchedCSV)
	}
	for _, mt := range got.Matches {
		switch mt.CSV {
		case "Centro":
			if mt.Method != MethodExact {
				t.Errorf("Centro method = %s, want exact", mt.Method)
			}
		case "S1", "S2":
			if mt.Method != MethodSpatial || mt.Overlap < DefaultMinOverlap || mt.Geohash == "" {
				t.Errorf("spatial match = %+v", mt)
			}
		}
	}
	if len(got.UnmatchedGeo) != 0 {
		t.Errorf("UnmatchedGeo = %v, want none", got.UnmatchedGeo)
	}
	if got := got.GeoToCSV["Centro"]; len(got) != 2 {
		t.Errorf("GeoToCSV[Centro] = %v, want two CSV zones", got)
	}
	checkConservation(t, got, 5, 2)
}

func TestMatch_MinOverlapThreshold(t *testing.T) {
	in := Input{
		CSV:       []string{"S4"},
		Geo:       named,
		Electoral: []Zone{{Name: "S4", Geometry: square(-56.170, -34.909, -56.150, -34.901)}}, // half in Cordon
	}
	if got := newMatcher(t, Options{}).Match(in); got.CSVToGeo["S4"] != "Cordon" {
		t.Errorf("default threshold: CSVToGeo = %v, want S4 -> Cordon", got.CSVToGeo)
	}
	if got := newMatcher(t, Options{MinOverlap: 0.9}).Match(in); got.Matched() != 0 {
		t.Errorf("threshold 0.9: CSVToGeo = %v, want no match", got.CSVToGeo)
	}
}

func TestMatch_TouchingPolygonsDoNotOverlap(t *testing.T) {
	west := square(-56.20, -34.95, -56.15, -34.90)
	east := square(-56.15, -34.95, -56.10, -34.90)
	// Lies in west and shares a stretch of the border with east.
	touching := square(-56.1520, -34.9230, -56.1500, -34.9210)

	m, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}

	got := m.Match(Input{
		CSV:       []string{"E"},
		Geo:       []Zone{{Name: "East", Geometry: east}},
		Electoral: []Zone{{Name: "E", Geometry: touching}},
	})
	if got.Matched() != 0 {
		t.Errorf("CSVToGeo = %v, want no match for a polygon outside East", got.CSVToGeo)
	}
	if strings.Join(got.UnmatchedCSV, ",") != "E" {
		t.Errorf("UnmatchedCSV = %v, want [E]", got.UnmatchedCSV)
	}

	got = m.Match(Input{
		CSV:       []string{"E"},
		Geo:       []Zone{{Name: "East", Geometry: east}, {Name: "West", Geometry: west}},
		Electoral: []Zone{{Name: "E", Geometry: touching}},
	})
	if got.CSVToGeo["E"] != "West" {
		t.Fatalf("CSVToGeo = %v, want E -> West", got.CSVToGeo)
	}
	for _, mt := range got.Matches {
		if mt.CSV == "E" && mt.Overlap < 0.9 {
			t.Errorf("overlap with West = %v, want close to 1", mt.Overlap)
		}
	}
}

func TestMatch_CentroidStrategy(t *testing.T) {
	got := newMatcher(t, Options{Strategy: StrategyCentroid}).Match(Input{
		CSV: []string{"S2", "S3"},
		Geo: named,
		Electoral: []Zone{
			{Name: "S2", Geometry: square(-56.185, -34.909, -56.165, -34.901)},
			{Name: "S3", Geometry: square(-55.010, -34.010, -55.000, -34.000)},
		},
	})
	if got.CSVToGeo["S2"] != "Cordon" {
		t.Errorf("CSVToGeo[S2] = %q, want Cordon", got.CSVToGeo["S2"])
	}
	if strings.Join(got.UnmatchedCSV, ",") != "S3" {
		t.Errorf("UnmatchedCSV = %v, want [S3]", got.UnmatchedCSV)
	}
	checkConservation(t, got, 2, 2)
}

func TestMatch_Chain(t *testing.T) {
	got := newMatcher(t, Options{}).Match(Input{
		CSV: []string{"101", "102", "103", "104", "105"},
		Geo: named,
		Electoral: []Zone{
			{Name: "AAA", Geometry: square(-56.199, -34.909, -56.182, -34.901)},
			{Name: "FAR", Geometry: square(-55.010, -34.010, -55.000, -34.000)},
		},
		Chain: map[string]string{
			"101": "AAA",    // series polygon inside Centro
			"102": "Cordon", // intermediate code equals a polygon name
			"103": "ZZZ",    // no polygon at all
			"105": "FAR",    // polygon overlapping nothing
		},
	})

	if got.CSVToGeo["101"] != "Centro" || got.CSVToGeo["102"] != "Cordon" {
		t.Errorf("CSVToGeo = %v", got.CSVToGeo)
	}
	for _, mt := range got.Matches {
		if mt.Method != MethodChain || mt.Via == "" {
			t.Errorf("match %+v should be a chain match", mt)
		}
	}

	reasons := map[string]UnresolvedChain{}
	for _, u := range got.UnresolvedChains {
		reasons[u.Zone] = u
	}
	if len(reasons) != 3 {
		t.Fatalf("UnresolvedChains = %+v, want 103, 104 and 105", got.UnresolvedChains)
	}
	if reasons["104"].Reason != "no lookup entry" {
		t.Errorf("104 reason = %q", reasons["104"].Reason)
	}
	if reasons["103"].Via != "ZZZ" || reasons["105"].Via != "FAR" {
		t.Errorf("unresolved = %+v", got.UnresolvedChains)
	}
	checkConservation(t, got, 5, 2)
}

func TestMatch_JSON(t *testing.T) {
	got := newMatcher(t, Options{}).Match(Input{CSV: []string{"A"}, Geo: Names([]string{"A"})})
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for _, want := range []string{`"unmatched_csv":[]`, `"unmatched_geo":[]`, `"unresolved_chains":[]`, `"match_rate":1`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s: %s", want, data)
		}
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"overlap above one", Options{MinOverlap: 1.5}},
		{"negative overlap", Options{MinOverlap: -0.1}},
		{"unknown strategy", Options{Strategy: "nearest"}},
		{"level too deep", Options{CoverLevel: 31}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if !verrors.Is(err, verrors.ErrCodeInvalidConfig) {
				t.Errorf("New() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func checkConservation(t *testing.T, m *Mapping, csvZones, geoZones int) {
	t.Helper()
	if m.CSVZones != csvZones || m.GeoZones != geoZones {
		t.Errorf("zones = %d/%d, want %d/%d", m.CSVZones, m.GeoZones, csvZones, geoZones)
	}
	if len(m.CSVToGeo)+len(m.UnmatchedCSV) != m.CSVZones {
		t.Errorf("csv: %d matched + %d unmatched != %d", len(m.CSVToGeo), len(m.UnmatchedCSV), m.CSVZones)
	}
	if len(m.GeoToCSV)+len(m.UnmatchedGeo) != m.GeoZones {
		t.Errorf("geo: %d matched + %d unmatched != %d", len(m.GeoToCSV), len(m.UnmatchedGeo), m.GeoZones)
	}
}
