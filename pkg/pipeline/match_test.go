package pipeline

import (
	"context"
	"os"
	"testing"

	"github.com/matzehuels/votemap/pkg/config"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/report"
)

func TestMatch(t *testing.T) {
	dept, opts := fixture(t, "montevideo")
	dept.SeriesGeoJSON = writeFile(t, t.TempDir(), "series.geojson", collection(
		square("serie", "AAC", -56.18, -34.91, 0.01),
	))
	dept.Resolve("/")

	res, err := NewRunner(nil, nil, nil).Match(context.Background(), dept, opts)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	m := res.Mapping
	if m.CSVToGeo["Centro"] != "Centro" || m.CSVToGeo["Z9"] != "Cordon" {
		t.Errorf("CSVToGeo = %v", m.CSVToGeo)
	}
	if len(m.UnmatchedGeo) != 1 || m.UnmatchedGeo[0] != "Pocitos" {
		t.Errorf("UnmatchedGeo = %v, want [Pocitos]", m.UnmatchedGeo)
	}
	var found bool
	for _, w := range res.Warnings {
		if w.Code == report.CodeUnresolvedChain {
			found = true
		}
	}
	if !found {
		t.Error("expected an unresolved_chain warning for Zeta")
	}

	// Nothing is published.
	if _, err := os.Stat(opts.Output); !os.IsNotExist(err) {
		t.Errorf("Match() wrote to the output root: %v", err)
	}
}

func TestMatch_RequiresGeography(t *testing.T) {
	dept, opts := fixture(t, "flores")
	dept.GeoJSON = ""

	_, err := NewRunner(nil, nil, nil).Match(context.Background(), dept, opts)
	if !verrors.Is(err, verrors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestMatch_SameMappingAsExecute(t *testing.T) {
	dept, opts := fixture(t, "rocha")
	dept.MinOverlap = 0.9
	dept.LookupFrom, dept.LookupTo = config.DefaultLookupFrom, config.DefaultLookupTo

	runner := NewRunner(nil, nil, nil)
	matched, err := runner.Match(context.Background(), dept, opts)
	if err != nil {
		t.Fatal(err)
	}
	executed, err := runner.Execute(context.Background(), dept, opts)
	if err != nil {
		t.Fatal(err)
	}
	if matched.Mapping.MatchRate != executed.Mapping.MatchRate || matched.Mapping.Matched() != executed.Mapping.Matched() {
		t.Errorf("Match rate %v (%d) differs from Execute %v (%d)",
			matched.Mapping.MatchRate, matched.Mapping.Matched(),
			executed.Mapping.MatchRate, executed.Mapping.Matched())
	}
}
