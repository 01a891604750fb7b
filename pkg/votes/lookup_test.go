package votes

import (
	"strings"
	"testing"

	"github.com/matzehuels/votemap/pkg/report"
)

func TestReadLookup(t *testing.T) {
	csv := header +
		"P,MO,1,AAA,D,,1,1,A\n" +
		"P,MO,1,AAA,D,,2,1,A\n" +
		"P,MO,2,AAB,D,,1,1,B\n" +
		"P,MO,2,AAX,D,,1,1,B\n"

	l, err := ReadLookup(strings.NewReader(csv), "odn.csv", ColCircuit, ColSeries)
	if err != nil {
		t.Fatalf("ReadLookup() error: %v", err)
	}
	m := l.Map()
	if m["1"] != "AAA" || m["2"] != "AAB" {
		t.Errorf("Map = %v", m)
	}
	if len(l.Warnings) != 1 || l.Warnings[0].Category != report.CategoryDataQuality {
		t.Errorf("Warnings = %v, want one data_quality warning", l.Warnings)
	}
}

func TestReadLookup_ConflictsAggregatePerKey(t *testing.T) {
	// Zone A spans series AAA and AAB; every list repeats the pair.
	csv := header +
		"P,MO,1,AAA,D,,1,1,A\n" +
		"P,MO,2,AAB,D,,1,1,A\n" +
		"P,MO,1,AAA,D,,2,1,A\n" +
		"P,MO,2,AAB,D,,2,1,A\n" +
		"P,MO,3,AAC,D,,3,1,A\n" +
		"P,MO,4,BBA,D,,1,1,B\n" +
		"P,MO,5,BBB,D,,1,1,B\n"

	l, err := ReadLookup(strings.NewReader(csv), "odn.csv", ColZone, ColSeries)
	if err != nil {
		t.Fatalf("ReadLookup() error: %v", err)
	}
	if m := l.Map(); m["A"] != "AAA" || m["B"] != "BBA" {
		t.Errorf("Map = %v, want first values kept", m)
	}
	if len(l.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want one per conflicting key", l.Warnings)
	}
	w := l.Warnings[0]
	if w.Line != 3 || !strings.Contains(w.Message, "AAB, AAC in 3 rows") {
		t.Errorf("warning = %+v, want first conflict line 3 listing AAB, AAC in 3 rows", w)
	}
}

func TestReadLookup_MissingColumn(t *testing.T) {
	_, err := ReadLookup(strings.NewReader("ZONA,SERIE\nA,B\n"), "series.csv", "ZONA", "SERIES")
	if err == nil {
		t.Error("expected error for missing column")
	}
}
