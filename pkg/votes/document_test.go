package votes

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewDocument(t *testing.T) {
	res := aggregate(t, ""+
		"Frente Amplio,MO,1,A,D,Orsi,609,120,Centro\n"+
		"Frente Amplio,MO,1,A,D,Orsi,609,30,Cordon\n"+
		"Partido Nacional,MO,1,A,D,,71,40,Centro\n")
	now := time.Date(2024, 6, 30, 21, 0, 0, 0, time.UTC)

	doc := NewDocument("montevideo", BallotODN, res.Table, res.Stats, now)

	zones, ok := doc.VotosPorListas.Get("609")
	if !ok {
		t.Fatal("list 609 missing")
	}
	if got, _ := zones.Get("Cordon"); got != 30 {
		t.Errorf("votosPorListas[609][Cordon] = %d, want 30", got)
	}
	if got, _ := doc.MaxVotosPorListas.Get("609"); got != 120 {
		t.Errorf("maxVotosPorListas[609] = %d, want 120", got)
	}
	if got, _ := doc.TotalVotosPorListas.Get("609"); got != 150 {
		t.Errorf("totalVotosPorListas[609] = %d, want 150", got)
	}
	if got, _ := doc.VotosPorPartido.Get("Frente Amplio"); got != 150 {
		t.Errorf("votosPorPartido[Frente Amplio] = %d, want 150", got)
	}
	if c, _ := doc.PrecandidatosPorListas.Get("71"); c != nil {
		t.Errorf("precandidatosPorListas[71] = %q, want nil", *c)
	}
	if !doc.Metadata.GeneratedAt.Equal(now) {
		t.Errorf("generatedAt = %v, want %v", doc.Metadata.GeneratedAt, now)
	}
}

func TestDocument_JSONShape(t *testing.T) {
	res := aggregate(t, ""+
		"B,MO,1,A,D,,9,1,Z\n"+
		"A,MO,1,A,D,Ana,2,1,Y\n")
	doc := NewDocument("mo", BallotODD, res.Table, res.Stats, time.Unix(0, 0))

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`"votosPorListas":{"9":{"Z":1},"2":{"Y":1}}`,
		`"precandidatosPorListas":{"9":null,"2":"Ana"}`,
		`"partyList":["A","B"]`,
		`"zoneList":["Y","Z"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s\n%s", want, out)
		}
	}
	if strings.Contains(out, `"classification"`) {
		t.Error("classification should be omitted when unset")
	}

	back, err := ReadDocument(&buf)
	if err != nil {
		t.Fatalf("ReadDocument() error: %v", err)
	}
	if got := strings.Join(back.VotosPorListas.Keys(), ","); got != "9,2" {
		t.Errorf("decoded list order = %s, want 9,2", got)
	}
}

func TestDocument_ZoneValues(t *testing.T) {
	res := aggregate(t, ""+
		"P,MO,1,A,D,,5,3,A\n"+
		"P,MO,1,A,D,,5,8,B\n")
	doc := NewDocument("mo", BallotODN, res.Table, res.Stats, time.Now())

	got, err := doc.ZoneValues("5")
	if err != nil {
		t.Fatalf("ZoneValues() error: %v", err)
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 8 {
		t.Errorf("ZoneValues = %v, want [3 8]", got)
	}
	if _, err := doc.ZoneValues("404"); err == nil {
		t.Error("expected error for unknown list")
	}
}
