package votes

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Ballot identifies one of the two ballot-order schemes.
type Ballot string

const (
	BallotODN Ballot = "odn" // national order
	BallotODD Ballot = "odd" // departmental order
)

// Document is the JSON artifact consumed by the rendering application
// (odn.json / odd.json). Field names follow that application's contract.
type Document struct {
	Department             string                         `json:"department"`
	Ballot                 Ballot                         `json:"ballot"`
	VotosPorListas         OrderedMap[OrderedMap[uint32]] `json:"votosPorListas"`
	MaxVotosPorListas      OrderedMap[uint32]             `json:"maxVotosPorListas"`
	TotalVotosPorListas    OrderedMap[uint64]             `json:"totalVotosPorListas"`
	PartidosPorListas      OrderedMap[string]             `json:"partidosPorListas"`
	PrecandidatosPorListas OrderedMap[*string]            `json:"precandidatosPorListas"`
	VotosPorPartido        OrderedMap[uint64]             `json:"votosPorPartido"`
	ZoneList               []string                       `json:"zoneList"`
	PartyList              []string                       `json:"partyList"`
	Classification         *Classification                `json:"classification,omitempty"`
	Metadata               DocumentMetadata               `json:"metadata"`
}

// Classification carries precomputed choropleth breaks per list.
type Classification struct {
	Method  string                `json:"method"`
	Classes int                   `json:"classes"`
	Breaks  OrderedMap[[]float64] `json:"breaks"`
}

// DocumentMetadata describes the table.
type DocumentMetadata struct {
	Stats       Stats     `json:"stats"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NewDocument builds the artifact for t. Lists and zones keep their order
// of first appearance; parties are emitted in sorted order.
func NewDocument(department string, ballot Ballot, t *Table, stats Stats, now time.Time) *Document {
	doc := &Document{
		Department:             department,
		Ballot:                 ballot,
		VotosPorListas:         NewOrderedMap[OrderedMap[uint32]](),
		MaxVotosPorListas:      NewOrderedMap[uint32](),
		TotalVotosPorListas:    NewOrderedMap[uint64](),
		PartidosPorListas:      NewOrderedMap[string](),
		PrecandidatosPorListas: NewOrderedMap[*string](),
		VotosPorPartido:        NewOrderedMap[uint64](),
		ZoneList:               t.ZoneList(),
		PartyList:              t.PartyList(),
		Metadata:               DocumentMetadata{Stats: stats, GeneratedAt: now.UTC()},
	}

	for _, list := range t.Lists() {
		zones := NewOrderedMap[uint32]()
		for _, z := range t.Zones(list) {
			zones.Set(z, t.Votes(list, z))
		}
		doc.VotosPorListas.Set(list, zones)
		doc.MaxVotosPorListas.Set(list, t.Max(list))
		doc.TotalVotosPorListas.Set(list, t.Total(list))
		doc.PartidosPorListas.Set(list, t.Party(list))
		if c, ok := t.Candidate(list); ok {
			doc.PrecandidatosPorListas.Set(list, &c)
		} else {
			doc.PrecandidatosPorListas.Set(list, nil)
		}
	}

	totals := t.PartyTotals()
	for _, p := range doc.PartyList {
		doc.VotosPorPartido.Set(p, totals[p])
	}
	return doc
}

// ZoneValues returns the vote counts of list in zone order.
func (d *Document) ZoneValues(list string) ([]float64, error) {
	zones, ok := d.VotosPorListas.Get(list)
	if !ok {
		return nil, fmt.Errorf("list %s not found", list)
	}
	values := make([]float64, 0, zones.Len())
	for _, z := range zones.Keys() {
		v, _ := zones.Get(z)
		values = append(values, float64(v))
	}
	return values, nil
}

// ReadDocument decodes a vote artifact.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &doc, nil
}
