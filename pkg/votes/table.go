// Package votes aggregates electoral tabulations into per-list, per-zone
// vote tables.
//
// The source CSV carries one row per (circuit, list) with the counting zone
// in ZONA and the list identifier in HOJA. [Aggregate] folds those rows into
// a [Table]: rows sharing a (list, zone) key are added, never overwritten.
// Problems that do not make the file unusable (non-numeric counts,
// conflicting party names) become report warnings rather than errors.
package votes

import (
	"sort"
)

// Record is one parsed vote row.
type Record struct {
	List      string
	Zone      string
	Party     string
	Candidate string
	// HasCandidate is false when the row carries no PRECANDIDATO value.
	HasCandidate bool
	Votes        uint32
}

// Table accumulates votes per list and zone.
//
// Lists and the zones of each list iterate in order of first appearance.
// For every list, Total equals the sum of its zone votes.
type Table struct {
	lists      []string
	zones      map[string]*zoneVotes
	parties    map[string]string
	candidates map[string]string
	zoneSet    map[string]struct{}
	partySet   map[string]struct{}
}

type zoneVotes struct {
	order []string
	votes map[string]uint32
	total uint64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		zones:      make(map[string]*zoneVotes),
		parties:    make(map[string]string),
		candidates: make(map[string]string),
		zoneSet:    make(map[string]struct{}),
		partySet:   make(map[string]struct{}),
	}
}

// addResult tells the aggregator what add observed, so it can raise warnings.
type addResult struct {
	duplicate         bool   // the (list, zone) key was already present
	partyConflict     string // first-seen party when rec.Party differs
	candidateConflict string // first-seen candidate when rec.Candidate differs
}

// Add accumulates rec into the table. Party and candidate are first-write-wins.
// Zone votes saturate at the uint32 maximum.
func (t *Table) Add(rec Record) {
	t.add(rec)
}

func (t *Table) add(rec Record) addResult {
	var res addResult

	zv, ok := t.zones[rec.List]
	if !ok {
		zv = &zoneVotes{votes: make(map[string]uint32)}
		t.zones[rec.List] = zv
		t.lists = append(t.lists, rec.List)
		t.parties[rec.List] = rec.Party
		if rec.HasCandidate {
			t.candidates[rec.List] = rec.Candidate
		}
	} else {
		if first := t.parties[rec.List]; first != rec.Party {
			res.partyConflict = first
		}
		if rec.HasCandidate {
			first, seen := t.candidates[rec.List]
			switch {
			case !seen:
				t.candidates[rec.List] = rec.Candidate
			case first != rec.Candidate:
				res.candidateConflict = first
			}
		}
	}

	current, seen := zv.votes[rec.Zone]
	if seen {
		res.duplicate = true
	} else {
		zv.order = append(zv.order, rec.Zone)
	}
	sum := uint64(current) + uint64(rec.Votes)
	if sum > uint64(^uint32(0)) {
		sum = uint64(^uint32(0))
	}
	zv.total += sum - uint64(current)
	zv.votes[rec.Zone] = uint32(sum)

	t.zoneSet[rec.Zone] = struct{}{}
	if rec.Party != "" {
		t.partySet[rec.Party] = struct{}{}
	}
	return res
}

// Lists returns list identifiers in order of first appearance.
func (t *Table) Lists() []string {
	return t.lists
}

// Zones returns the zones of list in order of first appearance.
func (t *Table) Zones(list string) []string {
	if zv, ok := t.zones[list]; ok {
		return zv.order
	}
	return nil
}

// Votes returns the accumulated votes of list in zone.
func (t *Table) Votes(list, zone string) uint32 {
	if zv, ok := t.zones[list]; ok {
		return zv.votes[zone]
	}
	return 0
}

// ZoneVotes returns the zone -> votes map of list. The map must not be modified.
func (t *Table) ZoneVotes(list string) map[string]uint32 {
	if zv, ok := t.zones[list]; ok {
		return zv.votes
	}
	return nil
}

// Total returns the votes of list summed over all its zones.
func (t *Table) Total(list string) uint64 {
	if zv, ok := t.zones[list]; ok {
		return zv.total
	}
	return 0
}

// Max returns the highest zone count of list.
func (t *Table) Max(list string) uint32 {
	var top uint32
	if zv, ok := t.zones[list]; ok {
		for _, v := range zv.votes {
			if v > top {
				top = v
			}
		}
	}
	return top
}

// Party returns the party of list as first recorded.
func (t *Table) Party(list string) string {
	return t.parties[list]
}

// Candidate returns the candidate of list, if any row carried one.
func (t *Table) Candidate(list string) (string, bool) {
	c, ok := t.candidates[list]
	return c, ok
}

// TotalVotes returns the votes summed over every list.
func (t *Table) TotalVotes() uint64 {
	var total uint64
	for _, zv := range t.zones {
		total += zv.total
	}
	return total
}

// PartyTotals returns votes per party.
func (t *Table) PartyTotals() map[string]uint64 {
	totals := make(map[string]uint64, len(t.partySet))
	for _, list := range t.lists {
		totals[t.parties[list]] += t.zones[list].total
	}
	return totals
}

// ZoneList returns every zone seen, deduplicated and sorted.
func (t *Table) ZoneList() []string {
	return sortedKeys(t.zoneSet)
}

// PartyList returns every non-empty party seen, deduplicated and sorted.
func (t *Table) PartyList() []string {
	return sortedKeys(t.partySet)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
