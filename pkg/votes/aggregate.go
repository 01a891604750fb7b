package votes

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/report"
)

// Column names of the electoral CSV.
const (
	ColList      = "HOJA"
	ColZone      = "ZONA"
	ColParty     = "PARTIDO"
	ColVotes     = "CNT_VOTOS"
	ColCandidate = "PRECANDIDATO"
	ColCircuit   = "CIRCUITO"
	ColSeries    = "SERIES"
)

// requiredColumns must be present in every vote CSV header.
var requiredColumns = []string{ColList, ColZone, ColParty, ColVotes}

// Stats describes an aggregation run.
type Stats struct {
	TotalVotes    uint64 `json:"totalVotes"`
	UniqueLists   int    `json:"uniqueLists"`
	UniqueZones   int    `json:"uniqueZones"`
	UniqueParties int    `json:"uniqueParties"`
	Rows          int    `json:"rows"`
	SkippedRows   int    `json:"skippedRows"`
}

// Result is the output of [Aggregate].
type Result struct {
	Table    *Table
	Warnings []report.Warning
	Stats    Stats
}

// Aggregate reads a vote CSV from r and builds a [Table].
//
// source names the input in warnings (e.g. "odn.csv"). The first line must
// be a header containing HOJA, ZONA, PARTIDO and CNT_VOTOS; PRECANDIDATO is
// optional. A UTF-8 byte order mark and literal double quotes inside fields
// are stripped.
//
// Rows with an empty HOJA are skipped. A CNT_VOTOS value that is not a
// non-negative 32-bit integer counts as zero votes and produces a
// data-quality warning. Aggregate returns an error only for unreadable
// input or a missing required column.
func Aggregate(r io.Reader, source string) (*Result, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, verrors.New(verrors.ErrCodeInvalidCSV, "%s: empty file", source)
	}
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidCSV, err, "%s: read header", source)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeMissingColumn, err, "%s", source)
	}

	agg := &aggregator{
		source: source,
		table:  NewTable(),
		cols:   cols,
	}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, verrors.Wrap(verrors.ErrCodeInvalidCSV, err, "%s:%d", source, line)
		}
		agg.row(line, rec)
	}
	return agg.result(), nil
}

type columns struct {
	list, zone, party, votes int
	candidate                int // -1 when absent
}

func indexColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToUpper(cleanField(h))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return columns{}, fmt.Errorf("required column %s not found", c)
		}
	}
	cols := columns{
		list:      idx[ColList],
		zone:      idx[ColZone],
		party:     idx[ColParty],
		votes:     idx[ColVotes],
		candidate: -1,
	}
	if i, ok := idx[ColCandidate]; ok {
		cols.candidate = i
	}
	return cols, nil
}

// cleanField strips a byte order mark, literal double quotes and surrounding
// whitespace.
func cleanField(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}

type aggregator struct {
	source     string
	table      *Table
	cols       columns
	warnings   []report.Warning
	rows       int
	skipped    int
	duplicates int
}

func (a *aggregator) row(line int, rec []string) {
	a.rows++
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return cleanField(rec[i])
	}

	list := field(a.cols.list)
	if list == "" {
		a.skipped++
		return
	}

	r := Record{
		List:  list,
		Zone:  field(a.cols.zone),
		Party: field(a.cols.party),
	}
	if a.cols.candidate >= 0 {
		if c := field(a.cols.candidate); c != "" {
			r.Candidate = c
			r.HasCandidate = true
		}
	}

	raw := field(a.cols.votes)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		a.warn(report.CodeNonNumericVotes, line, "list %s zone %s: vote count %q is not a non-negative integer, counted as 0", list, r.Zone, raw)
		n = 0
	}
	r.Votes = uint32(n)

	res := a.table.add(r)
	if res.duplicate {
		a.duplicates++
	}
	if res.partyConflict != "" {
		a.warn(report.CodePartyMismatch, line, "list %s: party %q differs from first seen %q, keeping first", list, r.Party, res.partyConflict)
	}
	if res.candidateConflict != "" {
		a.warn(report.CodeCandidateMismatch, line, "list %s: candidate %q differs from first seen %q, keeping first", list, r.Candidate, res.candidateConflict)
	}
}

func (a *aggregator) warn(code string, line int, format string, args ...any) {
	a.warnings = append(a.warnings, report.DataQuality(code, a.source, line, format, args...))
}

func (a *aggregator) result() *Result {
	if a.duplicates > 0 {
		a.warn(report.CodeDuplicateKey, 0, "%d rows repeated an existing HOJA+ZONA key and were added to it", a.duplicates)
	}
	t := a.table
	return &Result{
		Table:    t,
		Warnings: a.warnings,
		Stats: Stats{
			TotalVotes:    t.TotalVotes(),
			UniqueLists:   len(t.Lists()),
			UniqueZones:   len(t.zoneSet),
			UniqueParties: len(t.partySet),
			Rows:          a.rows,
			SkippedRows:   a.skipped,
		},
	}
}
