package votes

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/report"
)

// Lookup is an auxiliary key relation read from a CSV, e.g. circuit -> series.
// Keys keep their order of first appearance.
type Lookup struct {
	Pairs    OrderedMap[string]
	Warnings []report.Warning
}

// ReadLookup reads the from -> to relation between two columns of a CSV.
//
// The vote CSV itself can serve as input (CIRCUITO -> SERIES), so repeated
// identical pairs are expected and ignored. A key mapped to different
// values keeps the first one and produces one data-quality warning per key,
// however many rows disagree.
func ReadLookup(r io.Reader, source, fromCol, toCol string) (*Lookup, error) {
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

	from, to := -1, -1
	for i, h := range header {
		switch strings.ToUpper(cleanField(h)) {
		case strings.ToUpper(fromCol):
			if from < 0 {
				from = i
			}
		case strings.ToUpper(toCol):
			if to < 0 {
				to = i
			}
		}
	}
	if from < 0 || to < 0 {
		return nil, verrors.New(verrors.ErrCodeMissingColumn, "%s: columns %s and %s are required", source, fromCol, toCol)
	}

	l := &Lookup{Pairs: NewOrderedMap[string]()}
	conflicts := NewOrderedMap[*conflict]()
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
		if from >= len(rec) || to >= len(rec) {
			continue
		}
		k, v := cleanField(rec[from]), cleanField(rec[to])
		if k == "" || v == "" {
			continue
		}
		if prev, ok := l.Pairs.Get(k); ok {
			if prev != v {
				c, seen := conflicts.Get(k)
				if !seen {
					c = &conflict{line: line}
					conflicts.Set(k, c)
				}
				c.add(v)
			}
			continue
		}
		l.Pairs.Set(k, v)
	}
	for _, k := range conflicts.Keys() {
		c, _ := conflicts.Get(k)
		kept, _ := l.Pairs.Get(k)
		l.Warnings = append(l.Warnings, report.DataQuality(report.CodeUnresolvedChain, source, c.line,
			"%s %s maps to %s and also %s in %d rows, keeping %s",
			fromCol, k, kept, strings.Join(c.values, ", "), c.rows, kept))
	}
	return l, nil
}

// conflict collects the rows disagreeing with the first value of a key.
type conflict struct {
	line   int
	rows   int
	values []string
}

func (c *conflict) add(v string) {
	c.rows++
	for _, seen := range c.values {
		if seen == v {
			return
		}
	}
	c.values = append(c.values, v)
}

// Map returns the relation as a plain map.
func (l *Lookup) Map() map[string]string {
	out := make(map[string]string, l.Pairs.Len())
	for _, k := range l.Pairs.Keys() {
		v, _ := l.Pairs.Get(k)
		out[k] = v
	}
	return out
}
