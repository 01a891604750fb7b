package simplify

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/matzehuels/votemap/pkg/geo"
)

// Stats describes a simplification run.
type Stats struct {
	Tolerance      float64 `json:"tolerance"`
	VerticesBefore int     `json:"verticesBefore"`
	VerticesAfter  int     `json:"verticesAfter"`
	BytesBefore    int     `json:"bytesBefore"`
	BytesAfter     int     `json:"bytesAfter"`
}

// Reduction returns the fraction of bytes removed, in [0, 1].
func (s Stats) Reduction() float64 {
	if s.BytesBefore == 0 {
		return 0
	}
	return 1 - float64(s.BytesAfter)/float64(s.BytesBefore)
}

// Line simplifies a flat XY coordinate sequence. The result shares no
// memory with flat unless it is returned unchanged.
func Line(flat []float64, tolerance float64) []float64 {
	n := len(flat) / 2
	if tolerance <= 0 || n <= 2 {
		return flat
	}

	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true
	douglasPeucker(flat, 0, n-1, tolerance, keep)

	out := make([]float64, 0, len(flat))
	for i, k := range keep {
		if k {
			out = append(out, flat[2*i], flat[2*i+1])
		}
	}
	return out
}

func douglasPeucker(flat []float64, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	a, b := coord(flat, first), coord(flat, last)
	maxDist, split := -1.0, -1
	for i := first + 1; i < last; i++ {
		if d := xy.DistanceFromPointToLine(coord(flat, i), a, b); d > maxDist {
			maxDist, split = d, i
		}
	}
	if maxDist > tolerance {
		keep[split] = true
		douglasPeucker(flat, first, split, tolerance, keep)
		douglasPeucker(flat, split, last, tolerance, keep)
	}
}

func coord(flat []float64, i int) geom.Coord {
	return geom.Coord{flat[2*i], flat[2*i+1]}
}

// Ring simplifies a ring, re-closing the result when the input was closed.
func Ring(flat []float64, tolerance float64) []float64 {
	closed := isClosed(flat)
	out := Line(flat, tolerance)
	if closed && !isClosed(out) {
		out = append(out, out[0], out[1])
	}
	return out
}

func isClosed(flat []float64) bool {
	n := len(flat)
	return n >= 4 && flat[0] == flat[n-2] && flat[1] == flat[n-1]
}

// Geometry simplifies every line and ring of g.
func Geometry(g geom.T, tolerance float64) (geom.T, error) {
	if tolerance <= 0 {
		return g, nil
	}
	if _, ok := g.(*geom.Point); ok {
		return g, nil
	}
	return geo.MapSequences(g, func(flat []float64, ring bool) []float64 {
		if ring {
			return Ring(flat, tolerance)
		}
		return Line(flat, tolerance)
	})
}

// Collection simplifies every feature of c and returns the result as a new
// collection. Display metadata of the result is recomputed.
func Collection(c *geo.Collection, tolerance float64) (*geo.Collection, Stats, error) {
	stats := Stats{Tolerance: tolerance, VerticesBefore: c.Vertices()}
	size, err := c.EncodedSize()
	if err != nil {
		return nil, stats, err
	}
	stats.BytesBefore = size

	out := c
	if tolerance > 0 {
		out, err = c.WithGeometries(func(g geom.T) (geom.T, error) {
			return Geometry(g, tolerance)
		})
		if err != nil {
			return nil, stats, fmt.Errorf("simplify: %w", err)
		}
		if size, err = out.EncodedSize(); err != nil {
			return nil, stats, err
		}
	}
	stats.VerticesAfter = out.Vertices()
	stats.BytesAfter = size
	return out, stats, nil
}
