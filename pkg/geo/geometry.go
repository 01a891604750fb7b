package geo

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// Kind is the tag of a supported geometry.
type Kind string

const (
	KindPoint           Kind = "Point"
	KindLineString      Kind = "LineString"
	KindMultiLineString Kind = "MultiLineString"
	KindPolygon         Kind = "Polygon"
	KindMultiPolygon    Kind = "MultiPolygon"
)

// DefaultPrecision is the number of decimal places kept by [RoundPrecision]
// (about 1.1 m at the equator).
const DefaultPrecision = 5

// KindOf returns the tag of g, or false for unsupported geometries.
func KindOf(g geom.T) (Kind, bool) {
	switch g.(type) {
	case *geom.Point:
		return KindPoint, true
	case *geom.LineString:
		return KindLineString, true
	case *geom.MultiLineString:
		return KindMultiLineString, true
	case *geom.Polygon:
		return KindPolygon, true
	case *geom.MultiPolygon:
		return KindMultiPolygon, true
	}
	return "", false
}

// SequenceFunc transforms one flat XY coordinate sequence. ring is true for
// polygon rings, which must come back closed.
type SequenceFunc func(flat []float64, ring bool) []float64

// MapSequences returns a new geometry built by applying fn to every line or
// ring of g. The input is not modified. g must be in the XY layout.
func MapSequences(g geom.T, fn SequenceFunc) (geom.T, error) {
	if g.Layout() != geom.XY {
		return nil, fmt.Errorf("layout %v: only XY is supported", g.Layout())
	}
	switch g := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(geom.XY, fn(clone(g.FlatCoords()), false)), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(geom.XY, fn(clone(g.FlatCoords()), false)), nil
	case *geom.MultiLineString:
		flat, ends := mapEnds(g.FlatCoords(), 0, g.Ends(), false, fn, nil)
		return geom.NewMultiLineStringFlat(geom.XY, flat, ends), nil
	case *geom.Polygon:
		flat, ends := mapEnds(g.FlatCoords(), 0, g.Ends(), true, fn, nil)
		return geom.NewPolygonFlat(geom.XY, flat, ends), nil
	case *geom.MultiPolygon:
		var flat []float64
		endss := make([][]int, 0, len(g.Endss()))
		offset := 0
		for _, ends := range g.Endss() {
			var newEnds []int
			flat, newEnds = mapEnds(g.FlatCoords(), offset, ends, true, fn, flat)
			endss = append(endss, newEnds)
			if len(ends) > 0 {
				offset = ends[len(ends)-1]
			}
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss), nil
	}
	return nil, fmt.Errorf("unsupported geometry %T", g)
}

// mapEnds applies fn to each sequence delimited by ends, starting at
// offset, and appends the results to dst.
func mapEnds(src []float64, offset int, ends []int, ring bool, fn SequenceFunc, dst []float64) ([]float64, []int) {
	newEnds := make([]int, 0, len(ends))
	start := offset
	for _, end := range ends {
		dst = append(dst, fn(clone(src[start:end]), ring)...)
		newEnds = append(newEnds, len(dst))
		start = end
	}
	return dst, newEnds
}

func clone(flat []float64) []float64 {
	out := make([]float64, len(flat))
	copy(out, flat)
	return out
}

// ToXY drops any Z or M ordinates.
func ToXY(g geom.T) (geom.T, error) {
	if _, ok := KindOf(g); !ok {
		return nil, fmt.Errorf("unsupported geometry %T", g)
	}
	if g.Layout() == geom.XY {
		return g, nil
	}
	stride := g.Stride()
	src := g.FlatCoords()
	flat := make([]float64, 0, len(src)/stride*2)
	for i := 0; i+1 < len(src); i += stride {
		flat = append(flat, src[i], src[i+1])
	}
	rescale := func(ends []int) []int {
		out := make([]int, len(ends))
		for i, e := range ends {
			out[i] = e / stride * 2
		}
		return out
	}
	switch g := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(geom.XY, flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(geom.XY, flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(geom.XY, flat, rescale(g.Ends())), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(geom.XY, flat, rescale(g.Ends())), nil
	default:
		mp := g.(*geom.MultiPolygon)
		endss := make([][]int, len(mp.Endss()))
		for i, ends := range mp.Endss() {
			endss[i] = rescale(ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss), nil
	}
}

// RoundPrecision rounds every coordinate of g to the given number of
// decimal places. The number of points is never changed.
func RoundPrecision(g geom.T, decimals int) (geom.T, error) {
	scale := math.Pow(10, float64(decimals))
	return MapSequences(g, func(flat []float64, _ bool) []float64 {
		for i, v := range flat {
			flat[i] = math.Round(v*scale) / scale
		}
		return flat
	})
}

// VertexCount returns the number of points in g.
func VertexCount(g geom.T) int {
	if g == nil || g.Stride() == 0 {
		return 0
	}
	return len(g.FlatCoords()) / g.Stride()
}

// Area returns the planar area of g in square degrees. Non-areal
// geometries have zero area.
func Area(g geom.T) float64 {
	switch g := g.(type) {
	case *geom.Polygon:
		return g.Area()
	case *geom.MultiPolygon:
		return g.Area()
	}
	return 0
}
