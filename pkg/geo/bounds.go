package geo

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// Zoom limits for [Bounds.Zoom].
const (
	MinZoom uint8 = 9
	MaxZoom uint8 = 13
)

// Bounds is a bounding box in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// BoundsOf returns the bounding box of all features, whatever their
// geometry kinds. ok is false when there are no coordinates.
func BoundsOf(features []*Feature) (b Bounds, ok bool) {
	ext := geom.NewBounds(geom.XY)
	for _, f := range features {
		if f.Geometry == nil || VertexCount(f.Geometry) == 0 {
			continue
		}
		ext.Extend(f.Geometry)
		ok = true
	}
	if !ok {
		return Bounds{}, false
	}
	return Bounds{
		West:  ext.Min(0),
		South: ext.Min(1),
		East:  ext.Max(0),
		North: ext.Max(1),
	}, true
}

// Width returns the longitude span.
func (b Bounds) Width() float64 { return b.East - b.West }

// Height returns the latitude span.
func (b Bounds) Height() float64 { return b.North - b.South }

// Center returns the midpoint as [lat, lng].
func (b Bounds) Center() [2]float64 {
	return [2]float64{(b.North + b.South) / 2, (b.East + b.West) / 2}
}

// Zoom returns clamp(round(8 - log2(max(width, height))), 9, 13). It is an
// approximate display heuristic; a zero span yields MaxZoom.
func (b Bounds) Zoom() uint8 {
	span := math.Max(b.Width(), b.Height())
	if span <= 0 {
		return MaxZoom
	}
	z := math.Round(8 - math.Log2(span))
	switch {
	case z < float64(MinZoom):
		return MinZoom
	case z > float64(MaxZoom):
		return MaxZoom
	}
	return uint8(z)
}

// Overlaps reports whether b and o share any point.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.West <= o.East && o.West <= b.East && b.South <= o.North && o.South <= b.North
}

// GeometryBounds returns the bounding box of g.
func GeometryBounds(g geom.T) Bounds {
	ext := g.Bounds()
	return Bounds{West: ext.Min(0), South: ext.Min(1), East: ext.Max(0), North: ext.Max(1)}
}

// Centroid returns the planar centroid of g as [lng, lat].
func Centroid(g geom.T) (geom.Coord, error) {
	return xy.Centroid(g)
}

// Geohash encodes a [lng, lat] coordinate.
func Geohash(c geom.Coord) string {
	return geohash.Encode(c.Y(), c.X())
}
