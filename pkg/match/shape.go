package match

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"

	"github.com/matzehuels/votemap/pkg/geo"
)

// shape is the spherical representation of all polygons sharing a name.
type shape struct {
	name   string
	geoms  []geom.T
	bounds geo.Bounds
	loops  []*s2.Loop
	cover  s2.CellUnion
	area   float64 // steradians, from the cover
}

// newShape approximates the outer rings of gs with cells of at most the
// coverer's MaxLevel. It returns nil when gs holds no usable ring.
func newShape(name string, gs []geom.T, rc *s2.RegionCoverer) *shape {
	sh := &shape{name: name, geoms: gs}
	var covers []s2.CellUnion
	first := true
	for _, g := range gs {
		for _, ring := range outerRings(g) {
			loop := loopFromRing(ring)
			if loop == nil {
				continue
			}
			sh.loops = append(sh.loops, loop)
			covers = append(covers, approximate(loop, rc))
		}
		if geo.VertexCount(g) == 0 {
			continue
		}
		b := geo.GeometryBounds(g)
		if first {
			sh.bounds, first = b, false
		} else {
			sh.bounds = union(sh.bounds, b)
		}
	}
	if len(sh.loops) == 0 {
		return nil
	}
	sh.cover = s2.CellUnionFromUnion(covers...)
	sh.area = sh.cover.ApproxArea()
	return sh
}

// approximate returns the cells of loop: covering cells contained in the
// loop are kept whole, boundary cells are refined down to rc.MaxLevel and
// kept only when their center lies inside the loop. Two loops that merely
// touch share no cell.
func approximate(loop *s2.Loop, rc *s2.RegionCoverer) s2.CellUnion {
	var ids []s2.CellID
	for _, id := range rc.Covering(loop) {
		ids = appendInterior(ids, loop, id, rc.MaxLevel)
	}
	cu := s2.CellUnion(ids)
	cu.Normalize()
	return cu
}

func appendInterior(dst []s2.CellID, loop *s2.Loop, id s2.CellID, level int) []s2.CellID {
	cell := s2.CellFromCellID(id)
	if loop.ContainsCell(cell) {
		return append(dst, id)
	}
	if !loop.IntersectsCell(cell) {
		return dst
	}
	if id.Level() >= level {
		if loop.ContainsPoint(id.Point()) {
			dst = append(dst, id)
		}
		return dst
	}
	for _, child := range id.Children() {
		dst = appendInterior(dst, loop, child, level)
	}
	return dst
}

// outerRings returns the flat coordinates of the outer ring of every
// polygon in g.
func outerRings(g geom.T) [][]float64 {
	switch g := g.(type) {
	case *geom.Polygon:
		if g.NumLinearRings() == 0 {
			return nil
		}
		return [][]float64{g.LinearRing(0).FlatCoords()}
	case *geom.MultiPolygon:
		rings := make([][]float64, 0, g.NumPolygons())
		for i := 0; i < g.NumPolygons(); i++ {
			if p := g.Polygon(i); p.NumLinearRings() > 0 {
				rings = append(rings, p.LinearRing(0).FlatCoords())
			}
		}
		return rings
	}
	return nil
}

// loopFromRing converts a closed [lng, lat] ring to a normalized S2 loop,
// dropping the closing point and repeated vertices.
func loopFromRing(flat []float64) *s2.Loop {
	pts := make([]s2.Point, 0, len(flat)/2)
	var prevLng, prevLat float64
	for i := 0; i+1 < len(flat); i += 2 {
		lng, lat := flat[i], flat[i+1]
		if i > 0 && lng == prevLng && lat == prevLat {
			continue
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng)))
		prevLng, prevLat = lng, lat
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop
}

func union(a, b geo.Bounds) geo.Bounds {
	return geo.Bounds{
		North: math.Max(a.North, b.North),
		South: math.Min(a.South, b.South),
		East:  math.Max(a.East, b.East),
		West:  math.Min(a.West, b.West),
	}
}

// overlap returns the intersection area of a and b and its fraction of the
// smaller area.
func overlap(a, b *shape) (area, fraction float64) {
	if !a.bounds.Overlaps(b.bounds) {
		return 0, 0
	}
	inter := s2.CellUnionFromIntersection(a.cover, b.cover)
	area = inter.ApproxArea()
	smaller := math.Min(a.area, b.area)
	if area == 0 || smaller == 0 {
		return 0, 0
	}
	return area, area / smaller
}

// contains reports whether the [lng, lat] point c lies inside sh.
func (sh *shape) contains(c geom.Coord) bool {
	if c.X() < sh.bounds.West || c.X() > sh.bounds.East || c.Y() < sh.bounds.South || c.Y() > sh.bounds.North {
		return false
	}
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X()))
	for _, l := range sh.loops {
		if l.ContainsPoint(p) {
			return true
		}
	}
	return false
}

// centroid returns the planar centroid of the polygons of sh.
func (sh *shape) centroid() (geom.Coord, error) {
	if len(sh.geoms) == 1 {
		return geo.Centroid(sh.geoms[0])
	}
	var polys []*geom.Polygon
	for _, g := range sh.geoms {
		switch g := g.(type) {
		case *geom.Polygon:
			polys = append(polys, g)
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				polys = append(polys, g.Polygon(i))
			}
		}
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		if err := mp.Push(p); err != nil {
			return nil, err
		}
	}
	return geo.Centroid(mp)
}
