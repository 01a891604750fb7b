// Package simplify reduces the vertex count of boundary geometries with the
// Douglas-Peucker algorithm.
//
// # Algorithm
//
// [Line] simplifies one coordinate sequence. The point farthest from the
// segment joining the sequence's endpoints is found; if its distance is
// strictly greater than the tolerance the sequence is split there and both
// halves are simplified, otherwise everything between the endpoints is
// dropped. Distances are point-to-segment distances with the projection
// clamped to the segment, so a zero-length segment falls back to the
// distance between points. Sequences of two points or fewer are returned
// unchanged.
//
// # Geometries
//
// [Geometry] applies [Line] to every line and ring of a geometry,
// dispatching on its kind: points are left alone, polygons and
// multipolygons are simplified ring by ring. A ring that was closed before
// simplification is closed afterwards.
//
// Tolerances are in degrees. A tolerance of zero or less returns the input
// unchanged, and the vertex count never grows.
//
// # Collections
//
// [Collection] simplifies a whole feature collection and reports vertex
// and encoded-size figures before and after, so operators can decide
// whether to rerun with a larger tolerance. Reaching a size target is not
// its concern.
package simplify
