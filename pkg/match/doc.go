// Package match reconciles the zone names of the electoral CSV with the
// zone names of the geographic polygons.
//
// # Phases
//
// [Matcher.Match] runs up to three phases, each working on the CSV zones
// the previous phases left unmatched:
//
//  1. Exact: a CSV zone equal (case-sensitive) to a polygon name matches it.
//  2. Spatial: a CSV zone that has its own electoral polygon is matched to
//     the named polygon it overlaps most, provided the overlap covers at
//     least MinOverlap of the smaller of the two polygons. The centroid
//     strategy instead picks the named polygon containing the electoral
//     polygon's centroid.
//  3. Chain: an auxiliary lookup (for example circuit to series) maps the
//     CSV zone to an intermediate code, which is then resolved exactly or
//     spatially. A->B composed with B->C yields A->C. CSV zones whose chain
//     cannot be resolved are listed with the reason.
//
// # Overlap Areas
//
// Polygon overlap is measured on the sphere with S2 cells: each polygon's
// outer rings are approximated by the cells they contain, with boundary
// cells refined to Options.CoverLevel and kept only when their center lies
// inside. The cell sets of two polygons are intersected and the
// approximate area of the intersection is compared to the areas of the
// cell sets. Polygons that only share a border share no cell. A
// bounding-box test skips pairs that cannot overlap.
//
// # Conservation
//
// Nothing is dropped. Every distinct CSV zone ends up either in CSVToGeo or
// in UnmatchedCSV, and every distinct polygon name either in GeoToCSV or in
// UnmatchedGeo. Several CSV zones may map to the same polygon.
package match
