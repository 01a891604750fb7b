// Package geo normalizes administrative boundary collections for map
// rendering.
//
// # Geometry
//
// Geometries are decoded once from GeoJSON into go-geom values and
// restricted to the supported kinds: Point, LineString, MultiLineString,
// Polygon and MultiPolygon (see [KindOf]). Everything downstream switches
// on that tag instead of inspecting coordinate nesting. All coordinates are
// reduced to the XY layout, [longitude, latitude] in WGS84 degrees.
//
// [MapSequences] rebuilds a geometry by applying a function to each of its
// coordinate sequences (lines and rings). Precision reduction and
// simplification are both expressed through it.
//
// # Zone Names
//
// Boundary files label their polygons inconsistently (BARRIO, texto, zona,
// name, ...). [ResolveZoneName] walks an ordered list of candidate
// property keys and reports the first non-empty value together with the key
// it came from. Features without any candidate keep an empty zone name and
// surface as unmatched during zone matching.
//
// # Display Metadata
//
// [Parse] computes the collection's bounds, center and zoom. The zoom is
// an approximate display heuristic,
//
//	zoom = clamp(round(8 - log2(max(width, height))), 9, 13)
//
// with width and height in degrees, not a projection computation.
//
// # Map Artifact
//
// A [Collection] encodes to the {dept}_map.json artifact: a GeoJSON
// FeatureCollection whose features carry the resolved zone name, plus a
// top-level metadata object with bounds, center, zoom and size figures.
package geo
