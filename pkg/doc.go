// Package pkg provides the core libraries of votemap.
//
// # Overview
//
// votemap turns the electoral court's per-circuit vote CSVs and department
// boundary files into the JSON artifacts a choropleth viewer loads: vote
// tables per list and zone, a compact map per department, and the mapping
// between CSV zone names and polygon names.
//
// # Architecture
//
// The data flow of one department:
//
//	odn.csv / odd.csv          boundaries.geojson
//	       ↓                           ↓
//	 [votes] Aggregate          [geo] Parse (+ [geo/simplify])
//	       ↓                           ↓
//	       └────────→ [match] ←────────┘
//	                     ↓
//	              [classify] breaks
//	                     ↓
//	 [artifact] Stage → Commit   (out/<department>/...)
//
// [pipeline] runs these stages per department on a worker pool and writes
// the cross-department index.json once every worker has finished.
//
// # Main Packages
//
// ## Domain Logic
//
// [votes] - Vote CSV aggregation into per-list, per-zone tables that keep
// first-appearance order, and the odn.json/odd.json documents.
//
// [geo] - GeoJSON decoding into a closed set of geometry kinds, zone-name
// resolution by property priority, precision reduction and map metadata.
//
// [geo/simplify] - Douglas-Peucker simplification that keeps rings closed.
//
// [match] - Zone reconciliation: exact names, spatial overlap through S2
// coverings, and the circuit to series chain.
//
// [classify] - Jenks, quantile and equal-interval class breaks with a
// sequential palette.
//
// ## Infrastructure
//
// [pipeline] - Department orchestration (aggregate → geometry → match →
// classify → write) used by every CLI command.
//
// [artifact] - Atomic file writes, department staging directories and the
// index manifest.
//
// [cache] - Content-addressed cache for normalized geometry.
//
// [config] - The votemap.toml department registry.
//
// [report] - Per-department warnings, status and the run summary.
//
// [errors] - Error codes shared by all packages.
//
// [observability] - Stage and cache hooks.
//
// # Testing
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/match/...      # Specific package
//	go test -run Example ./...   # Examples only
//
// [votes]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/votes
// [geo]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/geo
// [geo/simplify]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/geo/simplify
// [match]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/match
// [classify]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/classify
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/pipeline
// [artifact]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/artifact
// [cache]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/config
// [report]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/report
// [errors]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/votemap/pkg/observability
package pkg
