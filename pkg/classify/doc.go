// Package classify computes choropleth class breaks over vote
// distributions.
//
// # Methods
//
// Three interchangeable strategies are supported, selected by [Method]:
//
//   - [Jenks]: Fisher-Jenks natural breaks. A dynamic program over the
//     sorted values minimizes within-class variance; the breaks are
//     recovered by backtracking the stored lower class limits. When the
//     number of classes is at least the number of values, the sorted
//     values themselves are returned.
//   - [Quantile]: breaks at the i/k sorted-order positions. A position
//     that falls exactly between two values takes their mean.
//   - [Equal]: breaks at min + i*(max-min)/k.
//
// All methods return a non-decreasing sequence of k+1 breaks spanning the
// full value range (Jenks in its degenerate case excepted).
//
// # No Data
//
// Zero means "no votes here" and is never part of a distribution: zero,
// negative and NaN values are removed before breaks are computed, and
// [Breaks] returns [ErrNoData] when nothing remains. When coloring, zero
// always maps to the first palette entry regardless of the breaks.
package classify
