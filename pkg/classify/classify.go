package classify

import (
	"errors"
	"math"
	"sort"
	"strings"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// Method names a break computation strategy.
type Method string

const (
	Jenks    Method = "jenks"
	Quantile Method = "quantile"
	Equal    Method = "equal"
)

// Methods lists the supported methods.
var Methods = []Method{Jenks, Quantile, Equal}

// DefaultClasses is the class count used when none is configured.
const DefaultClasses = 5

// ErrNoData is returned when a distribution has no positive values.
var ErrNoData = errors.New("no positive values to classify")

// ParseMethod returns the method named s (case-insensitive).
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Jenks, Quantile, Equal:
		return m, nil
	case "equal-interval", "equal_interval":
		return Equal, nil
	}
	return "", verrors.New(verrors.ErrCodeInvalidMethod, "unknown classification method %q (want jenks, quantile or equal)", s)
}

// Breaks computes k+1 class breaks over the positive values of values
// using method m.
func Breaks(values []float64, k int, m Method) ([]float64, error) {
	if k < 1 {
		return nil, verrors.New(verrors.ErrCodeInvalidInput, "class count must be at least 1, got %d", k)
	}
	sorted := positive(values)
	if len(sorted) == 0 {
		return nil, ErrNoData
	}
	switch m {
	case Jenks:
		return jenks(sorted, k), nil
	case Quantile:
		return quantile(sorted, k), nil
	case Equal:
		return equal(sorted, k), nil
	}
	return nil, verrors.New(verrors.ErrCodeInvalidMethod, "unknown classification method %q", m)
}

// positive returns the sorted positive, finite values.
func positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 && !math.IsInf(v, 1) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func quantile(sorted []float64, k int) []float64 {
	n := len(sorted)
	breaks := make([]float64, k+1)
	breaks[0] = sorted[0]
	for i := 1; i < k; i++ {
		pos := i * n / k
		if i*n%k == 0 && pos > 0 {
			breaks[i] = (sorted[pos-1] + sorted[pos]) / 2
		} else {
			breaks[i] = sorted[pos]
		}
	}
	breaks[k] = sorted[n-1]
	return breaks
}

func equal(sorted []float64, k int) []float64 {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	step := (hi - lo) / float64(k)
	breaks := make([]float64, k+1)
	for i := range breaks {
		breaks[i] = lo + float64(i)*step
	}
	breaks[k] = hi
	return breaks
}

func jenks(sorted []float64, k int) []float64 {
	n := len(sorted)
	if k >= n {
		out := make([]float64, n)
		copy(out, sorted)
		return out
	}

	// lower[l][j] is the 1-based index of the first value in the last class
	// of the best partition of the first l values into j classes.
	lower := make([][]int, n+1)
	variance := make([][]float64, n+1)
	for i := range lower {
		lower[i] = make([]int, k+1)
		variance[i] = make([]float64, k+1)
	}
	for j := 1; j <= k; j++ {
		lower[1][j] = 1
		for l := 2; l <= n; l++ {
			variance[l][j] = math.Inf(1)
		}
	}

	for l := 2; l <= n; l++ {
		var sum, sumSq, w float64
		var v float64
		for m := 1; m <= l; m++ {
			first := l - m + 1
			val := sorted[first-1]
			w++
			sum += val
			sumSq += val * val
			v = sumSq - sum*sum/w
			prev := first - 1
			if prev == 0 {
				continue
			}
			for j := 2; j <= k; j++ {
				if cand := v + variance[prev][j-1]; variance[l][j] >= cand {
					lower[l][j] = first
					variance[l][j] = cand
				}
			}
		}
		lower[l][1] = 1
		variance[l][1] = v
	}

	breaks := make([]float64, k+1)
	breaks[0] = sorted[0]
	breaks[k] = sorted[n-1]
	end := n
	for j := k; j >= 2; j-- {
		first := lower[end][j]
		breaks[j-1] = sorted[first-2]
		end = first - 1
	}
	return breaks
}

// Class returns the class of v: the smallest i with
// breaks[i] <= v <= breaks[i+1], clamped to [0, len(breaks)-2].
func Class(v float64, breaks []float64) int {
	last := len(breaks) - 2
	if last < 0 {
		return 0
	}
	for i := 0; i <= last; i++ {
		if breaks[i] <= v && v <= breaks[i+1] {
			return i
		}
	}
	if v > breaks[len(breaks)-1] {
		return last
	}
	return 0
}
