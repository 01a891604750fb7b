package classify

import "fmt"

// DefaultPalette is a sequential palette, lightest first. Entry 0 is the
// no-data color.
var DefaultPalette = []string{
	"#f7f7f7",
	"#deebf7",
	"#c6dbef",
	"#9ecae1",
	"#6baed6",
	"#3182bd",
	"#08519c",
}

// Scale maps values to palette entries through a set of breaks.
type Scale struct {
	Method  Method
	Breaks  []float64
	Palette []string
}

// NewScale computes breaks over values and binds them to palette. A nil
// palette uses DefaultPalette.
func NewScale(values []float64, k int, m Method, palette []string) (*Scale, error) {
	if palette == nil {
		palette = DefaultPalette
	}
	if len(palette) < 2 {
		return nil, fmt.Errorf("palette needs at least 2 colors, got %d", len(palette))
	}
	breaks, err := Breaks(values, k, m)
	if err != nil {
		return nil, err
	}
	return &Scale{Method: m, Breaks: breaks, Palette: palette}, nil
}

// Index returns the palette index of v. Zero and negative values map to
// 0; class i maps to i+1, clamped to the palette.
func (s *Scale) Index(v float64) int {
	if !(v > 0) {
		return 0
	}
	idx := Class(v, s.Breaks) + 1
	if idx >= len(s.Palette) {
		idx = len(s.Palette) - 1
	}
	return idx
}

// ColorOf returns the palette color of v.
func (s *Scale) ColorOf(v float64) string {
	return s.Palette[s.Index(v)]
}
