package geo

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// DefaultZoneKeys is the property-key priority used when no schema
// configuration is given.
var DefaultZoneKeys = []string{"BARRIO", "barrio", "texto", "zona", "ZONA", "nombre", "NOMBRE", "name", "NAME", "serie", "SERIE"}

// Feature is a geometry with its resolved zone name.
type Feature struct {
	Geometry geom.T
	// Zone is empty when no candidate property key carried a value.
	Zone string
	// SourceKey is the property key Zone was read from.
	SourceKey  string
	Properties map[string]any
}

// Collection is a normalized feature collection for one department.
type Collection struct {
	Department string
	Features   []*Feature
	Bounds     Bounds
	Center     [2]float64 // [lat, lng]
	Zoom       uint8
	// NullGeometries counts input features dropped for having no geometry.
	NullGeometries int
}

// Options configures [Parse].
type Options struct {
	// ZoneKeys is the zone-name property priority. Defaults to DefaultZoneKeys.
	ZoneKeys []string
	// Precision is the number of decimal places kept. Zero means
	// DefaultPrecision; a negative value keeps full precision.
	Precision int
}

func (o *Options) setDefaults() {
	if len(o.ZoneKeys) == 0 {
		o.ZoneKeys = DefaultZoneKeys
	}
	if o.Precision == 0 {
		o.Precision = DefaultPrecision
	}
}

// Parse decodes a GeoJSON FeatureCollection and normalizes it: geometries
// are checked against the supported kinds and reduced to XY, zone names are
// resolved, coordinates are rounded and display metadata is computed.
//
// Malformed JSON and unsupported geometry kinds are INVALID_GEOJSON errors.
// Features with a null geometry are dropped and counted.
func Parse(data []byte, department string, opts Options) (*Collection, error) {
	opts.setDefaults()

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidGeoJSON, err, "decode feature collection")
	}

	c := &Collection{Department: department}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			c.NullGeometries++
			continue
		}
		g, err := ToXY(f.Geometry)
		if err != nil {
			return nil, verrors.Wrap(verrors.ErrCodeInvalidGeoJSON, err, "feature %d", i)
		}
		if opts.Precision > 0 {
			if g, err = RoundPrecision(g, opts.Precision); err != nil {
				return nil, verrors.Wrap(verrors.ErrCodeInvalidGeoJSON, err, "feature %d", i)
			}
		}
		name, key, _ := ResolveZoneName(f.Properties, opts.ZoneKeys)
		c.Features = append(c.Features, &Feature{
			Geometry:   g,
			Zone:       name,
			SourceKey:  key,
			Properties: f.Properties,
		})
	}
	c.Refresh()
	return c, nil
}

// Refresh recomputes bounds, center and zoom from the current features.
func (c *Collection) Refresh() {
	b, ok := BoundsOf(c.Features)
	if !ok {
		c.Bounds, c.Center, c.Zoom = Bounds{}, [2]float64{}, MaxZoom
		return
	}
	c.Bounds = b
	c.Center = b.Center()
	c.Zoom = b.Zoom()
}

// ZoneNames returns the distinct non-empty zone names in feature order.
func (c *Collection) ZoneNames() []string {
	seen := make(map[string]bool, len(c.Features))
	var names []string
	for _, f := range c.Features {
		if f.Zone == "" || seen[f.Zone] {
			continue
		}
		seen[f.Zone] = true
		names = append(names, f.Zone)
	}
	return names
}

// Unnamed returns the number of features without a zone name.
func (c *Collection) Unnamed() int {
	n := 0
	for _, f := range c.Features {
		if f.Zone == "" {
			n++
		}
	}
	return n
}

// Vertices returns the total number of points across all features.
func (c *Collection) Vertices() int {
	n := 0
	for _, f := range c.Features {
		n += VertexCount(f.Geometry)
	}
	return n
}

// WithGeometries returns a copy of c whose features carry the geometries
// produced by fn. Display metadata is recomputed.
func (c *Collection) WithGeometries(fn func(geom.T) (geom.T, error)) (*Collection, error) {
	out := &Collection{
		Department:     c.Department,
		Features:       make([]*Feature, len(c.Features)),
		NullGeometries: c.NullGeometries,
	}
	for i, f := range c.Features {
		g, err := fn(f.Geometry)
		if err != nil {
			return nil, err
		}
		nf := *f
		nf.Geometry = g
		out.Features[i] = &nf
	}
	out.Refresh()
	return out, nil
}

// ResolveZoneName returns the first non-empty value among keys in props,
// and the key it was found under. String and numeric values are accepted.
// ok is false when no key yields a value.
func ResolveZoneName(props map[string]any, keys []string) (name, key string, ok bool) {
	for _, k := range keys {
		v, present := props[k]
		if !present {
			continue
		}
		if s := propertyString(v); s != "" {
			return s, k, true
		}
	}
	return "", "", false
}

func propertyString(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}
