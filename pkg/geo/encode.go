package geo

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom/encoding/geojson"

	geohash "github.com/TomiHiltunen/geohash-golang"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// Property keys added to every encoded feature.
const (
	PropZone      = "zone"
	PropSourceKey = "source_key"
)

// MapMetadata is the metadata block of the map artifact.
type MapMetadata struct {
	Department string     `json:"department"`
	Bounds     Bounds     `json:"bounds"`
	Center     [2]float64 `json:"center"`
	Zoom       uint8      `json:"zoom"`
	Geohash    string     `json:"geohash,omitempty"`
	Features   int        `json:"features"`
	Vertices   int        `json:"vertices"`
}

type mapDocument struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
	Metadata MapMetadata        `json:"metadata"`
}

// Metadata returns the metadata block describing c.
func (c *Collection) Metadata() MapMetadata {
	m := MapMetadata{
		Department: c.Department,
		Bounds:     c.Bounds,
		Center:     c.Center,
		Zoom:       c.Zoom,
		Features:   len(c.Features),
		Vertices:   c.Vertices(),
	}
	if len(c.Features) > 0 {
		m.Geohash = geohash.Encode(c.Center[0], c.Center[1])
	}
	return m
}

// MarshalJSON encodes c as the map artifact.
func (c *Collection) MarshalJSON() ([]byte, error) {
	doc := mapDocument{
		Type:     "FeatureCollection",
		Features: make([]*geojson.Feature, 0, len(c.Features)),
		Metadata: c.Metadata(),
	}
	for _, f := range c.Features {
		props := make(map[string]any, len(f.Properties)+2)
		for k, v := range f.Properties {
			props[k] = v
		}
		props[PropZone] = f.Zone
		if f.SourceKey != "" {
			props[PropSourceKey] = f.SourceKey
		}
		doc.Features = append(doc.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: props,
		})
	}
	return json.Marshal(doc)
}

// EncodedSize returns the size in bytes of the encoded map artifact.
func (c *Collection) EncodedSize() (int, error) {
	data, err := c.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("encode map: %w", err)
	}
	return len(data), nil
}

// ReadMap decodes a map artifact written by [Collection.MarshalJSON]. Zone
// names and source keys are restored from the feature properties, and the
// properties the encoder added are removed again, so re-encoding the result
// reproduces the input.
func ReadMap(data []byte) (*Collection, error) {
	var meta struct {
		Metadata MapMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidGeoJSON, err, "decode map metadata")
	}
	c, err := Parse(data, meta.Metadata.Department, Options{ZoneKeys: []string{PropZone}, Precision: -1})
	if err != nil {
		return nil, err
	}
	for _, f := range c.Features {
		if k, ok := f.Properties[PropSourceKey].(string); ok {
			f.SourceKey = k
		}
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			if k != PropZone && k != PropSourceKey {
				props[k] = v
			}
		}
		f.Properties = props
	}
	return c, nil
}
