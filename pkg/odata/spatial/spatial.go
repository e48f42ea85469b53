package spatial

import (
	"encoding/json"
	"fmt"
)

// Geometry is implemented by the GeoJSON shaped spatial payloads
type Geometry interface {
	GeometryType() string
}

// Point is used as the value object for GeographyPoint and GeometryPoint values
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func (p *Point) GeometryType() string {
	return p.Type
}

// LineString is used as the value object for GeographyLineString and GeometryLineString values
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

func (ls *LineString) GeometryType() string {
	return ls.Type
}

// Polygon is used as the value object for GeographyPolygon and GeometryPolygon values
type Polygon struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

func (p *Polygon) GeometryType() string {
	return p.Type
}

// MultiPolygon is used as the value object for GeographyMultiPolygon and GeometryMultiPolygon values
type MultiPolygon struct {
	Type        string           `json:"type"`
	Coordinates [][][][2]float64 `json:"coordinates"`
}

func (mp *MultiPolygon) GeometryType() string {
	return mp.Type
}

// NewPoint creates a point from a WGS84 coordinate
func NewPoint(longitude, latitude float64) *Point {
	return &Point{
		Type:        "Point",
		Coordinates: [2]float64{longitude, latitude},
	}
}

func NewLineString(coordinates [][2]float64) *LineString {
	return &LineString{
		Type:        "LineString",
		Coordinates: coordinates,
	}
}

func NewPolygon(coordinates [][][2]float64) *Polygon {
	return &Polygon{
		Type:        "Polygon",
		Coordinates: coordinates,
	}
}

func NewMultiPolygon(coordinates [][][][2]float64) *MultiPolygon {
	return &MultiPolygon{
		Type:        "MultiPolygon",
		Coordinates: coordinates,
	}
}

// Unmarshal builds a Geometry from a decoded GeoJSON object
func Unmarshal(body map[string]any) (Geometry, error) {
	geoType, ok := body["type"]
	if !ok {
		return nil, fmt.Errorf("geometries without a type are not supported")
	}

	geoTypeStr, ok := geoType.(string)
	if !ok {
		return nil, fmt.Errorf("geometry type value is of an unconvertible type")
	}

	untypedCoordinates, ok := body["coordinates"]
	if !ok {
		return nil, fmt.Errorf("unable to unmarshal %s with no coordinates", geoTypeStr)
	}

	switch geoTypeStr {
	case "Point":
		pos, err := position(untypedCoordinates)
		if err != nil {
			return nil, fmt.Errorf("malformed point: %w", err)
		}
		return NewPoint(pos[0], pos[1]), nil
	case "LineString":
		line, err := positions(untypedCoordinates)
		if err != nil {
			return nil, fmt.Errorf("malformed linestring: %w", err)
		}
		return NewLineString(line), nil
	case "Polygon":
		rings, err := polygon(untypedCoordinates)
		if err != nil {
			return nil, fmt.Errorf("malformed polygon: %w", err)
		}
		return NewPolygon(rings), nil
	case "MultiPolygon":
		list, ok := untypedCoordinates.([]any)
		if !ok {
			return nil, fmt.Errorf("malformed multipolygon coordinates")
		}
		coords := make([][][][2]float64, 0, len(list))
		for _, p := range list {
			rings, err := polygon(p)
			if err != nil {
				return nil, fmt.Errorf("malformed multipolygon: %w", err)
			}
			coords = append(coords, rings)
		}
		return NewMultiPolygon(coords), nil
	default:
		return nil, fmt.Errorf("unknown geometry type %s not supported", geoTypeStr)
	}
}

func position(v any) ([2]float64, error) {
	coordinates, ok := v.([]any)
	if !ok {
		return [2]float64{}, fmt.Errorf("position is not an array")
	}
	if len(coordinates) < 2 {
		return [2]float64{}, fmt.Errorf("position array has insufficient length (%d < 2)", len(coordinates))
	}

	lon, okLon := coordinate(coordinates[0])
	lat, okLat := coordinate(coordinates[1])
	if !okLon || !okLat {
		return [2]float64{}, fmt.Errorf("position not convertible to float64")
	}

	return [2]float64{lon, lat}, nil
}

// coordinate accepts both float64 and json.Number, depending on how the document was decoded
func coordinate(v any) (float64, bool) {
	switch c := v.(type) {
	case float64:
		return c, true
	case json.Number:
		f, err := c.Float64()
		return f, err == nil
	}
	return 0, false
}

func positions(v any) ([][2]float64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("positions is not an array")
	}

	coords := make([][2]float64, 0, len(list))
	for _, p := range list {
		pos, err := position(p)
		if err != nil {
			return nil, err
		}
		coords = append(coords, pos)
	}

	return coords, nil
}

func polygon(v any) ([][][2]float64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("rings is not an array")
	}

	rings := make([][][2]float64, 0, len(list))
	for _, r := range list {
		ring, err := positions(r)
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}

	return rings, nil
}
