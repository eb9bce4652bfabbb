package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// RawLocation is a model grid coordinate as it appears in a forecast dump,
// rounded to 2 decimal places.
type RawLocation struct {
	Lon float64
	Lat float64
}

// NewRawLocation rounds both coordinates to 2 decimal places.
func NewRawLocation(lon, lat float64) RawLocation {
	return RawLocation{Lon: round2(lon), Lat: round2(lat)}
}

// Key returns the composite location key, e.g. "10.12_55.34".
func (l RawLocation) Key() string {
	return strconv.FormatFloat(l.Lon, 'f', -1, 64) + "_" + strconv.FormatFloat(l.Lat, 'f', -1, 64)
}

// Station is a canonical reference coordinate that forecasts are published under.
type Station struct {
	Lon float64
	Lat float64
}

// LonLatKey formats the station coordinates as "<lon>_<lat>" with 2 decimals each.
func (s Station) LonLatKey() string {
	return strconv.FormatFloat(s.Lon, 'f', 2, 64) + "_" + strconv.FormatFloat(s.Lat, 'f', 2, 64)
}

// ParameterSeries is one decoded parameter at one raw location. Horizons and
// Values are aligned index for index.
type ParameterSeries struct {
	Parameter string
	Location  RawLocation
	Horizons  []string
	Values    []float64
}

// ForecastFile is the per-file metadata read from a forecast dump header.
type ForecastFile struct {
	Format          Format
	CalculationTime string
	Filename        string
}

// ForecastRecord is one station's forecast, the unit handed to the publisher.
type ForecastRecord struct {
	EstimationTime   string
	EstimationSource string
	LonLatKey        string
	PositionLon      float64
	PositionLat      float64
	ForecastType     string
	ForecastTime     []string
	Parameters       []string // parameter names in decode order
	Values           map[string][]float64
}

// MarshalJSON flattens the parameter arrays into top-level fields next to the
// record metadata, the shape downstream stream tables expect.
func (r ForecastRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 7+len(r.Values))
	for name, values := range r.Values {
		m[name] = values
	}
	m["estimation_time"] = r.EstimationTime
	m["estimation_source"] = r.EstimationSource
	m["lon_lat_key"] = r.LonLatKey
	m["position_lon"] = r.PositionLon
	m["position_lat"] = r.PositionLat
	m["forecast_type"] = r.ForecastType
	m["forecast_time"] = r.ForecastTime
	return json.Marshal(m)
}

// ParameterLookup maps the decorated label text found in forecast comment lines
// to a canonical parameter name.
type ParameterLookup map[string]string

// Resolve returns the canonical name for label or an *UnknownParameterError.
func (p ParameterLookup) Resolve(label string) (string, error) {
	name, ok := p[label]
	if !ok {
		return "", &UnknownParameterError{Label: label}
	}
	return name, nil
}

// round2 rounds to 2 decimals, halves to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
