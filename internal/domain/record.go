package domain

import (
	"fmt"
	"slices"
)

// Emit reshapes decoded series into one ForecastRecord per distinct raw
// location, in the order locations first appear. Each location is resolved to
// its nearest station, and the station's coordinates form LonLatKey, so two
// grid points near the same station yield records with the same key.
func Emit(file ForecastFile, series []ParameterSeries, resolver Resolver) ([]ForecastRecord, error) {
	type locationGroup struct {
		loc    RawLocation
		series []ParameterSeries
	}

	var groups []*locationGroup
	index := make(map[string]*locationGroup)
	for _, s := range series {
		key := s.Location.Key()
		g, ok := index[key]
		if !ok {
			g = &locationGroup{loc: s.Location}
			index[key] = g
			groups = append(groups, g)
		}
		g.series = append(g.series, s)
	}

	forecastType := ForecastType(file.Filename)
	records := make([]ForecastRecord, 0, len(groups))
	for _, g := range groups {
		station, err := resolver.Nearest(g.loc)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", g.loc.Key(), err)
		}

		horizons := g.series[0].Horizons
		rec := ForecastRecord{
			EstimationTime:   file.CalculationTime,
			EstimationSource: file.Filename,
			LonLatKey:        station.LonLatKey(),
			PositionLon:      station.Lon,
			PositionLat:      station.Lat,
			ForecastType:     forecastType,
			ForecastTime:     append([]string(nil), horizons...),
			Values:           make(map[string][]float64, len(g.series)),
		}
		for _, s := range g.series {
			if _, seen := rec.Values[s.Parameter]; !seen {
				rec.Parameters = append(rec.Parameters, s.Parameter)
			}
			rec.Values[s.Parameter] = alignValues(horizons, s)
		}
		records = append(records, rec)
	}
	return records, nil
}

// alignValues returns s's values in the order of horizons, rounded to 2
// decimals. Horizons s has no value for are filled with 0.
func alignValues(horizons []string, s ParameterSeries) []float64 {
	out := make([]float64, len(horizons))
	if slices.Equal(horizons, s.Horizons) {
		for i, v := range s.Values {
			out[i] = round2(v)
		}
		return out
	}

	pos := make(map[string]int, len(s.Horizons))
	for i, h := range s.Horizons {
		pos[h] = i
	}
	for i, h := range horizons {
		if j, ok := pos[h]; ok {
			out[i] = round2(s.Values[j])
		}
	}
	return out
}
