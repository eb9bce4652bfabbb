package domain

import "math"

// Resolver maps a raw grid coordinate onto a canonical station.
type Resolver interface {
	Nearest(raw RawLocation) (Station, error)
}

// StationTable is the immutable station reference table. It is safe for
// concurrent use.
type StationTable struct {
	stations []Station
}

// NewStationTable copies stations, preserving their order.
func NewStationTable(stations []Station) *StationTable {
	return &StationTable{stations: append([]Station(nil), stations...)}
}

// Len returns the number of stations in the table.
func (t *StationTable) Len() int {
	return len(t.stations)
}

// Nearest returns the station with the smallest L1 (Manhattan) distance to raw.
// On ties the station listed first wins.
func (t *StationTable) Nearest(raw RawLocation) (Station, error) {
	if len(t.stations) == 0 {
		return Station{}, ErrNoStations
	}

	best := 0
	bestDist := math.Inf(1)
	for i, s := range t.stations {
		d := math.Abs(s.Lon-raw.Lon) + math.Abs(s.Lat-raw.Lat)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return t.stations[best], nil
}
