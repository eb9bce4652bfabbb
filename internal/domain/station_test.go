package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationTable_Nearest(t *testing.T) {
	table := NewStationTable([]Station{
		{Lon: 8.0, Lat: 55.0},
		{Lon: 10.1234, Lat: 55.3321},
		{Lon: 12.5, Lat: 55.7},
	})

	s, err := table.Nearest(NewRawLocation(10.12, 55.34))
	require.NoError(t, err)
	assert.Equal(t, Station{Lon: 10.1234, Lat: 55.3321}, s)

	s, err = table.Nearest(NewRawLocation(13.9, 56.1))
	require.NoError(t, err)
	assert.Equal(t, Station{Lon: 12.5, Lat: 55.7}, s)
}

func TestStationTable_UsesManhattanDistance(t *testing.T) {
	// Euclidean distance would prefer the first station (sqrt(0.5) < 0.9);
	// L1 prefers the second (1.0 > 0.9).
	table := NewStationTable([]Station{
		{Lon: 0.5, Lat: 0.5},
		{Lon: 0.9, Lat: 0.0},
	})

	s, err := table.Nearest(RawLocation{})
	require.NoError(t, err)
	assert.Equal(t, Station{Lon: 0.9, Lat: 0.0}, s)
}

func TestStationTable_TieGoesToFirst(t *testing.T) {
	table := NewStationTable([]Station{
		{Lon: 1, Lat: 0},
		{Lon: 0, Lat: 1},
		{Lon: -1, Lat: 0},
	})

	for range 3 {
		s, err := table.Nearest(RawLocation{})
		require.NoError(t, err)
		assert.Equal(t, Station{Lon: 1, Lat: 0}, s)
	}
}

func TestStationTable_Empty(t *testing.T) {
	table := NewStationTable(nil)
	_, err := table.Nearest(NewRawLocation(1, 2))
	assert.ErrorIs(t, err, ErrNoStations)
	assert.Equal(t, 0, table.Len())
}

func TestStationTable_CopiesInput(t *testing.T) {
	stations := []Station{{Lon: 1, Lat: 1}}
	table := NewStationTable(stations)
	stations[0] = Station{Lon: 99, Lat: 99}

	s, err := table.Nearest(NewRawLocation(1, 1))
	require.NoError(t, err)
	assert.Equal(t, Station{Lon: 1, Lat: 1}, s)
}

func TestStation_LonLatKey(t *testing.T) {
	assert.Equal(t, "10.12_55.33", Station{Lon: 10.1234, Lat: 55.3321}.LonLatKey())
	assert.Equal(t, "8.00_-55.10", Station{Lon: 8, Lat: -55.1}.LonLatKey())
}

func TestRawLocation_Key(t *testing.T) {
	assert.Equal(t, "10.12_55.34", NewRawLocation(10.1249, 55.3351).Key())
	assert.Equal(t, "-3.5_60", NewRawLocation(-3.5, 60).Key())
	assert.Equal(t, "10.12_55.38", NewRawLocation(10.125, 55.375).Key(), "halves round to even")
}
