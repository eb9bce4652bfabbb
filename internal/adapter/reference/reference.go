// Package reference loads the static lookup tables the decoder depends on:
// the station coordinate table and the parameter label lookup.
package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/forecast-parser/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadStations reads a delimited coordinate file with a header row naming
// "lon" and "lat" columns. Other columns are ignored; row order is kept.
func LoadStations(path string) ([]domain.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station table: %w", err)
	}
	defer f.Close()

	stations, err := ParseStations(f)
	if err != nil {
		return nil, fmt.Errorf("station table %s: %w", path, err)
	}
	return stations, nil
}

// ParseStations reads station rows from CSV.
func ParseStations(r io.Reader) ([]domain.Station, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	lonCol, latCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lon":
			lonCol = i
		case "lat":
			latCol = i
		}
	}
	if lonCol < 0 || latCol < 0 {
		return nil, fmt.Errorf("header %v must contain lon and lat columns", header)
	}

	var stations []domain.Station
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid lon %q", line, row[lonCol])
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid lat %q", line, row[latCol])
		}
		stations = append(stations, domain.Station{Lon: lon, Lat: lat})
	}
	return stations, nil
}

// lookupFile is the field section of the stream configuration file. Each
// field lists every label variant providers use for it.
type lookupFile struct {
	Fields []struct {
		ID   string   `yaml:"ID"`
		Text []string `yaml:"Text"`
	} `yaml:"fields"`
}

// LoadParameterLookup reads the parameter lookup from a YAML or JSON file.
func LoadParameterLookup(path string) (domain.ParameterLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter lookup: %w", err)
	}
	lookup, err := ParseParameterLookup(data)
	if err != nil {
		return nil, fmt.Errorf("parameter lookup %s: %w", path, err)
	}
	return lookup, nil
}

// ParseParameterLookup flattens the fields section into label -> parameter ID.
// A label listed under two fields is rejected.
func ParseParameterLookup(data []byte) (domain.ParameterLookup, error) {
	var file lookupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, errors.New("no fields defined")
	}

	lookup := make(domain.ParameterLookup)
	for _, field := range file.Fields {
		if field.ID == "" {
			return nil, fmt.Errorf("field with labels %v has no ID", field.Text)
		}
		for _, label := range field.Text {
			if prev, ok := lookup[label]; ok && prev != field.ID {
				return nil, fmt.Errorf("label %q maps to both %q and %q", label, prev, field.ID)
			}
			lookup[label] = field.ID
		}
	}
	return lookup, nil
}
