// Package store keeps the most recently published forecast of each type in
// memory for the query API.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/domain"
)

// Snapshot is the latest decoded file of one forecast type.
type Snapshot struct {
	ForecastType   string                  `json:"forecast_type"`
	Source         string                  `json:"estimation_source"`
	EstimationTime string                  `json:"estimation_time"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Records        []domain.ForecastRecord `json:"records"`
}

// Latest holds one Snapshot per forecast type. A new file of a type replaces
// the previous one entirely. Safe for concurrent use.
type Latest struct {
	mu    sync.RWMutex
	types map[string]Snapshot
}

// NewLatest creates an empty store.
func NewLatest() *Latest {
	return &Latest{types: make(map[string]Snapshot)}
}

// Put replaces the snapshot for the records' forecast type. All records must
// come from the same file; an empty slice is ignored.
func (l *Latest) Put(records []domain.ForecastRecord, updatedAt time.Time) {
	if len(records) == 0 {
		return
	}
	first := records[0]
	snap := Snapshot{
		ForecastType:   first.ForecastType,
		Source:         first.EstimationSource,
		EstimationTime: first.EstimationTime,
		UpdatedAt:      updatedAt,
		Records:        slices.Clone(records),
	}

	l.mu.Lock()
	l.types[first.ForecastType] = snap
	l.mu.Unlock()
}

// Get returns the snapshot for a forecast type.
func (l *Latest) Get(forecastType string) (Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap, ok := l.types[forecastType]
	return snap, ok
}

// List returns all snapshots ordered by forecast type.
func (l *Latest) List() []Snapshot {
	l.mu.RLock()
	out := make([]Snapshot, 0, len(l.types))
	for _, snap := range l.types {
		out = append(out, snap)
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Snapshot) int {
		switch {
		case a.ForecastType < b.ForecastType:
			return -1
		case a.ForecastType > b.ForecastType:
			return 1
		}
		return 0
	})
	return out
}
