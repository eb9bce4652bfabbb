package domain

import (
	"errors"
	"fmt"
)

// ErrNoStations is returned when nearest-station resolution runs against an
// empty station table. It signals a configuration problem, not a bad file.
var ErrNoStations = errors.New("station table is empty")

// ErrInvalidRecord marks a record that can never be serialized. Retrying the
// publish does not help.
var ErrInvalidRecord = errors.New("invalid forecast record")

// DecodeError reports a structurally malformed forecast file.
type DecodeError struct {
	File   string
	Line   int // 1-based, 0 when not tied to a line
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("decode %s: line %d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("decode %s: %s", e.File, e.Reason)
}

// UnknownParameterError reports a parameter label missing from the lookup.
type UnknownParameterError struct {
	File  string
	Line  int
	Label string
}

func (e *UnknownParameterError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("unknown parameter label %q", e.Label)
	}
	return fmt.Sprintf("decode %s: line %d: unknown parameter label %q", e.File, e.Line, e.Label)
}
