package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxForecastHours bounds how far past the template base a 10-digit
// number may lie and still be treated as a timestamp.
const DefaultMaxForecastHours = 1000

const timestampDigits = len(TimestampLayout)

// TemplateBase returns the base time of a template: the text after the last
// '=' on the first line, with spaces removed.
func TemplateBase(lines []string) (time.Time, error) {
	if len(lines) == 0 {
		return time.Time{}, fmt.Errorf("template base: empty template")
	}
	first := strings.ReplaceAll(lines[0], " ", "")
	first = strings.TrimRight(first, "\r\n")
	raw := first[strings.LastIndex(first, "=")+1:]
	t0, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("template base: invalid timestamp %q: %w", raw, err)
	}
	return t0, nil
}

// Rebase shifts every timestamp in a template so that the template base maps
// to newT0 and relative offsets are kept. A timestamp is a run of exactly 10
// digits that parses as YYYYMMDDHH and lies within [0, maxForecastH) hours of
// the template base. Anything else is copied verbatim.
func Rebase(lines []string, newT0 time.Time, maxForecastH int) ([]string, error) {
	t0, err := TemplateBase(lines)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = rebaseLine(line, t0, newT0, maxForecastH)
	}
	return out, nil
}

func rebaseLine(line string, t0, newT0 time.Time, maxForecastH int) string {
	var b strings.Builder
	b.Grow(len(line))

	last := 0
	for start := 0; start < len(line); {
		if !isDigit(line[start]) {
			start++
			continue
		}
		end := start
		for end < len(line) && isDigit(line[end]) {
			end++
		}
		if end-start == timestampDigits {
			if shifted, ok := shiftTimestamp(line[start:end], t0, newT0, maxForecastH); ok {
				b.WriteString(line[last:start])
				b.WriteString(shifted)
				last = end
			}
		}
		start = end
	}

	if last == 0 {
		return line
	}
	b.WriteString(line[last:])
	return b.String()
}

func shiftTimestamp(candidate string, t0, newT0 time.Time, maxForecastH int) (string, bool) {
	t, err := time.Parse(TimestampLayout, candidate)
	if err != nil {
		return "", false
	}
	offset := t.Sub(t0)
	if offset < 0 || offset.Hours() >= float64(maxForecastH) {
		return "", false
	}
	return newT0.Add(offset).Format(TimestampLayout), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
