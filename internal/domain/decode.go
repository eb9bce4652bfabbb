package domain

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the fixed YYYYMMDDHH format used for calculation times
// and forecast horizon labels.
const TimestampLayout = "2006010215"

const (
	commentMarker    = "#"
	validTimesMarker = "# Valid times:"

	// missingValue in the fifth field of a data row marks the row as "no data".
	missingValue = -99

	// sentinelToken is the 0-based field index checked against missingValue,
	// before any unit conversion.
	sentinelToken = 4

	kelvinOffset = 273.15
)

var (
	// iterationRe extracts the calculation time from the first line of the
	// iteration layout, e.g. "# Iteration = 2024010100".
	iterationRe = regexp.MustCompile(`Iteration = (\d+)`)

	// parameterLabelRe captures a parameter label from a comment line: the text
	// after the first run of spaces, provided it contains a lowercase letter.
	parameterLabelRe = regexp.MustCompile(` +(.+[a-z].+)`)
)

type decodeState int

const (
	stateAwaitingHeader decodeState = iota
	stateAwaitingHorizonList
	stateAccumulatingRows
)

// header is what a layout reads from the top of a file before the shared
// body state machine takes over.
type header struct {
	calculationTime string
	horizons        []string // nil when the body declares them
	lines           int      // number of lines consumed
	idColumns       int      // leading identity columns on every data row
	kelvin          bool     // convert "temperature" parameters from Celsius
}

// layout is implemented once per Format.
type layout interface {
	readHeader(file string, lines []string) (header, error)
}

func layoutFor(f Format) layout {
	if f == FormatConWx {
		return conwxLayout{}
	}
	return iterationLayout{}
}

// Decode parses the lines of one forecast dump into per-location parameter
// series. The layout is chosen from the file name. On error nothing is
// returned: a file decodes completely or not at all.
func Decode(lines []string, filename string, lookup ParameterLookup) (ForecastFile, []ParameterSeries, error) {
	name := filepath.Base(filename)
	format := DetectFormat(name)

	d := &decoder{file: name, lookup: lookup, state: stateAwaitingHeader, blockIndex: map[string]int{}}
	if len(lines) == 0 {
		return ForecastFile{}, nil, &DecodeError{File: name, Reason: "empty file"}
	}

	h, err := layoutFor(format).readHeader(name, lines)
	if err != nil {
		return ForecastFile{}, nil, err
	}
	d.start(h)

	for i := h.lines; i < len(lines); i++ {
		if err := d.consume(i+1, lines[i]); err != nil {
			return ForecastFile{}, nil, err
		}
	}
	d.flush()

	meta := ForecastFile{
		Format:          format,
		CalculationTime: h.calculationTime,
		Filename:        name,
	}
	return meta, d.result(), nil
}

type iterationLayout struct{}

func (iterationLayout) readHeader(file string, lines []string) (header, error) {
	m := iterationRe.FindStringSubmatch(lines[0])
	if m == nil {
		return header{}, &DecodeError{File: file, Line: 1, Reason: `missing "Iteration = " header`}
	}
	return header{calculationTime: m[1], lines: 1}, nil
}

type conwxLayout struct{}

func (conwxLayout) readHeader(file string, lines []string) (header, error) {
	if len(lines) < 3 {
		return header{}, &DecodeError{File: file, Reason: "ConWx header needs date, minlen and maxlen lines"}
	}

	calc, err := headerValue(lines[0], "date=")
	if err != nil {
		return header{}, &DecodeError{File: file, Line: 1, Reason: err.Error()}
	}
	t0, err := time.Parse(TimestampLayout, calc)
	if err != nil {
		return header{}, &DecodeError{File: file, Line: 1, Reason: fmt.Sprintf("invalid calculation time %q", calc)}
	}
	minLen, err := headerInt(lines[1], "minlen=")
	if err != nil {
		return header{}, &DecodeError{File: file, Line: 2, Reason: err.Error()}
	}
	maxLen, err := headerInt(lines[2], "maxlen=")
	if err != nil {
		return header{}, &DecodeError{File: file, Line: 3, Reason: err.Error()}
	}
	if maxLen < minLen {
		return header{}, &DecodeError{File: file, Line: 3, Reason: fmt.Sprintf("maxlen %d is below minlen %d", maxLen, minLen)}
	}

	return header{
		calculationTime: calc,
		horizons:        HorizonLabels(t0, minLen, maxLen),
		lines:           3,
		idColumns:       2,
		kelvin:          true,
	}, nil
}

// HorizonLabels lists t0+h hours for h in [minLen, maxLen] as YYYYMMDDHH labels.
func HorizonLabels(t0 time.Time, minLen, maxLen int) []string {
	if maxLen < minLen {
		return nil
	}
	labels := make([]string, 0, maxLen-minLen+1)
	for h := minLen; h <= maxLen; h++ {
		labels = append(labels, t0.Add(time.Duration(h)*time.Hour).Format(TimestampLayout))
	}
	return labels
}

func headerValue(line, key string) (string, error) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", fmt.Errorf("missing %q header", key)
	}
	return strings.TrimSpace(line[idx+len(key):]), nil
}

func headerInt(line, key string) (int, error) {
	raw, err := headerValue(line, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %q value %q", key, raw)
	}
	return n, nil
}

// block is the decoded output of one parameter section. A parameter that
// appears twice keeps the position of its first block and the rows of its last.
type block struct {
	parameter string
	series    []ParameterSeries
}

type decoder struct {
	file   string
	lookup ParameterLookup
	state  decodeState

	horizons  []string
	idColumns int
	kelvin    bool
	parameter string
	rows      [][]float64

	blocks     []block
	blockIndex map[string]int
}

func (d *decoder) start(h header) {
	d.idColumns = h.idColumns
	d.kelvin = h.kelvin
	d.horizons = h.horizons
	if h.horizons == nil {
		d.state = stateAwaitingHorizonList
		return
	}
	d.state = stateAccumulatingRows
}

func (d *decoder) consume(lineNo int, line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if strings.HasPrefix(line, commentMarker) {
		return d.comment(lineNo, line)
	}
	return d.row(lineNo, line)
}

func (d *decoder) comment(lineNo int, line string) error {
	d.flush()

	if idx := strings.Index(line, validTimesMarker); idx >= 0 {
		if d.idColumns > 0 {
			// ConWx derives its horizons from the header.
			return nil
		}
		d.horizons = strings.Fields(line[idx+len(validTimesMarker):])
		d.state = stateAccumulatingRows
		return nil
	}

	m := parameterLabelRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	name, err := d.lookup.Resolve(m[1])
	if err != nil {
		return &UnknownParameterError{File: d.file, Line: lineNo, Label: m[1]}
	}
	d.parameter = name
	return nil
}

func (d *decoder) row(lineNo int, line string) error {
	if d.state != stateAccumulatingRows {
		return &DecodeError{File: d.file, Line: lineNo, Reason: `data row before "Valid times" header`}
	}
	if d.parameter == "" {
		return &DecodeError{File: d.file, Line: lineNo, Reason: "data row before parameter label"}
	}

	tokens := strings.Fields(line)
	want := d.idColumns + 2 + len(d.horizons)
	if len(tokens) != want {
		return &DecodeError{File: d.file, Line: lineNo, Reason: fmt.Sprintf("expected %d fields, got %d", want, len(tokens))}
	}

	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return &DecodeError{File: d.file, Line: lineNo, Reason: fmt.Sprintf("field %d: invalid number %q", i+1, tok)}
		}
		switch {
		case math.IsNaN(v):
			// Missing values publish as 0.
			v = 0
		case math.IsInf(v, 0):
			return &DecodeError{File: d.file, Line: lineNo, Reason: fmt.Sprintf("field %d: non-finite value %q", i+1, tok)}
		}
		values[i] = v
	}
	if values[sentinelToken] == missingValue {
		return nil
	}
	d.rows = append(d.rows, values)
	return nil
}

// flush finalizes the buffered rows of the current parameter into series.
// It is the only place a ParameterSeries is created.
func (d *decoder) flush() {
	if len(d.rows) == 0 {
		return
	}

	convert := d.kelvin && strings.Contains(d.parameter, "temperature")
	series := make([]ParameterSeries, 0, len(d.rows))
	byKey := make(map[string]int, len(d.rows))

	for _, r := range d.rows {
		loc := NewRawLocation(r[d.idColumns], r[d.idColumns+1])
		values := append([]float64(nil), r[d.idColumns+2:]...)
		if convert {
			for i := range values {
				values[i] += kelvinOffset
			}
		}
		s := ParameterSeries{
			Parameter: d.parameter,
			Location:  loc,
			Horizons:  d.horizons,
			Values:    values,
		}
		if i, ok := byKey[loc.Key()]; ok {
			series[i] = s
			continue
		}
		byKey[loc.Key()] = len(series)
		series = append(series, s)
	}

	if i, ok := d.blockIndex[d.parameter]; ok {
		d.blocks[i].series = series
	} else {
		d.blockIndex[d.parameter] = len(d.blocks)
		d.blocks = append(d.blocks, block{parameter: d.parameter, series: series})
	}
	d.rows = d.rows[:0]
}

func (d *decoder) result() []ParameterSeries {
	var out []ParameterSeries
	for _, b := range d.blocks {
		out = append(out, b.series...)
	}
	return out
}
