package domain

import "strings"

// Format identifies one of the supported raw forecast layouts.
type Format int

const (
	FormatGenericIteration Format = iota
	FormatConWx
)

func (f Format) String() string {
	switch f {
	case FormatGenericIteration:
		return "generic"
	case FormatConWx:
		return "conwx"
	default:
		return "unknown"
	}
}

// DetectFormat picks the layout from the file name. Only ConWx dumps carry
// "ConWx" in their name; everything else is the iteration layout.
func DetectFormat(filename string) Format {
	if strings.Contains(filename, "ConWx") {
		return FormatConWx
	}
	return FormatGenericIteration
}

// ForecastType returns the leading token of the file name, e.g.
// "ENetNEA_2024010100.txt" -> "ENetNEA".
func ForecastType(filename string) string {
	name, _, _ := strings.Cut(filename, "_")
	return name
}
