// Package domain decodes raw weather-model forecast dumps into per-station
// forecast records.
//
// # Data Source
//
// Forecast providers drop fixed-layout text files into a shared folder. Two
// layouts exist, told apart by file name:
//
//	ENetNEA_2024010100.txt, EnetEcm_2024010100.txt  →  iteration layout
//	ConWx_prog_2024010100_048.dat                   →  ConWx layout
//
// Both are line oriented. Lines starting with "#" are comments; every other
// line is a whitespace-separated row of numbers.
//
// # Iteration Layout
//
//	# Forecast Iteration = 2024010100
//	# Valid times: 2024010106 2024010112
//	# Temperature 2m
//	10.12 55.34 1.5 2.5
//
// The first line carries the calculation time after "Iteration = ". A
// "# Valid times:" comment lists the forecast horizons for the blocks that
// follow. Any other comment whose label contains a lowercase letter names the
// parameter of the next block; the label is translated through a
// [ParameterLookup]. Rows are "<lon> <lat> <v1> ... <vN>".
//
// # ConWx Layout
//
//	#date=2024010100
//	#minlen=0
//	#maxlen=48
//	# temperature 2m
//	101 7 10.12 55.34 1.5 2.5 ...
//
// Horizons are date + h hours for h in [minlen, maxlen]. Rows carry two
// identity columns before the position. ConWx temperatures are in Celsius and
// are converted to Kelvin (+273.15); the iteration layout is already Kelvin.
//
// # Conventions
//
// Missing data:
//
//	A fifth token of exactly -99 marks the whole row as "no data"; the row is
//	dropped before any unit conversion.
//
// Locations:
//
//	Grid coordinates are rounded to 2 decimals and joined with "_" to form a
//	composite key ("10.12_55.34"). Records are published under the nearest
//	station by L1 distance, formatted "%.2f_%.2f" from the station's own
//	coordinates.
//
// Timestamps:
//
//	Calculation times and horizons are YYYYMMDDHH in UTC ([TimestampLayout]).
//
// # Fixture Rebasing
//
// [Rebase] shifts the embedded timestamps of a template file so that synthetic
// input files can be produced for any run time. See [DefaultMaxForecastHours]
// for how coincidental 10-digit numbers are told apart from timestamps.
package domain
