package pipeline

import (
	"github.com/couchcryptid/forecast-parser/internal/domain"
)

// ForecastTransformer implements Transformer by decoding a file and emitting
// one record per location.
type ForecastTransformer struct {
	lookup   domain.ParameterLookup
	resolver domain.Resolver
}

// NewTransformer creates a ForecastTransformer.
func NewTransformer(lookup domain.ParameterLookup, resolver domain.Resolver) *ForecastTransformer {
	return &ForecastTransformer{lookup: lookup, resolver: resolver}
}

func (t *ForecastTransformer) Transform(filename string, lines []string) ([]domain.ForecastRecord, error) {
	file, series, err := domain.Decode(lines, filename, t.lookup)
	if err != nil {
		return nil, err
	}
	return domain.Emit(file, series, t.resolver)
}
