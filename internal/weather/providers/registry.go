package providers

import (
	"fmt"
	"net/http"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// New returns the provider client for source's variant. Unknown variants are a
// configuration error and fail here, before any cycle runs.
func New(client *http.Client, source weather.Source, breaker BreakerConfig) (weather.Provider, error) {
	switch source.Name {
	case weather.SourceOpenWeatherMap:
		return NewOpenWeatherMapProvider(client, source, breaker), nil
	case weather.SourceWeatherAPI:
		return NewWeatherAPIProvider(client, source, breaker), nil
	case weather.SourceWeatherBit:
		return NewWeatherBitProvider(client, source, breaker), nil
	default:
		return nil, fmt.Errorf("%w: %q", weather.ErrUnknownSource, source.Name)
	}
}

// NewAll builds one provider per configured source, in order.
func NewAll(client *http.Client, sources []weather.Source, breaker BreakerConfig) ([]weather.Provider, error) {
	provs := make([]weather.Provider, 0, len(sources))
	for _, src := range sources {
		p, err := New(client, src, breaker)
		if err != nil {
			return nil, err
		}
		provs = append(provs, p)
	}
	return provs, nil
}
