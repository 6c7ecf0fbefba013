package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

var errNoObservations = errors.New("response carries no observations")

// WeatherBitProvider implements the weather.Provider interface for Weatherbit.io.
type WeatherBitProvider struct {
	source  weather.Source
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherBitProvider(client *http.Client, source weather.Source, breaker BreakerConfig) *WeatherBitProvider {
	source.Name = weather.SourceWeatherBit
	return &WeatherBitProvider{
		source:  source,
		client:  client,
		circuit: newCircuitBreaker(source.Name, breaker),
	}
}

func (p *WeatherBitProvider) Name() weather.SourceName {
	return p.source.Name
}

func (p *WeatherBitProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	values := url.Values{}
	values.Set("key", p.source.APIKey)
	values.Set("city", loc.City)

	var payload struct {
		Data []struct {
			Temp *float64 `json:"temp"`
		} `json:"data"`
	}
	if err := getJSON(ctx, p.client, p.circuit, p.source, values, &payload); err != nil {
		return weather.Reading{}, err
	}
	if len(payload.Data) == 0 {
		return weather.Reading{}, weather.NewMalformedResponseError(p.source.Name, errNoObservations)
	}

	// Only the first observation is used.
	return newReading(p.source.Name, payload.Data[0].Temp)
}
