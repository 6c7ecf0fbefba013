package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// OpenWeatherMapProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherMapProvider struct {
	source  weather.Source
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherMapProvider(client *http.Client, source weather.Source, breaker BreakerConfig) *OpenWeatherMapProvider {
	source.Name = weather.SourceOpenWeatherMap
	return &OpenWeatherMapProvider{
		source:  source,
		client:  client,
		circuit: newCircuitBreaker(source.Name, breaker),
	}
}

func (p *OpenWeatherMapProvider) Name() weather.SourceName {
	return p.source.Name
}

func (p *OpenWeatherMapProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	values := url.Values{}
	values.Set("appid", p.source.APIKey)
	values.Set("q", loc.City)
	values.Set("units", "metric")

	var payload struct {
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
	}
	if err := getJSON(ctx, p.client, p.circuit, p.source, values, &payload); err != nil {
		return weather.Reading{}, err
	}

	return newReading(p.source.Name, payload.Main.Temp)
}
