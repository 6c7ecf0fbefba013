package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	source  weather.Source
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, source weather.Source, breaker BreakerConfig) *WeatherAPIProvider {
	source.Name = weather.SourceWeatherAPI
	return &WeatherAPIProvider{
		source:  source,
		client:  client,
		circuit: newCircuitBreaker(source.Name, breaker),
	}
}

func (p *WeatherAPIProvider) Name() weather.SourceName {
	return p.source.Name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	values := url.Values{}
	values.Set("key", p.source.APIKey)
	// WeatherAPI uses "q" for location; the city name alone is sent.
	values.Set("q", loc.City)

	var payload struct {
		Current struct {
			TempC *float64 `json:"temp_c"`
		} `json:"current"`
	}
	if err := getJSON(ctx, p.client, p.circuit, p.source, values, &payload); err != nil {
		return weather.Reading{}, err
	}

	return newReading(p.source.Name, payload.Current.TempC)
}
