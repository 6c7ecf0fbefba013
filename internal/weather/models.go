package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceName identifies one of the supported third-party weather providers.
type SourceName string

const (
	SourceOpenWeatherMap SourceName = "openweathermap"
	SourceWeatherAPI     SourceName = "weatherapi"
	SourceWeatherBit     SourceName = "weatherbit"
)

// KnownSources lists every source variant a provider client exists for.
var KnownSources = []SourceName{SourceOpenWeatherMap, SourceWeatherAPI, SourceWeatherBit}

// ParseSourceName maps a configured name onto a known source variant.
func ParseSourceName(name string) (SourceName, error) {
	n := SourceName(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range KnownSources {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// Location represents a logical place for which we track temperature.
// City is the primary key; Country is accepted as a fallback match in queries.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Source is a configured provider: which variant, its credentials and endpoint.
type Source struct {
	Name    SourceName
	APIKey  string
	BaseURL string
}

// Reading is one temperature value returned by one source during one cycle.
// Readings are never persisted individually.
type Reading struct {
	Source       SourceName
	TemperatureC float64
}

// Sample is the persisted, rounded average temperature for one location.
type Sample struct {
	ID          int64           `json:"id"`
	City        string          `json:"city"`
	Country     string          `json:"country"`
	Temperature decimal.Decimal `json:"temperature"`
	CreatedAt   time.Time       `json:"createdAt"` // always UTC
}

// CycleResult summarizes one aggregation cycle across all locations.
type CycleResult struct {
	Written int
	Skipped int
	Failed  int
}
