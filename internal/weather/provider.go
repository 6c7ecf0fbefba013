package weather

import (
	"context"
	"time"
)

// Provider abstracts one configured weather source (OpenWeatherMap, WeatherAPI, WeatherBit).
// A Fetch makes a single attempt; failures are returned as *ProviderError.
type Provider interface {
	Name() SourceName
	Fetch(ctx context.Context, loc Location) (Reading, error)
}

// Store is the contract the in-memory store and the PostgreSQL store satisfy.
//
// QueryRange and QueryLatest match samples whose city equals city OR whose
// country equals country. QueryRange returns samples with CreatedAt in
// [from, to) ordered by CreatedAt then ID; an empty result is not an error.
// QueryLatest returns ErrNotFound when nothing matches.
type Store interface {
	SaveSample(ctx context.Context, sample Sample) (Sample, error)
	QueryRange(ctx context.Context, city, country string, from, to time.Time) ([]Sample, error)
	QueryLatest(ctx context.Context, city, country string) (Sample, error)
}

// SamplePublisher receives every sample after it has been persisted.
type SamplePublisher interface {
	PublishSample(ctx context.Context, sample Sample) error
}
