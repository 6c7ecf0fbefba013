package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// SampleHistory holds the insertion-ordered samples of one location.
type SampleHistory struct {
	Samples []weather.Sample
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data   map[string]*SampleHistory
	nextID int64

	// retention configuration
	maxHistory int           // max number of samples per location
	maxAge     time.Duration // optional max age for samples

	clock clockwork.Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock retention by age is measured against.
func WithMemoryClock(c clockwork.Clock) MemoryOption {
	return func(s *MemoryStore) { s.clock = c }
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, that limit is disabled.
func NewMemoryStore(maxHistory int, maxAge time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data:       make(map[string]*SampleHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveSample assigns the next ID, appends the sample to its location's history
// and enforces retention.
func (s *MemoryStore) SaveSample(_ context.Context, sample weather.Sample) (weather.Sample, error) {
	key := weather.Location{City: sample.City, Country: sample.Country}.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sample.ID = s.nextID

	history, ok := s.data[key]
	if !ok {
		history = &SampleHistory{}
		s.data[key] = history
	}
	history.Samples = append(history.Samples, sample)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Samples) > s.maxHistory {
		over := len(history.Samples) - s.maxHistory
		history.Samples = history.Samples[over:]
	}

	// Enforce retention by age. The sample just written is always kept.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Samples)-1; i++ {
			if !history.Samples[i].CreatedAt.Before(cutoff) {
				break
			}
		}
		history.Samples = history.Samples[i:]
	}

	return sample, nil
}

// QueryRange returns samples whose city or country matches, created in [from, to).
func (s *MemoryStore) QueryRange(_ context.Context, city, country string, from, to time.Time) ([]weather.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]weather.Sample, 0)
	for _, history := range s.data {
		for _, sample := range history.Samples {
			if !matches(sample, city, country) {
				continue
			}
			if sample.CreatedAt.Before(from) || !sample.CreatedAt.Before(to) {
				continue
			}
			result = append(result, sample)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return less(result[i], result[j])
	})
	return result, nil
}

// QueryLatest returns the newest matching sample. Equal timestamps resolve to
// the later insertion.
func (s *MemoryStore) QueryLatest(_ context.Context, city, country string) (weather.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest weather.Sample
		found  bool
	)
	for _, history := range s.data {
		for _, sample := range history.Samples {
			if !matches(sample, city, country) {
				continue
			}
			if !found || less(latest, sample) {
				latest = sample
				found = true
			}
		}
	}
	if !found {
		return weather.Sample{}, weather.ErrNotFound
	}
	return latest, nil
}

// Len returns the number of samples currently retained.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, history := range s.data {
		n += len(history.Samples)
	}
	return n
}

func matches(sample weather.Sample, city, country string) bool {
	return sample.City == city || sample.Country == country
}

// less orders samples by creation time, then by ID.
func less(a, b weather.Sample) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
