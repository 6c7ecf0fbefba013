package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// BreakerConfig controls the per-provider circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker once reached.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// HalfOpenRequests is how many calls may pass while half-open. Set it to
	// the worker count so concurrent locations are not turned away.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		Timeout:             2 * time.Minute,
		HalfOpenRequests:    1,
	}
}

var (
	errUnexpectedStatus = errors.New("unexpected status code")
	errInvalidBaseURL   = errors.New("invalid base url")
	errNoHTTPClient     = errors.New("http client not configured")
	errMissingTemp      = errors.New("temperature field missing")
	errNonFiniteTemp    = errors.New("temperature is not a finite number")
)

// statusError is a non-2xx response from a provider.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %d", errUnexpectedStatus, e.code)
}

func (e *statusError) Unwrap() error {
	return errUnexpectedStatus
}

// isClientError reports whether err is a 4xx answer about a single request,
// such as an unknown city. Those say nothing about the provider's health.
// 429 is a provider-wide throttle and still counts.
func isClientError(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
}

func newCircuitBreaker(name weather.SourceName, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = DefaultBreakerConfig().ConsecutiveFailures
	}
	halfOpen := cfg.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = DefaultBreakerConfig().HalfOpenRequests
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(name),
		MaxRequests: halfOpen,
		Interval:    1 * time.Minute,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})
}

// buildURL appends params to the configured base URL. The base must be an
// absolute http or https URL.
func buildURL(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errInvalidBaseURL, base)
	}

	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// getJSON performs a single GET through the circuit breaker and decodes the
// body into dst. Request building and decoding problems are malformed
// responses; everything on the wire is a transport failure. There is no retry.
func getJSON(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	source weather.Source,
	params url.Values,
	dst any,
) error {
	if client == nil {
		return weather.NewTransportError(source.Name, errNoHTTPClient)
	}

	rawURL, err := buildURL(source.BaseURL, params)
	if err != nil {
		return weather.NewMalformedResponseError(source.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return weather.NewMalformedResponseError(source.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return weather.NewTransportError(source.Name, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return weather.NewTransportError(source.Name, fmt.Errorf("unexpected result type from circuit breaker"))
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return weather.NewMalformedResponseError(source.Name, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

// newReading validates an extracted temperature and wraps it as a reading.
func newReading(name weather.SourceName, temp *float64) (weather.Reading, error) {
	if temp == nil {
		return weather.Reading{}, weather.NewMalformedResponseError(name, errMissingTemp)
	}
	if math.IsNaN(*temp) || math.IsInf(*temp, 0) {
		return weather.Reading{}, weather.NewMalformedResponseError(name, errNonFiniteTemp)
	}
	return weather.Reading{Source: name, TemperatureC: *temp}, nil
}
