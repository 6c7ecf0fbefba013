package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a network or HTTP failure reaching a source.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse marks a response without a usable temperature, or a request that could not be built.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnknownSource is returned when configuration names a source no provider client exists for.
	ErrUnknownSource = errors.New("unknown weather source")
	// ErrNotFound is returned by Store.QueryLatest when no sample matches.
	ErrNotFound = errors.New("no temperature data for location")
	// ErrNoProviders is returned when aggregation is attempted without any configured provider.
	ErrNoProviders = errors.New("no weather providers configured")
)

// ProviderError is the failure of a single Fetch. Kind is ErrTransport or ErrMalformedResponse.
type ProviderError struct {
	Source SourceName
	Kind   error
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewTransportError wraps err as a transport failure of source.
func NewTransportError(source SourceName, err error) *ProviderError {
	return &ProviderError{Source: source, Kind: ErrTransport, Err: err}
}

// NewMalformedResponseError wraps err as a malformed response from source.
func NewMalformedResponseError(source SourceName, err error) *ProviderError {
	return &ProviderError{Source: source, Kind: ErrMalformedResponse, Err: err}
}

// failureKind returns the metric label for a provider failure.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
