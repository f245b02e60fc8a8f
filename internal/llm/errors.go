package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Kind int

const (
	KindFatal Kind = iota
	KindTransient
	KindRateLimited
	KindOverloaded
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindOverloaded:
		return "overloaded"
	default:
		return "fatal"
	}
}

var (
	ErrOverloaded  = errors.New("model overloaded")
	ErrRateLimited = errors.New("rate limited")
	ErrTransient   = errors.New("transient api error")
	// ErrRetriesExhausted wraps the last retryable error once the backoff budget is spent.
	ErrRetriesExhausted = errors.New("llm retries exhausted")
)

func (k Kind) sentinel() error {
	switch k {
	case KindOverloaded:
		return ErrOverloaded
	case KindRateLimited:
		return ErrRateLimited
	case KindTransient:
		return ErrTransient
	}
	return nil
}

type APIError struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *APIError) Unwrap() []error {
	if s := e.Kind.sentinel(); s != nil {
		return []error{e.Err, s}
	}
	return []error{e.Err}
}

func (e *APIError) Retryable() bool {
	return e.Kind != KindFatal
}

// KindForStatus maps an HTTP status onto the retry taxonomy. 529 is Anthropic's overload code.
func KindForStatus(status int) Kind {
	switch {
	case status == 529:
		return KindOverloaded
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusConflict:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindFatal
	}
}

// IsRetryable reports whether err should be retried at the network layer.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// classify wraps a provider error. status <= 0 means the request never got an HTTP answer.
func classify(ctx context.Context, provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if status > 0 {
		return &APIError{Provider: provider, Kind: KindForStatus(status), StatusCode: status, Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return &APIError{Provider: provider, Kind: KindTransient, Err: err}
	}
	return &APIError{Provider: provider, Kind: KindFatal, Err: err}
}
