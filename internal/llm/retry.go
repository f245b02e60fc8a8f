package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"stock-parody/manager-go/internal/utils"
)

const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = time.Minute
)

// Backoff is base doubled per attempt (0-based), capped at limit.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 0 || base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if limit > 0 && d >= limit {
			return limit
		}
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// Retrying retries overloaded, rate-limited and transient failures of the wrapped
// Client. Other errors and context cancellation return immediately.
type Retrying struct {
	Client     Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Limiter    *rate.Limiter
	Sleep      func(ctx context.Context, d time.Duration) error
}

func NewRetrying(client Client, maxRetries int, base, limit time.Duration) *Retrying {
	return &Retrying{Client: client, MaxRetries: maxRetries, BaseDelay: base, MaxDelay: limit}
}

// WithRateLimit paces calls to perMinute requests.
func (r *Retrying) WithRateLimit(perMinute int) *Retrying {
	if perMinute > 0 {
		r.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return r
}

func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	for attempt := 0; ; attempt++ {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := r.Client.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) {
			return "", err
		}
		if attempt >= r.MaxRetries {
			return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}

		delay := Backoff(attempt, r.BaseDelay, r.MaxDelay)
		utils.Warn("llm call failed; backing off", "attempt", attempt+1, "max_retries", r.MaxRetries, "delay", delay, "err", err)
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (r *Retrying) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
