package arcgis

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ProactiveRate is the steady request rate towards a portal.
	ProactiveRate = 5.0

	// ProactiveBurst allows short bursts such as lookup followed by export.
	ProactiveBurst = 5

	// DefaultRetryAfter is used when a 429 carries no Retry-After header.
	DefaultRetryAfter = 60 * time.Second

	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter paces requests to a portal.
// A token bucket throttles proactively; a 429 response blocks further
// requests until the portal's Retry-After has passed. The rejected request
// itself is not retried.
type RateLimiter struct {
	mu           sync.Mutex
	bucket       *rate.Limiter
	blockedUntil time.Time
	now          func() time.Time
}

// NewRateLimiter creates a rate limiter with the default pacing.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithRate(ProactiveRate, ProactiveBurst)
}

// NewRateLimiterWithRate creates a rate limiter allowing perSecond requests
// with the given burst. A non-positive rate disables proactive throttling.
func NewRateLimiterWithRate(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(limit, burst),
		now:    time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	until := r.blockedUntil
	now := r.now()
	r.mu.Unlock()

	if now.Before(until) {
		timer := time.NewTimer(until.Sub(now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// CheckRateLimit inspects a response for HTTP 429.
// Returns a RateLimitError if rate limited, nil otherwise.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	resetAt := now.Add(DefaultRetryAfter)
	if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			resetAt = now.Add(time.Duration(seconds) * time.Second)
		} else if t, err := http.ParseTime(retryAfter); err == nil {
			resetAt = t
		}
	}
	if resetAt.After(r.blockedUntil) {
		r.blockedUntil = resetAt
	}

	return &RateLimitError{ResetAt: resetAt}
}

// BlockedUntil returns the time before which requests are held back.
func (r *RateLimiter) BlockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockedUntil
}
