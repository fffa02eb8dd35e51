package unsplash

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/storyline/pkg/imagesearch"
)

const (
	// HeaderRateLimit is the hourly quota header.
	HeaderRateLimit = "X-Ratelimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-Ratelimit-Remaining"

	// HeaderRateReset is the optional Unix time at which the quota resets.
	HeaderRateReset = "X-Ratelimit-Reset"

	// QuotaWindow is how long a spent quota blocks requests when no reset
	// time is reported.
	QuotaWindow = time.Hour
)

// rateLimiter combines a proactive token bucket with the quota Unsplash
// reports on every response.
type rateLimiter struct {
	mu        sync.Mutex
	remaining int // From API header; -1 until the first response
	limit     int
	resetAt   time.Time // When a spent quota may be tried again
	bucket    *rate.Limiter
	now       func() time.Time
}

func newRateLimiter(perSecond float64, burst int, now func() time.Time) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		remaining: -1,
		bucket:    rate.NewLimiter(rate.Limit(perSecond), burst),
		now:       now,
	}
}

// Wait blocks on the token bucket and fails fast while the hourly quota is
// spent. Once the reset time passes the quota is treated as unknown again.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remaining != 0 {
		return nil
	}
	if r.now().Before(r.resetAt) {
		return imagesearch.ErrRateLimited
	}
	r.remaining = -1
	return nil
}

// Update records the quota headers of a response.
func (r *rateLimiter) Update(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			if val == 0 && r.remaining != 0 {
				r.resetAt = r.now().Add(QuotaWindow)
			}
			r.remaining = val
		}
	}
	if r.remaining == 0 {
		if reset := resp.Header.Get(HeaderRateReset); reset != "" {
			if sec, err := strconv.ParseInt(reset, 10, 64); err == nil {
				r.resetAt = time.Unix(sec, 0)
			}
		}
	}
	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}
}

// Remaining returns the last reported quota, or -1 if unknown.
func (r *rateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}
