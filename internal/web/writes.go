package web

// writes.go bounds how many mutating requests reach the store at once. When
// every slot is taken a request waits up to maxWait and then fails with 503.

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyWrites is returned when no write slot frees up within the wait.
var ErrTooManyWrites = errors.New("too many concurrent writes, please try again later")

// Defaults applied when the configured values are not positive.
const (
	DefaultMaxConcurrentWrites = 32
	DefaultWriteWait           = 5 * time.Second
)

// WriteLimiter is a weighted semaphore over in-flight writes.
type WriteLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewWriteLimiter allows at most maxConcurrent simultaneous writes.
func NewWriteLimiter(maxConcurrent int, maxWait time.Duration) *WriteLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentWrites
	}
	if maxWait <= 0 {
		maxWait = DefaultWriteWait
	}
	return &WriteLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller must Release after a nil return.
func (l *WriteLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyWrites
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *WriteLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// WriteLimiterStatus is a point-in-time view of the limiter.
type WriteLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current usage for /healthz.
func (l *WriteLimiter) Status() WriteLimiterStatus {
	active := int(l.active.Load())
	return WriteLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}

// middleware holds a slot for the lifetime of the request.
func (l *WriteLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := l.Acquire(r.Context()); err != nil {
			w.Header().Set("Retry-After", "1")
			writeJSONStatus(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "TOO_MANY_WRITES"})
			return
		}
		defer l.Release()
		next.ServeHTTP(w, r)
	})
}
