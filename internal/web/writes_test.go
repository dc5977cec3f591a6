package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWriteLimiter_AcquireRelease(t *testing.T) {
	limiter := NewWriteLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Status(); got.Active != 0 || got.Available != 2 || got.MaxConcurrent != 2 {
		t.Fatalf("initial Status = %+v", got)
	}

	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if got := limiter.Status(); got.Active != 2 || got.Available != 0 {
		t.Errorf("full Status = %+v", got)
	}

	limiter.Release()
	limiter.Release()
	if got := limiter.Status(); got.Active != 0 || got.Available != 2 {
		t.Errorf("drained Status = %+v", got)
	}
}

func TestWriteLimiter_Timeout(t *testing.T) {
	limiter := NewWriteLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyWrites) {
		t.Fatalf("Acquire error = %v, want ErrTooManyWrites", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("Acquire returned before the wait elapsed")
	}
}

func TestWriteLimiter_ContextCancelled(t *testing.T) {
	limiter := NewWriteLimiter(1, time.Minute)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire error = %v, want context.Canceled", err)
	}
}

func TestWriteLimiter_Defaults(t *testing.T) {
	limiter := NewWriteLimiter(0, 0)
	if got := limiter.Status().MaxConcurrent; got != DefaultMaxConcurrentWrites {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentWrites)
	}
	if limiter.maxWait != DefaultWriteWait {
		t.Errorf("maxWait = %v, want %v", limiter.maxWait, DefaultWriteWait)
	}
}

func TestWriteLimiter_ConcurrentNeverExceedsMax(t *testing.T) {
	const max = 3
	limiter := NewWriteLimiter(max, time.Second)

	var (
		mu   sync.Mutex
		peak int
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			mu.Lock()
			if a := limiter.Status().Active; a > peak {
				peak = a
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			limiter.Release()
		}()
	}
	wg.Wait()

	if peak > max {
		t.Errorf("peak active = %d, want <= %d", peak, max)
	}
}

func TestWriteLimiter_Middleware(t *testing.T) {
	limiter := NewWriteLimiter(1, 20*time.Millisecond)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	h := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/Orders", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("busy status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	limiter.Release()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/Orders", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("free status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if got := limiter.Status().Active; got != 0 {
		t.Errorf("Active after request = %d, want 0", got)
	}
}
