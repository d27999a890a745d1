package upstream

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic window tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestWindow(limit int, window time.Duration, clock *fakeClock) *RateWindow {
	w := NewRateWindow(limit, window)
	w.now = clock.now
	w.sleep = func(ctx context.Context, d time.Duration) error {
		clock.advance(d)
		return ctx.Err()
	}
	return w
}

func TestRateWindowNeverExceedsLimit(t *testing.T) {
	const (
		limit  = 3
		window = 60 * time.Second
		calls  = 20
	)

	clock := newFakeClock()
	w := newTestWindow(limit, window, clock)

	var acquired []time.Time
	for i := 0; i < calls; i++ {
		if err := w.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		acquired = append(acquired, clock.now())
	}

	// Rolling property: no trailing 60s interval holds more than limit calls.
	for i := range acquired {
		count := 0
		for j := range acquired {
			d := acquired[j].Sub(acquired[i])
			if d >= 0 && d < window {
				count++
			}
		}
		if count > limit {
			t.Errorf("window starting at call %d holds %d calls, limit %d", i, count, limit)
		}
	}
}

func TestRateWindowBlocksWhenFull(t *testing.T) {
	clock := newFakeClock()
	w := newTestWindow(2, 60*time.Second, clock)

	start := clock.now()
	for i := 0; i < 2; i++ {
		if err := w.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := clock.now(); !got.Equal(start) {
		t.Errorf("first %d acquires should not wait, clock moved to %v", 2, got)
	}

	// Third call must wait out the full window.
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("third acquire: %v", err)
	}
	if got, want := clock.now().Sub(start), 60*time.Second; got != want {
		t.Errorf("third acquire waited %v, want %v", got, want)
	}
}

func TestRateWindowRespectsContextCancellation(t *testing.T) {
	w := NewRateWindow(1, time.Hour)
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Acquire(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected context error from blocked acquire")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked acquire did not observe cancellation")
	}
}

func TestRateWindowConcurrentAcquire(t *testing.T) {
	const (
		limit  = 5
		window = 200 * time.Millisecond
		calls  = 15
	)

	w := NewRateWindow(limit, window)

	var mu sync.Mutex
	var acquired []time.Time
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Acquire(context.Background()); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			acquired = append(acquired, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(acquired) != calls {
		t.Fatalf("expected %d acquisitions, got %d", calls, len(acquired))
	}

	// Sorting by time, call k+limit must start at least one window after
	// call k. Allow small scheduling skew between the window's internal
	// stamp and the externally recorded time.
	mu.Lock()
	defer mu.Unlock()
	sortTimes(acquired)
	const skew = 20 * time.Millisecond
	for i := 0; i+limit < len(acquired); i++ {
		gap := acquired[i+limit].Sub(acquired[i])
		if gap < window-skew {
			t.Errorf("calls %d and %d only %v apart, window %v", i, i+limit, gap, window)
		}
	}
}

func sortTimes(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}
