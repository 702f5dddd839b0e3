package export

// capability.go loads the spreadsheet writer lazily and at most once.
//
// The first Acquire starts the load in the background. Concurrent callers
// queue on the same load instead of starting their own. A caller whose
// context ends while waiting gets the context error; the load carries on
// for everyone else. A failed load stays failed until Reset.
//
// JSON, CSV and PDF exports never touch the capability, so they keep
// working while the spreadsheet writer is loading or unavailable.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/lca-intake/internal/metrics"
)

var (
	// ErrCapabilityLoading is returned by TryAcquire while a load is in flight.
	ErrCapabilityLoading = errors.New("spreadsheet capability is loading")

	// ErrCapabilityFailed wraps the cause of a failed load.
	ErrCapabilityFailed = errors.New("spreadsheet capability unavailable")
)

// CapabilityState is the lifecycle state of a Capability.
type CapabilityState string

const (
	StateIdle    CapabilityState = "idle"
	StateLoading CapabilityState = "loading"
	StateReady   CapabilityState = "ready"
	StateFailed  CapabilityState = "failed"
)

// Loader produces the spreadsheet writer.
type Loader func(ctx context.Context) (*SheetWriter, error)

// DefaultLoader returns a Loader that builds a SheetWriter, optionally
// backed by the template workbook at templatePath.
func DefaultLoader(templatePath string) Loader {
	return func(ctx context.Context) (*SheetWriter, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewSheetWriter(templatePath)
	}
}

// CapabilityStatus is a point-in-time view of a Capability.
type CapabilityStatus struct {
	State CapabilityState `json:"state"`
	Error string          `json:"error,omitempty"`
}

// Capability guards the one-shot load of the spreadsheet writer.
type Capability struct {
	load    Loader
	timeout time.Duration

	mu     sync.Mutex
	state  CapabilityState
	writer *SheetWriter
	err    error
	done   chan struct{}
}

// NewCapability creates an idle capability. timeout bounds a single load;
// zero means no bound.
func NewCapability(load Loader, timeout time.Duration) *Capability {
	return &Capability{load: load, timeout: timeout, state: StateIdle}
}

// Start begins loading if the capability is idle. It never blocks.
func (c *Capability) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.startLocked()
	}
}

// Acquire returns the writer, starting the load if needed and waiting for
// it to finish or for ctx to end.
func (c *Capability) Acquire(ctx context.Context) (*SheetWriter, error) {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		w := c.writer
		c.mu.Unlock()
		return w, nil
	case StateFailed:
		err := c.failure()
		c.mu.Unlock()
		return nil, err
	case StateIdle:
		c.startLocked()
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady {
		return c.writer, nil
	}
	return nil, c.failure()
}

// TryAcquire returns the writer if it is ready. Otherwise it starts the load
// when idle and returns ErrCapabilityLoading, or the load failure.
func (c *Capability) TryAcquire() (*SheetWriter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateReady:
		return c.writer, nil
	case StateFailed:
		return nil, c.failure()
	case StateIdle:
		c.startLocked()
	}
	return nil, ErrCapabilityLoading
}

// State returns the current lifecycle state.
func (c *Capability) State() CapabilityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the state and, when failed, the cause.
func (c *Capability) Status() CapabilityStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := CapabilityStatus{State: c.state}
	if c.state == StateFailed && c.err != nil {
		st.Error = c.err.Error()
	}
	return st
}

// Reset returns a failed capability to idle so the next Acquire retries.
// It reports whether a reset happened.
func (c *Capability) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFailed {
		return false
	}
	c.state = StateIdle
	c.err = nil
	return true
}

// startLocked must be called with mu held.
func (c *Capability) startLocked() {
	c.state = StateLoading
	c.done = make(chan struct{})
	go c.run(c.done)
}

func (c *Capability) run(done chan struct{}) {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	w, err := c.load(ctx)
	if err == nil && w == nil {
		err = errors.New("loader returned no writer")
	}

	c.mu.Lock()
	if err != nil {
		c.state = StateFailed
		c.err = err
	} else {
		c.state = StateReady
		c.writer = w
	}
	close(done)
	c.mu.Unlock()

	if err != nil {
		metrics.IncCapabilityLoad(metrics.ResultError)
		slog.Error("spreadsheet capability failed to load",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	metrics.IncCapabilityLoad(metrics.ResultSuccess)
	slog.Info("spreadsheet capability ready", "duration_ms", time.Since(start).Milliseconds())
}

// failure must be called with mu held.
func (c *Capability) failure() error {
	return fmt.Errorf("%w: %v", ErrCapabilityFailed, c.err)
}
