package export

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lca-intake/internal/intake"
)

// gatedLoader blocks every load until release is closed and counts calls.
type gatedLoader struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func newGatedLoader(err error) *gatedLoader {
	return &gatedLoader{release: make(chan struct{}), err: err}
}

func (g *gatedLoader) load(ctx context.Context) (*SheetWriter, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return NewSheetWriter("")
}

func TestCapability_SingleLoadForConcurrentCallers(t *testing.T) {
	g := newGatedLoader(nil)
	c := NewCapability(g.load, 0)
	assert.Equal(t, StateIdle, c.State())

	var wg sync.WaitGroup
	writers := make([]*SheetWriter, 5)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := c.Acquire(context.Background())
			assert.NoError(t, err)
			writers[i] = w
		}(i)
	}

	require.Eventually(t, func() bool { return c.State() == StateLoading }, time.Second, time.Millisecond)
	close(g.release)
	wg.Wait()

	assert.Equal(t, int32(1), g.calls.Load())
	assert.Equal(t, StateReady, c.State())
	for _, w := range writers {
		assert.Same(t, writers[0], w)
	}
}

func TestCapability_TryAcquireWhileLoading(t *testing.T) {
	g := newGatedLoader(nil)
	c := NewCapability(g.load, 0)

	_, err := c.TryAcquire()
	require.ErrorIs(t, err, ErrCapabilityLoading)
	assert.Equal(t, "EXP001", intake.MapError(err).Code)
	assert.Equal(t, StateLoading, c.State())

	close(g.release)
	require.Eventually(t, func() bool { return c.State() == StateReady }, time.Second, time.Millisecond)

	w, err := c.TryAcquire()
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestCapability_CallerContextEndsFirst(t *testing.T) {
	g := newGatedLoader(nil)
	c := NewCapability(g.load, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateLoading, c.State(), "load continues for other callers")

	close(g.release)
	w, err := c.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestCapability_FailureIsRememberedUntilReset(t *testing.T) {
	g := newGatedLoader(errors.New("template missing"))
	close(g.release)
	c := NewCapability(g.load, 0)

	_, err := c.Acquire(context.Background())
	require.ErrorIs(t, err, ErrCapabilityFailed)
	assert.Contains(t, err.Error(), "template missing")
	assert.Equal(t, "EXP002", intake.MapError(err).Code)

	st := c.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "template missing", st.Error)

	_, err = c.TryAcquire()
	assert.ErrorIs(t, err, ErrCapabilityFailed)
	assert.Equal(t, int32(1), g.calls.Load(), "no retry without reset")

	assert.True(t, c.Reset())
	assert.False(t, c.Reset())
	assert.Equal(t, StateIdle, c.State())

	g.err = nil
	_, err = c.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), g.calls.Load())
}

func TestCapability_LoadTimeout(t *testing.T) {
	g := newGatedLoader(nil)
	c := NewCapability(g.load, 10*time.Millisecond)

	_, err := c.Acquire(context.Background())
	require.ErrorIs(t, err, ErrCapabilityFailed)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestCapability_Start(t *testing.T) {
	c := NewCapability(DefaultLoader(""), 0)
	c.Start()
	c.Start()
	require.Eventually(t, func() bool { return c.State() == StateReady }, 5*time.Second, time.Millisecond)
}
