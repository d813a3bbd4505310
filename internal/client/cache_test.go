package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache() (*QueryCache, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewQueryCache()
	c.now = clock.now
	return c, clock
}

func counting(calls *int32, v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return v, nil
	}
}

func TestFetch_StaleTime(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()
	var calls int32

	for i := 0; i < 3; i++ {
		v, err := Fetch(ctx, c, Key{"events", "list"}, 5*time.Second, counting(&calls, "a"))
		require.NoError(t, err)
		assert.Equal(t, "a", v)
	}
	assert.EqualValues(t, 1, calls)

	clock.advance(5 * time.Second)
	_, err := Fetch(ctx, c, Key{"events", "list"}, 5*time.Second, counting(&calls, "a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls)

	// zero stale time refetches every read
	var detail int32
	for i := 0; i < 2; i++ {
		_, err := Fetch(ctx, c, Key{"events", "detail", "1"}, 0, counting(&detail, "d"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, detail)
}

func TestFetch_ErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	c.Set(Key{"products"}, "old")
	c.Invalidate(Key{"products"})

	boom := errors.New("boom")
	_, err := Fetch(ctx, c, Key{"products"}, time.Minute, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	v, ok := c.Get(Key{"products"})
	require.True(t, ok)
	assert.Equal(t, "old", v)
}

func TestInvalidate_IsLazyAndPrefixed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	var list, detail, products int32

	_, _ = Fetch(ctx, c, Key{"events", "list"}, time.Minute, counting(&list, "l"))
	_, _ = Fetch(ctx, c, Key{"events", "detail", "1"}, time.Minute, counting(&detail, "d"))
	_, _ = Fetch(ctx, c, Key{"products"}, time.Minute, counting(&products, "p"))

	c.Invalidate(Key{"events"})
	// nothing refetched yet, values still readable
	assert.EqualValues(t, 1, list)
	v, ok := c.Get(Key{"events", "list"})
	require.True(t, ok)
	assert.Equal(t, "l", v)

	_, _ = Fetch(ctx, c, Key{"events", "list"}, time.Minute, counting(&list, "l"))
	_, _ = Fetch(ctx, c, Key{"events", "detail", "1"}, time.Minute, counting(&detail, "d"))
	_, _ = Fetch(ctx, c, Key{"products"}, time.Minute, counting(&products, "p"))
	assert.EqualValues(t, 2, list)
	assert.EqualValues(t, 2, detail)
	assert.EqualValues(t, 1, products)
}

func TestFetch_NewerRequestSupersedes(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	key := Key{"events", "list", "cake"}

	started := make(chan struct{})
	release := make(chan struct{})
	type result struct {
		v      string
		err    error
		ctxErr error
	}
	first := make(chan result, 1)
	go func() {
		var fctx context.Context
		v, err := Fetch(ctx, c, key, 0, func(ctx context.Context) (string, error) {
			fctx = ctx
			close(started)
			<-release
			return "old", nil
		})
		first <- result{v: v, err: err, ctxErr: fctx.Err()}
	}()
	<-started

	v, err := Fetch(ctx, c, key, 0, func(context.Context) (string, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(release)
	r := <-first
	assert.ErrorIs(t, r.err, ErrSuperseded)
	assert.ErrorIs(t, r.ctxErr, context.Canceled)
	assert.Empty(t, r.v)

	cached, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "new", cached)
}

func TestCancel_DropsInFlightResult(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	key := Key{"events", "detail", "7"}
	c.Set(key, "optimistic")

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, 0, func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "server", nil
		})
		done <- err
	}()
	<-started
	c.Cancel(key)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	v, _ := c.Get(key)
	assert.Equal(t, "optimistic", v)
}

func TestKey_HasPrefix(t *testing.T) {
	k := Key{"events", "detail", "1"}
	assert.True(t, k.HasPrefix(Key{"events"}))
	assert.True(t, k.HasPrefix(k))
	assert.False(t, k.HasPrefix(Key{"products"}))
	assert.False(t, Key{"events"}.HasPrefix(k))
}

func TestInvalidate_DuringFetchKeepsResultStale(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	key := Key{"events", "list", "", "0"}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, time.Minute, func(context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			close(started)
			<-release
			return "before update", nil
		})
		done <- err
	}()
	<-started
	c.Invalidate(Key{"events"})
	close(release)
	require.NoError(t, <-done)

	// the overlapping result is readable but not fresh
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "before update", v)

	v, err := Fetch(ctx, c, key, time.Minute, counting(&calls, "after update"))
	require.NoError(t, err)
	assert.Equal(t, "after update", v)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	// and the refetched value is fresh again
	_, err = Fetch(ctx, c, key, time.Minute, counting(&calls, "after update"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
