package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLocker_SerializesPerName(t *testing.T) {
	l := NewMutexLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "events.json")
	require.NoError(t, err)

	// a different name is independent
	other, err := l.Lock(ctx, "products.json")
	require.NoError(t, err)
	other()

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(ctx, "events.json")
		if err == nil {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestMutexLocker_ContextCancel(t *testing.T) {
	l := NewMutexLocker()
	unlock, err := l.Lock(context.Background(), "f")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "f")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
