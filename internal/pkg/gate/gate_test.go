package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.Equal(t, 3, New(3).Capacity())
	assert.Equal(t, 1, New(0).Capacity())
	assert.Equal(t, 1, New(-2).Capacity())
}

func TestGate_FourthWaits(t *testing.T) {
	g := New(3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.Nil(t, g.Acquire(ctx))
	}
	assert.Equal(t, 3, g.InUse())

	started := make(chan struct{})
	go func() {
		_ = g.Acquire(ctx)
		close(started)
	}()

	select {
	case <-started:
		t.Fatal("4th acquire must wait")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("4th acquire must proceed after release")
	}
	assert.Equal(t, 3, g.InUse())
}

func TestGate_CtxCancel(t *testing.T) {
	g := New(1)
	require.Nil(t, g.Acquire(context.Background()))
	ctx, cf := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cf()

	err := g.Acquire(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, g.InUse())
	g.Release()
	assert.Equal(t, 0, g.InUse())
}
