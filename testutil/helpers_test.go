package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContexts(t *testing.T) {
	ctx := TestContextWithTimeout(t, time.Minute)
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	assert.ErrorIs(t, CancelledContext().Err(), context.Canceled)
}

func TestWaitFor(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		n.Store(1)
	}()
	assert.True(t, WaitFor(func() bool { return n.Load() == 1 }, 2*time.Second))
	assert.False(t, WaitFor(func() bool { return false }, 20*time.Millisecond))
}

func TestWaitForChannel(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	v, ok := WaitForChannel(ch, time.Second)
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = WaitForChannel(ch, 10*time.Millisecond)
	assert.False(t, ok)
}
