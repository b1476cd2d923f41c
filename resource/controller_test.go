package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Does not fit
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_MemoryBlocking(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	require.NoError(t, c.AcquireMemory(context.Background(), 100))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.AcquireMemory(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(100), c.MemoryUsage())

	done := make(chan error, 1)
	go func() {
		done <- c.AcquireMemory(context.Background(), 10)
	}()

	c.ReleaseMemory(10)
	require.NoError(t, <-done)
	assert.Equal(t, int64(100), c.MemoryUsage())
}

func TestController_RequestAboveLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 8})

	err := c.AcquireMemory(context.Background(), 9)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Zero(t, c.MemoryUsage())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1<<40))
	assert.Equal(t, int64(1<<40), c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())

	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.MemoryUsage())
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireMemory(context.Background(), 10))
	assert.True(t, c.TryAcquireMemory(10))
	c.ReleaseMemory(10) // Should not panic
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<20))
	assert.True(t, c.TryAcquireIO(1<<20))
}

func TestController_IOAboveBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Larger than the bucket: admitted in steps instead of failing.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, c.AcquireIO(ctx, (1<<20)+1))
}

func TestRateLimitedWriterReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx := context.Background()

	var buf bytes.Buffer
	w := NewRateLimitedWriter(ctx, &buf, c)
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	r := NewRateLimitedReader(ctx, &buf, c)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestRateLimitedWriter_Canceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	w := NewRateLimitedWriter(ctx, &buf, c)
	_, err := w.Write([]byte("x"))
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
