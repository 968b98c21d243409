package resource

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())
	assert.False(t, c.OverMemoryLimit())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_ForceMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	c.ForceMemory(150)
	assert.Equal(t, int64(150), c.MemoryUsage())
	assert.True(t, c.OverMemoryLimit())
	assert.ErrorIs(t, c.AcquireMemory(1), ErrMemoryLimitExceeded)

	c.ReleaseMemory(100)
	assert.False(t, c.OverMemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())
	assert.False(t, c.OverMemoryLimit())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())

	assert.NoError(t, c.AcquireMemory(-1))
	c.ReleaseMemory(-1)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(t.Context()))
	require.NoError(t, c.AcquireBackground(t.Context()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireBackground(ctx))

	c.ReleaseBackground()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	assert.NoError(t, c.AcquireBackground(ctx2))
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})

	// Frames larger than the per-second rate still fit the bucket.
	assert.NoError(t, c.AcquireIO(t.Context(), 64*1024))

	// The drained bucket cannot refill a full burst before the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireIO(ctx, minIOBurst))

	unlimited := NewController(Config{})
	assert.NoError(t, unlimited.AcquireIO(t.Context(), 1<<30))
}

func TestController_IOCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})
	require.NoError(t, c.AcquireIO(t.Context(), minIOBurst))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 1024))
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireMemory(100))
	c.ForceMemory(100)
	c.ReleaseMemory(100)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
	assert.False(t, c.OverMemoryLimit())

	assert.NoError(t, c.AcquireBackground(context.Background()))
	c.ReleaseBackground()

	assert.NoError(t, c.AcquireIO(context.Background(), 100))
}

func TestRateLimitedAt(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rl")
	require.NoError(t, err)
	defer f.Close()

	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	w := NewRateLimitedWriterAt(t.Context(), f, c)
	n, err := w.WriteAt([]byte("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	r := NewRateLimitedReaderAt(t.Context(), f, nil)
	buf := make([]byte, 5)
	_, err = r.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewController(Config{IOLimitBytesPerSec: 1})
	require.NoError(t, slow.AcquireIO(t.Context(), minIOBurst))
	_, err = NewRateLimitedReaderAt(ctx, bytes.NewReader([]byte("abc")), slow).ReadAt(buf[:1], 0)
	assert.Error(t, err)
}
