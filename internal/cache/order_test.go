package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseOrder(t *testing.T) {
	o := NewReleaseOrder[int]()

	_, ok := o.PopOldest()
	assert.False(t, ok)

	o.PushBack(1)
	o.PushBack(2)
	o.PushBack(3)
	assert.Equal(t, 3, o.Len())

	// Re-pushing moves a key to the back.
	o.PushBack(1)
	assert.Equal(t, 3, o.Len())
	assert.True(t, o.Contains(2))

	assert.True(t, o.Remove(3))
	assert.False(t, o.Remove(3))
	assert.False(t, o.Contains(3))

	k, ok := o.PopOldest()
	require.True(t, ok)
	assert.Equal(t, 2, k)
	k, ok = o.PopOldest()
	require.True(t, ok)
	assert.Equal(t, 1, k)
	_, ok = o.PopOldest()
	assert.False(t, ok)
}

func TestReleaseOrder_ContainsDoesNotTouch(t *testing.T) {
	o := NewReleaseOrder[string]()
	o.PushBack("a")
	o.PushBack("b")

	assert.True(t, o.Contains("a"))
	k, _ := o.PopOldest()
	assert.Equal(t, "a", k)
}

func TestReleaseOrder_Clear(t *testing.T) {
	o := NewReleaseOrder[string]()
	o.PushBack("a")
	o.PushBack("b")

	o.Clear()
	assert.Equal(t, 0, o.Len())
	assert.False(t, o.Contains("a"))
	_, ok := o.PopOldest()
	assert.False(t, ok)
}

func BenchmarkReleaseOrder_Churn(b *testing.B) {
	o := NewReleaseOrder[uint64]()
	for i := uint64(0); i < 4096; i++ {
		o.PushBack(i)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		k, _ := o.PopOldest()
		o.PushBack(k)
	}
}
