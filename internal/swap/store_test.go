package swap

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/internal/fs"
	"github.com/hupe1980/tilestore/internal/resource"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(append([]Option{WithDir(dir)}, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func readAll(t *testing.T, s *Store, slot Slot) []byte {
	t.Helper()
	var out []byte
	require.NoError(t, s.Read(t.Context(), slot, func(frame []byte) error {
		out = bytes.Clone(frame)
		return nil
	}))
	return out
}

func TestStore_WriteRead(t *testing.T) {
	s, dir := newTestStore(t)

	a := bytes.Repeat([]byte{1}, 100)
	b := bytes.Repeat([]byte{2}, 3000)

	sa, err := s.Write(t.Context(), a, Slot{})
	require.NoError(t, err)
	sb, err := s.Write(t.Context(), b, Slot{})
	require.NoError(t, err)

	assert.True(t, sa.Valid())
	assert.Equal(t, 100, sa.Len())
	assert.Equal(t, BlockSize-checksumSize, sa.Cap())
	assert.Equal(t, 3000, sb.Len())

	assert.Equal(t, a, readAll(t, s, sa))
	assert.Equal(t, b, readAll(t, s, sb))

	st := s.Stats()
	assert.Equal(t, 1, st.Files)
	assert.Equal(t, int64(BlockSize+6*BlockSize), st.UsedBytes)
	assert.Equal(t, int64(2), st.Writes)
	assert.Equal(t, int64(2), st.Reads)
	assert.False(t, st.MapFailure)
	require.NoError(t, s.Err())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RewriteInPlace(t *testing.T) {
	s, _ := newTestStore(t)

	slot, err := s.Write(t.Context(), bytes.Repeat([]byte{1}, 1000), Slot{})
	require.NoError(t, err)

	// Smaller frame reuses the slot.
	again, err := s.Write(t.Context(), []byte("short"), slot)
	require.NoError(t, err)
	assert.Equal(t, slot.file, again.file)
	assert.Equal(t, slot.block, again.block)
	assert.Equal(t, slot.blocks, again.blocks)
	assert.Equal(t, "short", string(readAll(t, s, again)))
	assert.Equal(t, int64(1), s.Stats().Rewrites)

	// Larger frame moves and releases the old slot.
	big := bytes.Repeat([]byte{3}, 5000)
	moved, err := s.Write(t.Context(), big, again)
	require.NoError(t, err)
	assert.NotEqual(t, again.block, moved.block)
	assert.Equal(t, big, readAll(t, s, moved))
	assert.Equal(t, int64(again.blocks)*BlockSize, s.Stats().FreeBytes)
}

func TestStore_FreeListReuse(t *testing.T) {
	s, _ := newTestStore(t)

	var slots []Slot
	for i := 0; i < 4; i++ {
		slot, err := s.Write(t.Context(), []byte{byte(i)}, Slot{})
		require.NoError(t, err)
		slots = append(slots, slot)
	}

	s.Free(slots[2])
	s.Free(slots[1])
	s.Free(slots[1]) // double free is ignored
	assert.Equal(t, int64(2*BlockSize), s.Stats().FreeBytes)
	assert.Equal(t, int64(2*BlockSize), s.Stats().UsedBytes)

	// Lowest free slot of the class comes back first.
	got, err := s.Write(t.Context(), []byte("x"), Slot{})
	require.NoError(t, err)
	assert.Equal(t, slots[1].block, got.block)

	// A different size class does not consume the remaining free slot.
	big, err := s.Write(t.Context(), make([]byte, 2*BlockSize), Slot{})
	require.NoError(t, err)
	assert.Greater(t, big.block, slots[3].block)
	assert.Equal(t, int64(BlockSize), s.Stats().FreeBytes)

	s.Free(Slot{})
}

func TestStore_FileRollover(t *testing.T) {
	s, dir := newTestStore(t, WithMaxFileSize(4*BlockSize))

	var slots []Slot
	for i := 0; i < 10; i++ {
		slot, err := s.Write(t.Context(), bytes.Repeat([]byte{byte(i)}, 700), Slot{})
		require.NoError(t, err)
		slots = append(slots, slot)
	}

	assert.Equal(t, 5, s.Stats().Files)
	for i, slot := range slots {
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 700), readAll(t, s, slot))
	}

	_, err := s.Write(t.Context(), make([]byte, 4*BlockSize), Slot{})
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	require.NoError(t, s.Close())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Checksum(t *testing.T) {
	s, _ := newTestStore(t)

	slot, err := s.Write(t.Context(), []byte("pixels"), Slot{})
	require.NoError(t, err)

	off := int64(slot.block)*BlockSize + checksumSize
	_, err = s.files[slot.file].f.WriteAt([]byte("P"), off)
	require.NoError(t, err)

	err = s.Read(t.Context(), slot, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestStore_InvalidSlot(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Read(t.Context(), Slot{}, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidSlot)

	err = s.Read(t.Context(), Slot{file: 3, blocks: 1}, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestStore_CreateFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.SetFailOnCreate(true)
	s, _ := newTestStore(t, WithFileSystem(ffs))

	_, err := s.Write(t.Context(), []byte("x"), Slot{})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Stats().Files)
}

func TestStore_WriteFailureReleasesSlot(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	s, _ := newTestStore(t, WithFileSystem(ffs))

	_, err := s.Write(t.Context(), []byte("ok"), Slot{})
	require.NoError(t, err)

	ffs.SetLimit(ffs.GetWritten())
	_, err = s.Write(t.Context(), []byte("fails"), Slot{})
	require.Error(t, err)

	st := s.Stats()
	assert.Equal(t, int64(BlockSize), st.UsedBytes)
	assert.Equal(t, int64(BlockSize), st.FreeBytes)
}

func TestStore_TruncateFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("tilestore-swap-", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true})
	s, _ := newTestStore(t, WithFileSystem(ffs))

	_, err := s.Write(t.Context(), []byte("x"), Slot{})
	assert.Error(t, err)
}

func TestStore_RateLimited(t *testing.T) {
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	s, _ := newTestStore(t, WithResourceController(rc))

	slot, err := s.Write(t.Context(), []byte("limited"), Slot{})
	require.NoError(t, err)
	assert.Equal(t, "limited", string(readAll(t, s, slot)))
}

func TestStore_Closed(t *testing.T) {
	s, _ := newTestStore(t)
	slot, err := s.Write(t.Context(), []byte("x"), Slot{})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Write(t.Context(), []byte("x"), Slot{})
	assert.ErrorIs(t, err, ErrClosed)
	err = s.Read(t.Context(), slot, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	s.Free(slot)
}
