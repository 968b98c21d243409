package mmap

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "mmap_test")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	_, err = f.Write(content)
	require.NoError(t, err)
	return f
}

func TestMap_ReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	f := tempFile(t, content)

	m, err := Map(f.Fd(), len(content))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	assert.False(t, m.Writable())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	buf3 := make([]byte, 10)
	n, err = m.ReadAt(buf3, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "Mmap!", string(buf3[:n]))

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestMap_SeesLaterWrites(t *testing.T) {
	f := tempFile(t, make([]byte, 4096))

	m, err := Map(f.Fd(), 4096)
	require.NoError(t, err)
	defer m.Close()

	_, err = f.WriteAt([]byte("swapped"), 512)
	require.NoError(t, err)

	r, err := m.Region(512, 7)
	require.NoError(t, err)
	assert.Equal(t, "swapped", string(r.Bytes()))
	assert.NoError(t, r.Advise(AccessRandom))
}

func TestMap_Empty(t *testing.T) {
	f := tempFile(t, nil)

	m, err := Map(f.Fd(), 0)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Advise(AccessSequential))

	_, err = Map(f.Fd(), -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestAnon(t *testing.T) {
	m, err := Anon(1 << 16)
	require.NoError(t, err)

	assert.True(t, m.Writable())
	data := m.Bytes()
	require.Len(t, data, 1<<16)
	data[0], data[len(data)-1] = 1, 2
	assert.Equal(t, byte(1), m.Bytes()[0])

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = Anon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapping_AfterClose(t *testing.T) {
	f := tempFile(t, []byte("data"))

	m, err := Map(f.Fd(), 4)
	require.NoError(t, err)
	r, err := m.Region(1, 2)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.Nil(t, r.Bytes())
	assert.Error(t, m.Advise(AccessRandom))
	assert.Error(t, r.Advise(AccessDefault))
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMapping_RegionBounds(t *testing.T) {
	m, err := Anon(1024)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(1000, 100)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	r, err := m.Region(100, 200)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 200)
}
