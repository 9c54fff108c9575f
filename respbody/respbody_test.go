package respbody

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesBodyYieldsOnce(t *testing.T) {
	b := Bytes([]byte("payload"))

	n, ok := b.Len()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	chunk, err := b.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(chunk))

	_, err = b.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStringBody(t *testing.T) {
	b := String("hello")
	chunk, err := b.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(chunk))
}

type fakeRelease struct{ released bool }

func (f *fakeRelease) ReleaseRead() error {
	f.released = true
	return nil
}

func TestFileBodyStreamsAndReleasesLockOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	content := make([]byte, fileChunkSize+100)
	for i := range content {
		content[i] = byte('a' + i%26)
	}
	require.NoError(t, os.WriteFile(path, content, 0o600))

	lock := &fakeRelease{}
	body, err := OpenFile(path, lock)
	require.NoError(t, err)

	n, ok := body.Len()
	require.True(t, ok)
	assert.Equal(t, int64(len(content)), n)

	var collected []byte
	for {
		chunk, err := body.Next()
		collected = append(collected, chunk...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, content, collected)

	require.NoError(t, body.Close())
	assert.True(t, lock.released)
}

func TestFileBodyRefusesDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenFile(dir, &fakeRelease{})
	assert.Error(t, err)
}

func TestGeneratorBodyUnknownLength(t *testing.T) {
	calls := 0
	g := NewGenerator(func() ([]byte, error) {
		calls++
		if calls == 1 {
			return []byte("x"), nil
		}
		return nil, io.EOF
	}, nil)

	_, ok := g.Len()
	assert.False(t, ok)

	chunk, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", string(chunk))

	_, err = g.Next()
	assert.Equal(t, io.EOF, err)
}
