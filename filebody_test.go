package exchange

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watt-toolkit/exchange/lock"
)

func TestFileServerOpenStreamsAndReleasesLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o600))

	registry := lock.NewRegistry()
	fs := NewFileServer(registry, time.Second)

	body, err := fs.Open(context.Background(), path, "owner-1")
	require.NoError(t, err)

	var collected []byte
	for {
		chunk, err := body.Next()
		collected = append(collected, chunk...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "contents", string(collected))
	require.NoError(t, body.Close())

	tok, err := registry.AcquireWrite(context.Background(), path, "owner-2", time.Second)
	require.NoError(t, err)
	require.NoError(t, registry.Release(tok))
}

func TestFileServerOpenTranslatesLockTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o600))

	registry := lock.NewRegistry()
	_, err := registry.AcquireWrite(context.Background(), path, "writer", time.Second)
	require.NoError(t, err)

	fs := NewFileServer(registry, 20*time.Millisecond)
	_, err = fs.Open(context.Background(), path, "reader")
	require.Error(t, err)

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindLockTimeout, exErr.Kind)
}
