package platform

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("durable"))
	require.NoError(t, err)

	require.NoError(t, Fsync(f))
	require.NoError(t, Fdatasync(f))
}

func TestSync_ClosedFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Error(t, Fsync(f))
}

func TestDropCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.NoError(t, DropCache(f, 0, 0))
	assert.NoError(t, DropCache(f, 4096, 4096))
}

func TestDropCache_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.NoError(t, DropCache(r, 0, 0))
}

func TestRetryEINTR(t *testing.T) {
	calls := 0
	err := retryEINTR(func() error {
		calls++
		if calls < 3 {
			return syscall.EINTR
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = retryEINTR(func() error { return syscall.EIO })
	assert.ErrorIs(t, err, syscall.EIO)
	assert.True(t, IsInterrupted(syscall.EINTR))
	assert.False(t, IsInterrupted(syscall.EIO))
}
