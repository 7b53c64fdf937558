//go:build !linux

package platform

import "golang.org/x/sys/unix"

func fdatasync(fd int) error {
	return unix.Fsync(fd)
}

// dropCache is a no-op where posix_fadvise is unavailable.
func dropCache(_ int, _, _ int64) error {
	return nil
}
