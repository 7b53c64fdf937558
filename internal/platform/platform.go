// Package platform wraps the durability and cache syscalls used by the
// copy engine, retrying them when a signal interrupts the call.
package platform

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ODSync is the open flag requesting synchronized data writes.
const ODSync = unix.O_DSYNC

// Fsync flushes data and metadata of f to stable storage.
func Fsync(f *os.File) error {
	return retryEINTR(func() error {
		return unix.Fsync(int(f.Fd())) //nolint:gosec // G115: fd values are small non-negative integers
	})
}

// Fdatasync flushes the data of f to stable storage. On platforms without
// fdatasync it falls back to a full fsync.
func Fdatasync(f *os.File) error {
	return retryEINTR(func() error {
		return fdatasync(int(f.Fd())) //nolint:gosec // G115: fd values are small non-negative integers
	})
}

// DropCache advises the kernel that the byte range of f will not be reused.
// A length of zero covers everything from offset to the end of the file.
// The advice is best effort; unsupported files return nil.
func DropCache(f *os.File, offset, length int64) error {
	err := retryEINTR(func() error {
		return dropCache(int(f.Fd()), offset, length) //nolint:gosec // G115: fd values are small non-negative integers
	})
	if errors.Is(err, unix.ESPIPE) || errors.Is(err, unix.EINVAL) {
		return nil
	}
	return err
}

// IsInterrupted reports whether err is EINTR.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

func retryEINTR(fn func() error) error {
	for {
		err := fn()
		if !IsInterrupted(err) {
			return err
		}
	}
}
