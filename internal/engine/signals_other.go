//go:build !(darwin || freebsd || netbsd || openbsd || dragonfly)

package engine

import (
	"os"

	"golang.org/x/sys/unix"
)

var statusSignals = []os.Signal{unix.SIGUSR1}
