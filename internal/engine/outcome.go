package engine

import (
	"errors"
	"io"
	"syscall"

	"github.com/bamsammich/ddx/internal/platform"
)

// Status tags an Outcome.
type Status int

const (
	Transferred Status = iota
	Retry
	EOF
	Failed
)

func (s Status) String() string {
	switch s {
	case Transferred:
		return "transferred"
	case Retry:
		return "interrupted"
	case EOF:
		return "eof"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one read or write primitive. N is set for
// Transferred (and may be set alongside Failed for a short transfer that
// ended in an error); Err is set only for Failed.
type Outcome struct {
	Status Status
	N      int
	Err    error
}

func transferred(n int) Outcome    { return Outcome{Status: Transferred, N: n} }
func failed(n int, err error) Outcome { return Outcome{Status: Failed, N: n, Err: err} }

// classify folds an (n, err) pair from io.Reader or io.Writer into an
// Outcome. EINTR and EAGAIN become Retry; a zero-byte read with io.EOF (or
// nil) becomes EOF.
func classify(n int, err error) Outcome {
	switch {
	case err == nil && n > 0:
		return transferred(n)
	case err == nil:
		return Outcome{Status: EOF}
	case errors.Is(err, io.EOF):
		if n > 0 {
			return transferred(n)
		}
		return Outcome{Status: EOF}
	case isInterrupted(err):
		if n > 0 {
			return transferred(n)
		}
		return Outcome{Status: Retry}
	default:
		return failed(n, err)
	}
}

func isInterrupted(err error) bool {
	return platform.IsInterrupted(err) || errors.Is(err, syscall.EAGAIN)
}
