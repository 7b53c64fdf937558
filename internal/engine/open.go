package engine

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/platform"
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// source is the input stream.
type source struct {
	r      io.Reader
	f      *os.File // nil unless the input is an *os.File
	name   string
	closer io.Closer

	// size is known only for regular files (and sized readers); it lets a
	// seek past end-of-input report how many records were not skipped.
	size      int64
	sizeKnown bool
	offset    int64
}

func openSource(cfg *Config) (*source, error) {
	s := &source{name: cfg.inputName()}
	if cfg.Input == "" {
		s.r = cfg.Stdin
		if s.r == nil {
			s.r = os.Stdin
		}
	} else {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, newError(SourceOpenFailed, "open", cfg.Input, err)
		}
		s.r, s.closer = f, f
	}

	switch r := s.r.(type) {
	case *os.File:
		s.f = r
		if st, err := r.Stat(); err == nil && st.Mode().IsRegular() {
			s.size, s.sizeKnown = st.Size(), true
		}
	case interface{ Size() int64 }:
		s.size, s.sizeKnown = r.Size(), true
	}
	return s, nil
}

func (s *source) read(p []byte) Outcome {
	o := classify(s.r.Read(p))
	s.offset += int64(o.N)
	return o
}

func (s *source) seeker() (io.Seeker, bool) {
	sk, ok := s.r.(io.Seeker)
	return sk, ok
}

// interrupt unblocks a pending read on streams that support deadlines.
func (s *source) interrupt() {
	if d, ok := s.r.(readDeadliner); ok {
		_ = d.SetReadDeadline(time.Now())
	}
}

func (s *source) close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// sink is the output stream.
type sink struct {
	w        io.Writer // write primitive, possibly rate limited
	raw      io.Writer
	f        *os.File
	name     string
	closer   io.Closer
	readable bool
}

// openFlags returns the open(2) flags for the output file.
func openFlags(cfg *Config) int {
	flags := os.O_CREATE
	switch {
	case cfg.Conv.Has(conv.NoCreat):
		flags = 0
	case cfg.Conv.Has(conv.Excl):
		flags |= os.O_EXCL
	}
	if !cfg.Conv.Has(conv.NoTrunc) && cfg.Seek.IsZero() && !cfg.Append {
		flags |= os.O_TRUNC
	}
	if cfg.Append {
		flags |= os.O_APPEND
	}
	if cfg.SyncWrites {
		flags |= os.O_SYNC
	}
	if cfg.DSync {
		flags |= platform.ODSync
	}
	return flags
}

func openSink(cfg *Config) (*sink, error) {
	s := &sink{name: cfg.outputName()}
	if cfg.Output == "" {
		s.raw = cfg.Stdout
		if s.raw == nil {
			s.raw = os.Stdout
		}
		s.f, _ = s.raw.(*os.File)
	} else {
		flags := openFlags(cfg)
		var (
			f   *os.File
			err error
		)
		// Reading past existing data is the fallback when seeking the
		// output fails, which needs read access.
		if !cfg.Seek.IsZero() {
			f, err = os.OpenFile(cfg.Output, flags|os.O_RDWR, 0o666)
			s.readable = err == nil
		}
		if f == nil {
			f, err = os.OpenFile(cfg.Output, flags|os.O_WRONLY, 0o666)
		}
		if err != nil {
			return nil, newError(SinkOpenFailed, "open", cfg.Output, err)
		}
		s.raw, s.f, s.closer = f, f, f
	}
	s.w = s.raw

	if s.f != nil && !cfg.Seek.IsZero() && !cfg.Conv.Has(conv.NoTrunc) && !cfg.Append {
		if err := truncateTo(s.f, cfg.Seek.In(cfg.OBS)); err != nil {
			s.close()
			return nil, newError(SinkOpenFailed, "truncate", s.name, err)
		}
	}
	return s, nil
}

// truncateTo cuts a regular file to size. Devices and pipes cannot be
// truncated and are left alone.
func truncateTo(f *os.File, size int64) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return nil
	}
	return f.Truncate(size)
}

func (s *sink) seeker() (io.Seeker, bool) {
	sk, ok := s.raw.(io.Seeker)
	return sk, ok
}

func (s *sink) interrupt() {
	if d, ok := s.raw.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now())
	}
}

func (s *sink) close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
