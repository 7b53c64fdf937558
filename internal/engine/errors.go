package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind int

const (
	KindUnknown Kind = iota
	SourceOpenFailed
	SinkOpenFailed
	ReadFailed
	WriteFailed
	SeekUnsupported
	PositioningFailed
	SyncFailed
	Interrupted
	RecordTruncated
	Terminated
	InvalidConfig
)

var kindNames = [...]string{
	KindUnknown:       "Unknown",
	SourceOpenFailed:  "SourceOpenFailed",
	SinkOpenFailed:    "SinkOpenFailed",
	ReadFailed:        "ReadFailed",
	WriteFailed:       "WriteFailed",
	SeekUnsupported:   "SeekUnsupported",
	PositioningFailed: "PositioningFailed",
	SyncFailed:        "SyncFailed",
	Interrupted:       "Interrupted",
	RecordTruncated:   "RecordTruncated",
	Terminated:        "Terminated",
	InvalidConfig:     "InvalidConfig",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Op   string // "open", "read", "write", "skip", "seek", "sync", "truncate"
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
