package engine

import (
	"fmt"
	"io"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/event"
	"github.com/bamsammich/ddx/internal/stats"
)

// DefaultBlockSize is used for ibs and obs when neither is given.
const DefaultBlockSize = 512

// StatusLevel selects how much transfer information is reported.
type StatusLevel int

const (
	StatusDefault StatusLevel = iota
	StatusNone
	StatusNoXfer
	StatusProgress
)

func (l StatusLevel) String() string {
	switch l {
	case StatusNone:
		return "none"
	case StatusNoXfer:
		return "noxfer"
	case StatusProgress:
		return "progress"
	default:
		return "default"
	}
}

// Offset is a stream position expressed as whole records plus bytes.
type Offset struct {
	Records int64
	Bytes   int64
}

// IsZero reports whether o does not move the stream.
func (o Offset) IsZero() bool { return o.Records == 0 && o.Bytes == 0 }

// In returns the offset in bytes for the given record size.
func (o Offset) In(blockSize int) int64 {
	return o.Records*int64(blockSize) + o.Bytes
}

// Checkpointer persists copy progress so an interrupted copy can resume.
type Checkpointer interface {
	// Save records that the first records input and output records are
	// complete and durable enough to be skipped on resume.
	Save(records int64) error
}

// Config describes a block copy. It is built once before Run and never
// modified by the engine.
type Config struct {
	// Input and Output are paths; empty selects Stdin and Stdout.
	Input  string
	Output string
	Stdin  io.Reader
	Stdout io.Writer

	IBS int
	OBS int
	CBS int

	// Count limits the number of input records, or input bytes when
	// CountBytes is set. Negative means no limit.
	Count      int64
	CountBytes bool

	Skip Offset // input records and bytes to discard
	Seek Offset // output records and bytes to skip

	Conv conv.Flags

	// Input flags.
	FullBlock bool
	InNoCache bool

	// Output flags.
	Append     bool
	SyncWrites bool // O_SYNC
	DSync      bool // O_DSYNC
	OutNoCache bool

	Status StatusLevel

	// Optional collaborators.
	Events     chan<- event.Event
	Stats      *stats.Collector
	StatusFlag *StatusFlag
	Checkpoint Checkpointer

	// BWLimit caps output throughput in bytes per second; 0 is unlimited.
	BWLimit int64
	// Hash names the output digest algorithm; empty disables it.
	Hash string
}

// Validate checks the invariants the copy loop relies on.
func (c *Config) Validate() error {
	switch {
	case c.IBS <= 0:
		return newError(InvalidConfig, "config", "", fmt.Errorf("ibs must be positive, got %d", c.IBS))
	case c.OBS <= 0:
		return newError(InvalidConfig, "config", "", fmt.Errorf("obs must be positive, got %d", c.OBS))
	case c.CBS < 0:
		return newError(InvalidConfig, "config", "", fmt.Errorf("cbs must not be negative, got %d", c.CBS))
	case c.Skip.Records < 0 || c.Skip.Bytes < 0 || c.Seek.Records < 0 || c.Seek.Bytes < 0:
		return newError(InvalidConfig, "config", "", fmt.Errorf("skip and seek must not be negative"))
	case c.Conv.Has(conv.Excl | conv.NoCreat):
		return newError(InvalidConfig, "config", "", fmt.Errorf("cannot combine excl and nocreat"))
	}
	if c.Hash != "" {
		if _, err := newDigest(c.Hash); err != nil {
			return newError(InvalidConfig, "config", "", err)
		}
	}
	return nil
}

func (c *Config) inputName() string {
	if c.Input == "" {
		return "standard input"
	}
	return c.Input
}

func (c *Config) outputName() string {
	if c.Output == "" {
		return "standard output"
	}
	return c.Output
}
