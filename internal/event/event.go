package event

import (
	"time"

	"github.com/bamsammich/ddx/internal/stats"
)

// Type identifies the kind of event.
type Type int

const (
	CopyStarted Type = iota + 1
	StatusRequested
	PartialRead
	ReadErrorSkipped
	RecordsTruncated
	SkipShortfall
	CopyFinished
	CopyAborted
)

var typeNames = [...]string{
	CopyStarted:      "CopyStarted",
	StatusRequested:  "StatusRequested",
	PartialRead:      "PartialRead",
	ReadErrorSkipped: "ReadErrorSkipped",
	RecordsTruncated: "RecordsTruncated",
	SkipShortfall:    "SkipShortfall",
	CopyFinished:     "CopyFinished",
	CopyAborted:      "CopyAborted",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single notification from the copy engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string         // input or output path, "" for stdio
	Offset    int64          // byte offset of a skipped read error
	Count     int64          // records skipped short, or truncated
	Stats     stats.Snapshot // counters at the time of the event
	Error     error
}
