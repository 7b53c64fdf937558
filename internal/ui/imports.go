package ui

import "github.com/bamsammich/ddx/internal/event"

// Event is re-exported for presenter signatures.
type Event = event.Event

// Re-export event types for convenience.
const (
	CopyStarted      = event.CopyStarted
	StatusRequested  = event.StatusRequested
	PartialRead      = event.PartialRead
	ReadErrorSkipped = event.ReadErrorSkipped
	RecordsTruncated = event.RecordsTruncated
	SkipShortfall    = event.SkipShortfall
	CopyFinished     = event.CopyFinished
	CopyAborted      = event.CopyAborted
)
