package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector is the Transfer State of a copy: lock-free counters written by
// the copy loop and read by presenters and the metrics endpoint.
type Collector struct {
	recordsInFull     atomic.Int64
	recordsInPartial  atomic.Int64
	recordsOutFull    atomic.Int64
	recordsOutPartial atomic.Int64
	truncated         atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	extraReads        atomic.Int64
	readErrors        atomic.Int64
	startTime         time.Time

	// Ring buffer, written only by the progress presenter's Tick.
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes out per second
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// Reader is the read side of a Collector.
type Reader interface {
	Snapshot() Snapshot
}

// ReadTicker is a Reader that also samples throughput.
type ReadTicker interface {
	Reader
	Tick()
	RollingSpeed(seconds int) float64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	RecordsInFull     int64
	RecordsInPartial  int64
	RecordsOutFull    int64
	RecordsOutPartial int64
	Truncated         int64
	BytesIn           int64
	BytesOut          int64
	ExtraReads        int64
	ReadErrors        int64
	Elapsed           time.Duration
}

func (c *Collector) AddRecordsInFull(n int64)     { c.recordsInFull.Add(n) }
func (c *Collector) AddRecordsInPartial(n int64)  { c.recordsInPartial.Add(n) }
func (c *Collector) AddRecordsOutFull(n int64)    { c.recordsOutFull.Add(n) }
func (c *Collector) AddRecordsOutPartial(n int64) { c.recordsOutPartial.Add(n) }
func (c *Collector) AddTruncated(n int64)         { c.truncated.Add(n) }
func (c *Collector) AddBytesIn(n int64)           { c.bytesIn.Add(n) }
func (c *Collector) AddBytesOut(n int64)          { c.bytesOut.Add(n) }
func (c *Collector) AddExtraReads(n int64)        { c.extraReads.Add(n) }
func (c *Collector) AddReadErrors(n int64)        { c.readErrors.Add(n) }

// RecordsIn returns the number of full and partial input records so far.
func (c *Collector) RecordsIn() (full, partial int64) {
	return c.recordsInFull.Load(), c.recordsInPartial.Load()
}

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		RecordsInFull:     c.recordsInFull.Load(),
		RecordsInPartial:  c.recordsInPartial.Load(),
		RecordsOutFull:    c.recordsOutFull.Load(),
		RecordsOutPartial: c.recordsOutPartial.Load(),
		Truncated:         c.truncated.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		ExtraReads:        c.extraReads.Load(),
		ReadErrors:        c.readErrors.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Tick records the bytes written since the previous call into the ring
// buffer. Called once per second by the progress presenter.
func (c *Collector) Tick() {
	current := c.bytesOut.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(seconds, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Rate returns the average output throughput in bytes per second.
func (s Snapshot) Rate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.BytesOut) / secs
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"in=%d+%d out=%d+%d truncated=%d bytes=%d",
		s.RecordsInFull, s.RecordsInPartial,
		s.RecordsOutFull, s.RecordsOutPartial,
		s.Truncated, s.BytesOut,
	)
}
