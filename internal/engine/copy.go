package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/event"
	"github.com/bamsammich/ddx/internal/platform"
	"github.com/bamsammich/ddx/internal/stats"
)

// State is a phase of the copy loop.
type State int

const (
	Positioning State = iota
	Copying
	Draining
	Aborting
	Finished
)

var stateNames = [...]string{
	Positioning: "Positioning",
	Copying:     "Copying",
	Draining:    "Draining",
	Aborting:    "Aborting",
	Finished:    "Finished",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Disposition is the outcome of Run.
type Disposition struct {
	Stats stats.Snapshot
	// SkipShortfall is the number of input records that could not be
	// skipped because the input ended first. The copy still succeeds.
	SkipShortfall int64
	// Digest is the hex output digest when Config.Hash is set.
	Digest string
	Err    error
}

// OK reports whether the copy succeeded.
func (d Disposition) OK() bool { return d.Err == nil }

type copier struct {
	ctx context.Context
	cfg Config

	src   *source
	dst   *sink
	pipe  *conv.Pipeline
	stats *stats.Collector

	ibuf  *Buffer
	obuf  *Buffer
	cbuf  []byte
	carry conv.Carry

	// direct writes each input record as one output record.
	direct bool
	sparse bool
	// finalSeek is set when the last output operation was a sparse seek.
	finalSeek bool

	digest        *digest
	warnedPartial bool
	// aligned stays true while every record so far was full, which is
	// what makes a checkpointed record count resumable.
	aligned   bool
	shortfall int64
	err       error
}

// Run copies records from the configured input to the configured output
// and returns the final disposition. It blocks until the copy finishes, a
// fatal error occurs or ctx is cancelled.
func Run(ctx context.Context, cfg Config) Disposition {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	c, err := newCopier(ctx, cfg)
	if err != nil {
		snap := cfg.Stats.Snapshot()
		emitEvent(cfg.Events, event.Event{Type: event.CopyAborted, Stats: snap, Error: err})
		return Disposition{Stats: snap, Err: err}
	}

	stopSrc := context.AfterFunc(ctx, c.src.interrupt)
	defer stopSrc()
	stopDst := context.AfterFunc(ctx, c.dst.interrupt)
	defer stopDst()

	return c.run()
}

func newCopier(ctx context.Context, cfg Config) (*copier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pipe, err := conv.New(conv.Options{Flags: cfg.Conv, CBS: cfg.CBS})
	if err != nil {
		return nil, newError(InvalidConfig, "config", "", err)
	}

	c := &copier{
		ctx:     ctx,
		cfg:     cfg,
		pipe:    pipe,
		stats:   cfg.Stats,
		ibuf:    NewBuffer(cfg.IBS),
		obuf:    NewBuffer(cfg.OBS),
		direct:  cfg.IBS == cfg.OBS && !pipe.Resizes(),
		aligned: true,
	}
	if cfg.Hash != "" {
		c.digest, _ = newDigest(cfg.Hash)
	}

	if c.src, err = openSource(&c.cfg); err != nil {
		return nil, err
	}
	if c.dst, err = openSink(&c.cfg); err != nil {
		c.src.close()
		return nil, err
	}
	if cfg.BWLimit > 0 {
		c.dst.w = newRateLimitedWriter(ctx, c.dst.raw, NewBWLimiter(cfg.BWLimit))
	}
	c.sparse = cfg.Conv.Has(conv.Sparse) && c.dst.f != nil && !cfg.Append
	return c, nil
}

func (c *copier) run() Disposition {
	slog.Debug("copy starting",
		"input", c.src.name, "output", c.dst.name,
		"ibs", c.cfg.IBS, "obs", c.cfg.OBS, "conv", c.cfg.Conv.String(), "direct", c.direct)
	c.emitEvent(event.Event{Type: event.CopyStarted, Path: c.cfg.Input})

	stopStatus := c.watchStatus()
	state := Positioning
	for state != Finished {
		next := c.step(state)
		slog.Debug("copy state", "from", state, "to", next)
		state = next
	}
	stopStatus()
	return c.finish()
}

func (c *copier) step(s State) State {
	switch s {
	case Positioning:
		return c.position()
	case Copying:
		return c.copyRecords()
	case Draining:
		return c.drain()
	case Aborting:
		return c.abort()
	default:
		return Finished
	}
}

// position applies skip= to the input and seek= to the output.
func (c *copier) position() State {
	if !c.cfg.Skip.IsZero() {
		remaining, err := c.skipInput()
		if err != nil {
			c.err = err
			return Finished
		}
		if remaining > 0 {
			c.shortfall = remaining
			slog.Warn("cannot skip to specified offset", "input", c.src.name, "records_short", remaining)
			c.emitEvent(event.Event{Type: event.SkipShortfall, Path: c.cfg.Input, Count: remaining})
			return Finished
		}
	}
	if !c.cfg.Seek.IsZero() && !c.cfg.Append {
		if err := c.seekOutput(); err != nil {
			c.err = err
			return Finished
		}
	}
	return Copying
}

// nextReadSize returns how many bytes the next read may request, or false
// once the count limit is reached.
func (c *copier) nextReadSize() (int, bool) {
	if c.cfg.Count < 0 {
		return c.cfg.IBS, true
	}
	if c.cfg.CountBytes {
		left := c.cfg.Count - c.stats.Snapshot().BytesIn
		if left <= 0 {
			return 0, false
		}
		return int(min(int64(c.cfg.IBS), left)), true
	}
	full, partial := c.stats.RecordsIn()
	return c.cfg.IBS, full+partial < c.cfg.Count
}

func (c *copier) copyRecords() State {
	noError := c.cfg.Conv.Has(conv.NoError)
	sync := c.cfg.Conv.Has(conv.Sync)

	for {
		if c.ctx.Err() != nil {
			c.err = c.terminated()
			return Aborting
		}
		c.serveStatus()

		size, ok := c.nextReadSize()
		if !ok {
			return Draining
		}

		c.ibuf.Reset()
		o := c.readBlock(c.ibuf.Space(size))
		switch o.Status {
		case EOF:
			return Draining
		case Failed:
			if c.ctx.Err() != nil {
				c.err = c.terminated()
				return Aborting
			}
			// Bytes that arrived before the error form a partial record.
			if o.N > 0 {
				if err := c.accept(o.N, sync); err != nil {
					c.err = err
					return Aborting
				}
			}
			if !noError {
				c.err = newError(ReadFailed, "read", c.src.name, o.Err)
				return Aborting
			}
			c.readFailed(o, size)
			c.aligned = false
			if !sync || o.N > 0 {
				continue
			}
			o = transferred(0)
		}

		if err := c.accept(o.N, sync); err != nil {
			c.err = err
			return Aborting
		}
	}
}

// accept accounts for the n bytes at the front of the input buffer as one
// input record and passes it on for conversion and output.
func (c *copier) accept(n int, sync bool) error {
	c.ibuf.Grow(n)
	c.stats.AddBytesIn(int64(n))
	if n < c.cfg.IBS {
		c.stats.AddRecordsInPartial(1)
		c.aligned = false
		if n > 0 {
			c.warnPartialRead(n)
		}
		if sync {
			c.ibuf.Pad(c.cfg.IBS, c.pipe.PadByte())
		}
	} else {
		c.stats.AddRecordsInFull(1)
	}

	if err := c.process(c.ibuf.Bytes()); err != nil {
		return err
	}
	c.dropInputCache()
	c.checkpoint()
	return nil
}

// process converts one input record and hands it to the writer.
func (c *copier) process(rec []byte) error {
	out := rec
	if !c.pipe.Identity() {
		var truncated int64
		c.cbuf, c.carry, truncated = c.pipe.Convert(c.cbuf[:0], rec, c.carry)
		out = c.cbuf
		c.countTruncated(truncated)
	}

	if !c.direct {
		return c.put(out)
	}
	if err := c.emit(out); err != nil {
		return err
	}
	if len(out) == c.cfg.IBS {
		c.stats.AddRecordsOutFull(1)
	} else {
		c.stats.AddRecordsOutPartial(1)
	}
	return nil
}

func (c *copier) countTruncated(n int64) {
	if n == 0 {
		return
	}
	c.stats.AddTruncated(n)
	slog.Debug("records truncated", "count", n, "error", newError(RecordTruncated, "block", c.src.name, nil))
}

// drain pushes the conversion carry and the last partial output block
// through the writer, then applies the end-of-output steps.
func (c *copier) drain() State {
	var truncated int64
	c.cbuf, truncated = c.pipe.Drain(c.cbuf[:0], c.carry)
	c.carry = conv.Carry{}
	c.countTruncated(truncated)

	if len(c.cbuf) > 0 {
		if err := c.put(c.cbuf); err != nil {
			c.err = err
			return Aborting
		}
	}
	if err := c.flush(); err != nil {
		c.err = err
		return Aborting
	}
	if err := c.extendHole(); err != nil {
		c.err = err
		return Finished
	}
	c.err = c.syncOutput()
	return Finished
}

// abort makes a best-effort write of output that was already converted.
func (c *copier) abort() State {
	if KindOf(c.err) == WriteFailed || c.obuf.Len() == 0 {
		return Finished
	}
	// The bandwidth limiter waits on the copy context, which is already
	// done when the copy was terminated.
	c.dst.w = c.dst.raw
	if err := c.flush(); err != nil {
		slog.Debug("flush on abort failed", "output", c.dst.name, "error", err)
	}
	return Finished
}

func (c *copier) finish() Disposition {
	if c.cfg.OutNoCache && c.dst.f != nil {
		_ = platform.DropCache(c.dst.f, 0, 0)
	}
	if err := c.dst.close(); err != nil && c.err == nil {
		c.err = newError(WriteFailed, "close", c.dst.name, err)
	}
	if err := c.src.close(); err != nil {
		slog.Debug("close input", "input", c.src.name, "error", err)
	}

	d := Disposition{
		Stats:         c.stats.Snapshot(),
		SkipShortfall: c.shortfall,
		Digest:        c.digest.Sum(),
		Err:           c.err,
	}

	ev := event.Event{Type: event.CopyFinished, Path: c.cfg.Output, Count: d.SkipShortfall, Stats: d.Stats}
	if d.Err != nil {
		ev.Type, ev.Error = event.CopyAborted, d.Err
	}
	if d.Stats.Truncated > 0 {
		c.emitEvent(event.Event{Type: event.RecordsTruncated, Count: d.Stats.Truncated, Stats: d.Stats})
	}
	c.emitEvent(ev)
	return d
}

func (c *copier) terminated() error {
	cause := context.Cause(c.ctx)
	if errors.Is(cause, context.Canceled) || cause == nil {
		cause = errTerminated
	}
	return newError(Terminated, "copy", "", cause)
}

var errTerminated = errors.New("terminated by signal")

// serveStatus emits one status report if any were requested since the
// last check. A report the event channel has no room for stays pending.
func (c *copier) serveStatus() {
	if !c.cfg.StatusFlag.take() {
		return
	}
	if !c.emitEvent(event.Event{Type: event.StatusRequested, Stats: c.stats.Snapshot()}) {
		c.cfg.StatusFlag.requeue()
	}
}

// watchStatus serves status requests while the copy loop is blocked in a
// read or write. The returned function stops the watcher; a report it
// could not deliver by then is left pending.
func (c *copier) watchStatus() (stop func()) {
	flag := c.cfg.StatusFlag
	if flag == nil || c.cfg.Events == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case <-flag.wake():
			}
			if !flag.take() {
				continue
			}
			ev := event.Event{Type: event.StatusRequested, Stats: c.stats.Snapshot(), Timestamp: time.Now()}
			select {
			case c.cfg.Events <- ev:
			case <-done:
				flag.requeue()
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func (c *copier) dropInputCache() {
	if !c.cfg.InNoCache || c.src.f == nil {
		return
	}
	n := int64(c.ibuf.Len())
	_ = platform.DropCache(c.src.f, c.src.offset-n, n)
}

// checkpoint saves resumable progress while every record has been full
// and copied one-to-one.
func (c *copier) checkpoint() {
	if c.cfg.Checkpoint == nil || !c.direct || !c.aligned {
		return
	}
	full, _ := c.stats.RecordsIn()
	if err := c.cfg.Checkpoint.Save(full); err != nil {
		slog.Warn("checkpoint save failed", "error", err)
	}
}

func (c *copier) emitEvent(e event.Event) bool {
	return emitEvent(c.cfg.Events, e)
}

// emitEvent sends e without blocking. It reports false only when ch is
// full and the event was dropped.
func emitEvent(ch chan<- event.Event, e event.Event) bool {
	if ch == nil {
		return true
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}
