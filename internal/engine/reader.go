package engine

import (
	"io"
	"log/slog"

	"github.com/bamsammich/ddx/internal/event"
)

// retry repeats op while it reports Retry, serving status requests between
// attempts. A cancelled context ends the loop.
func (c *copier) retry(op func() Outcome) Outcome {
	for {
		o := op()
		if o.Status != Retry {
			return o
		}
		c.serveStatus()
		if err := c.ctx.Err(); err != nil {
			return failed(0, err)
		}
	}
}

// readOnce performs one uninterrupted read into p.
func (c *copier) readOnce(p []byte) Outcome {
	return c.retry(func() Outcome { return c.src.read(p) })
}

// readBlock reads up to len(p) bytes. With iflag=fullblock it keeps
// reading until p is full or the input ends, counting every read after
// the first as an extra read.
func (c *copier) readBlock(p []byte) Outcome {
	if !c.cfg.FullBlock {
		return c.readOnce(p)
	}

	var total int
	for total < len(p) {
		o := c.readOnce(p[total:])
		switch o.Status {
		case EOF:
			if total == 0 {
				return o
			}
			return transferred(total)
		case Failed:
			return failed(total+o.N, o.Err)
		}
		if total > 0 {
			c.stats.AddExtraReads(1)
		}
		total += o.N
	}
	return transferred(total)
}

// readFailed handles a read error under conv=noerror: the error is logged
// and reported, and the input is moved past the bad block when possible.
func (c *copier) readFailed(o Outcome, size int) {
	c.stats.AddReadErrors(1)
	slog.Warn("error reading input", "input", c.src.name, "offset", c.src.offset, "error", o.Err)
	c.emitEvent(event.Event{
		Type:   event.ReadErrorSkipped,
		Path:   c.cfg.Input,
		Offset: c.src.offset,
		Error:  newError(ReadFailed, "read", c.src.name, o.Err),
		Stats:  c.stats.Snapshot(),
	})

	bad := int64(size - o.N)
	if bad <= 0 {
		return
	}
	sk, ok := c.src.seeker()
	if !ok {
		return
	}
	if _, err := sk.Seek(bad, io.SeekCurrent); err != nil {
		slog.Warn("cannot seek past bad input block", "input", c.src.name, "error", err)
		return
	}
	c.src.offset += bad
}

// warnPartialRead reports the first short read when a record count is in
// effect, since such reads shorten the copy.
func (c *copier) warnPartialRead(n int) {
	if c.warnedPartial || c.cfg.FullBlock || c.cfg.Count < 0 || c.cfg.CountBytes {
		return
	}
	c.warnedPartial = true
	slog.Warn("partial read; suggest iflag=fullblock", "bytes", n)
	c.emitEvent(event.Event{Type: event.PartialRead, Path: c.cfg.Input, Count: int64(n)})
}
