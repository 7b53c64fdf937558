package engine

import (
	"io"
	"log/slog"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/platform"
)

// emit writes one output block. With conv=sparse an all-zero block is
// seeked over instead of written.
func (c *copier) emit(p []byte) error {
	c.digest.update(p)

	if c.sparse && allZero(p) {
		if _, err := c.dst.f.Seek(int64(len(p)), io.SeekCurrent); err == nil {
			c.finalSeek = true
			c.stats.AddBytesOut(int64(len(p)))
			return nil
		}
		slog.Debug("output not seekable, writing zero blocks", "output", c.dst.name)
		c.sparse = false
	}

	o := c.writeBlock(p)
	c.stats.AddBytesOut(int64(o.N))
	if o.Status == Failed {
		if c.ctx.Err() != nil {
			return c.terminated()
		}
		return newError(WriteFailed, "write", c.dst.name, o.Err)
	}
	c.finalSeek = false
	return nil
}

// put queues converted bytes and writes every complete obs-sized block.
func (c *copier) put(p []byte) error {
	obs := c.cfg.OBS
	for len(p) > 0 {
		if c.obuf.Len() == 0 && len(p) >= obs {
			if err := c.emit(p[:obs]); err != nil {
				return err
			}
			c.stats.AddRecordsOutFull(1)
			p = p[obs:]
			continue
		}

		n := copy(c.obuf.Space(obs-c.obuf.Len()), p)
		c.obuf.Grow(n)
		p = p[n:]
		if c.obuf.Len() == obs {
			if err := c.emit(c.obuf.Bytes()); err != nil {
				return err
			}
			c.stats.AddRecordsOutFull(1)
			c.obuf.Reset()
		}
	}
	return nil
}

// flush writes the pending partial output block, if any.
func (c *copier) flush() error {
	if c.obuf.Len() == 0 {
		return nil
	}
	if err := c.emit(c.obuf.Bytes()); err != nil {
		return err
	}
	c.stats.AddRecordsOutPartial(1)
	c.obuf.Reset()
	return nil
}

// extendHole grows a regular output file whose last operation was a
// sparse seek, so the trailing hole is part of the file.
func (c *copier) extendHole() error {
	if !c.finalSeek {
		return nil
	}
	pos, err := c.dst.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return newError(WriteFailed, "seek", c.dst.name, err)
	}
	st, err := c.dst.f.Stat()
	if err != nil {
		return newError(WriteFailed, "stat", c.dst.name, err)
	}
	if st.Mode().IsRegular() && st.Size() < pos {
		if err := c.dst.f.Truncate(pos); err != nil {
			return newError(WriteFailed, "truncate", c.dst.name, err)
		}
	}
	return nil
}

// syncOutput is the durability barrier requested by conv=fsync or
// conv=fdatasync. Interrupted syncs are retried; failures are not.
func (c *copier) syncOutput() error {
	if c.dst.f == nil {
		return nil
	}
	var err error
	switch {
	case c.cfg.Conv.Has(conv.FSync):
		err = platform.Fsync(c.dst.f)
	case c.cfg.Conv.Has(conv.FDataSync):
		err = platform.Fdatasync(c.dst.f)
	default:
		return nil
	}
	if err != nil {
		return newError(SyncFailed, "sync", c.dst.name, err)
	}
	return nil
}

func allZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
