package engine

import (
	"io"
	"log/slog"

	"github.com/bamsammich/ddx/internal/conv"
)

// skipInput discards the configured input offset before copying. It
// returns the number of whole records that could not be skipped because
// the input ended first.
func (c *copier) skipInput() (int64, error) {
	bs := c.cfg.IBS
	total := c.cfg.Skip.In(bs)

	if sk, ok := c.src.seeker(); ok {
		_, err := sk.Seek(total, io.SeekCurrent)
		if err == nil {
			advance, remaining := total, int64(0)
			if c.src.sizeKnown && c.src.size-c.src.offset < total {
				advance = max(c.src.size-c.src.offset, 0)
				remaining = (total - advance) / int64(bs)
			}
			c.src.offset += advance
			return remaining, nil
		}
		slog.Debug("reading to skip input", "error", newError(SeekUnsupported, "seek", c.src.name, err))
	}

	records, bytes := total/int64(bs), total%int64(bs)
	buf := c.ibuf.Space(bs)
	for records > 0 || bytes > 0 {
		if c.ctx.Err() != nil {
			return records, c.terminated()
		}
		size := bs
		if records == 0 {
			size = int(bytes)
		}
		o := c.readOnce(buf[:size])
		switch o.Status {
		case EOF:
			return records, nil
		case Failed:
			if c.ctx.Err() != nil {
				return records, c.terminated()
			}
			if !c.cfg.Conv.Has(conv.NoError) {
				return records, newError(PositioningFailed, "skip", c.src.name, o.Err)
			}
			c.readFailed(o, size)
		}
		if records > 0 {
			records--
		} else {
			bytes = 0
		}
	}
	return 0, nil
}

// seekOutput moves the output to the configured seek offset. When the
// output cannot seek, existing data is read past where possible and the
// rest of the offset is filled with zero blocks.
func (c *copier) seekOutput() error {
	bs := c.cfg.OBS
	total := c.cfg.Seek.In(bs)

	if sk, ok := c.dst.seeker(); ok {
		_, err := sk.Seek(total, io.SeekCurrent)
		if err == nil {
			return nil
		}
		slog.Debug("writing to skip output", "error", newError(SeekUnsupported, "seek", c.dst.name, err))
	}

	records, bytes := total/int64(bs), total%int64(bs)
	if c.dst.readable {
		buf := c.obuf.Space(bs)
		for records > 0 || bytes > 0 {
			size := bs
			if records == 0 {
				size = int(bytes)
			}
			o := c.retry(func() Outcome { return classify(c.dst.f.Read(buf[:size])) })
			if o.Status != Transferred {
				break
			}
			if records > 0 {
				records--
			} else {
				bytes = 0
			}
		}
	}

	zero := make([]byte, bs)
	for records > 0 || bytes > 0 {
		if c.ctx.Err() != nil {
			return c.terminated()
		}
		size := bs
		if records == 0 {
			size = int(bytes)
		}
		if o := c.writeBlock(zero[:size]); o.Status == Failed {
			return newError(PositioningFailed, "seek", c.dst.name, o.Err)
		}
		if records > 0 {
			records--
		} else {
			bytes = 0
		}
	}
	return nil
}
