// Package conv implements the per-record conversions of a block copy:
// charset translation, byte swapping, and block/unblock re-framing.
//
// Conversions that span record boundaries (an odd byte held back by swab,
// a partially filled block or unblock record) carry their state in an
// explicit Carry value that the caller passes from one call to the next.
package conv

import (
	"errors"
	"fmt"
)

// ErrBlockUnblock is returned when both block and unblock are requested.
var ErrBlockUnblock = errors.New("cannot combine block and unblock")

// Options configures a Pipeline.
type Options struct {
	Flags Flags
	// CBS is the conversion record size used by block and unblock.
	CBS int
}

type framing int

const (
	framingNone framing = iota
	framingBlock
	framingUnblock
)

// Pipeline applies the configured conversions in a fixed order:
// translation, swab, then block or unblock.
type Pipeline struct {
	table     Table
	translate bool
	swab      bool
	framing   framing
	cbs       int
	space     byte
	newline   byte

	// stage holds swab output when framing needs a second pass.
	stage []byte
}

// Carry is the conversion state left over from the previous call.
type Carry struct {
	held    byte
	hasHeld bool

	col           int
	pendingSpaces int
}

// Empty reports whether c holds no pending state.
func (c Carry) Empty() bool {
	return !c.hasHeld && c.col == 0 && c.pendingSpaces == 0
}

// New builds a pipeline from opts.
func New(opts Options) (*Pipeline, error) {
	f := opts.Flags
	if f.Has(Block | Unblock) {
		return nil, ErrBlockUnblock
	}

	p := &Pipeline{
		table:   Compose(f),
		swab:    f.Has(Swab),
		cbs:     opts.CBS,
		space:   ' ',
		newline: '\n',
	}
	p.translate = !p.table.IsIdentity()

	switch {
	case f.Has(Block):
		p.framing = framingBlock
	case f.Has(Unblock):
		p.framing = framingUnblock
	}
	if p.framing != framingNone && p.cbs <= 0 {
		return nil, fmt.Errorf("block and unblock require a positive cbs, got %d", p.cbs)
	}

	switch {
	case f.Has(EBCDIC):
		p.space, p.newline = ASCIIToEBCDIC[' '], ASCIIToEBCDIC['\n']
	case f.Has(IBM):
		p.space, p.newline = ASCIIToIBM[' '], ASCIIToIBM['\n']
	}
	return p, nil
}

// PadByte is the byte used to pad short input records for conv=sync.
func (p *Pipeline) PadByte() byte {
	if p.framing != framingNone {
		return p.space
	}
	return 0
}

// Identity reports whether the pipeline copies bytes through unchanged.
func (p *Pipeline) Identity() bool {
	return !p.translate && !p.swab && p.framing == framingNone
}

// Resizes reports whether the output of a record can differ in length
// from its input.
func (p *Pipeline) Resizes() bool {
	return p.swab || p.framing != framingNone
}

// Convert transforms src and appends the result to dst. src is translated
// in place. It returns the extended dst, the carry for the next call and
// the number of records truncated by block.
func (p *Pipeline) Convert(dst, src []byte, c Carry) ([]byte, Carry, int64) {
	if p.translate {
		p.table.Apply(src)
	}

	if p.swab {
		if p.framing == framingNone {
			out, next := swab(dst, src, c)
			return out, next, 0
		}
		p.stage, c = swab(p.stage[:0], src, c)
		src = p.stage
	}

	switch p.framing {
	case framingBlock:
		return p.block(dst, src, c)
	case framingUnblock:
		out, next := p.unblock(dst, src, c)
		return out, next, 0
	default:
		return append(dst, src...), c, 0
	}
}

// Drain appends whatever c still holds at end of input: a byte held back
// by swab, padding for an unterminated block line, or the newline closing
// the last unblock record.
func (p *Pipeline) Drain(dst []byte, c Carry) ([]byte, int64) {
	var truncated int64
	if c.hasHeld {
		held := []byte{c.held}
		c.hasHeld = false
		switch p.framing {
		case framingBlock:
			dst, c, truncated = p.block(dst, held, c)
		case framingUnblock:
			dst, c = p.unblock(dst, held, c)
		default:
			dst = append(dst, held...)
		}
	}

	if c.col != 0 {
		switch p.framing {
		case framingBlock:
			dst = appendRepeat(dst, p.space, p.cbs-c.col)
		case framingUnblock:
			dst = append(dst, p.newline)
		}
	}
	return dst, truncated
}

// swab exchanges every pair of bytes. An odd trailing byte is held in the
// carry and paired with the first byte of the next call.
func swab(dst, src []byte, c Carry) ([]byte, Carry) {
	if c.hasHeld && len(src) > 0 {
		dst = append(dst, src[0], c.held)
		c.hasHeld = false
		src = src[1:]
	}
	n := len(src) &^ 1
	for i := 0; i < n; i += 2 {
		dst = append(dst, src[i+1], src[i])
	}
	if n < len(src) {
		c.held, c.hasHeld = src[n], true
	}
	return dst, c
}

// block pads newline-terminated lines with spaces to cbs bytes. Bytes past
// cbs are dropped and the line is counted once as truncated.
func (p *Pipeline) block(dst, src []byte, c Carry) ([]byte, Carry, int64) {
	var truncated int64
	for _, b := range src {
		if b == p.newline {
			dst = appendRepeat(dst, p.space, p.cbs-c.col)
			c.col = 0
			continue
		}
		switch {
		case c.col == p.cbs:
			truncated++
		case c.col < p.cbs:
			dst = append(dst, b)
		}
		c.col++
	}
	return dst, c, truncated
}

// unblock strips trailing spaces from each cbs-sized record and ends it
// with a newline. The newline for a record is emitted when the first byte
// of the following record arrives, or by Drain.
func (p *Pipeline) unblock(dst, src []byte, c Carry) ([]byte, Carry) {
	for _, b := range src {
		if c.col >= p.cbs {
			dst = append(dst, p.newline)
			c.col, c.pendingSpaces = 0, 0
		}
		c.col++
		if b == p.space {
			c.pendingSpaces++
			continue
		}
		dst = appendRepeat(dst, p.space, c.pendingSpaces)
		c.pendingSpaces = 0
		dst = append(dst, b)
	}
	return dst, c
}

func appendRepeat(dst []byte, b byte, n int) []byte {
	for ; n > 0; n-- {
		dst = append(dst, b)
	}
	return dst
}
