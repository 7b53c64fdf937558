package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps throughput to bytesPerSec.
// The burst is 1 MB so that large output blocks are not split into many
// waits, and never more than one second of budget.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedWriter wraps an io.Writer and enforces a shared rate limit.
// Writes larger than the burst are charged in burst-sized pieces.
type rateLimitedWriter struct {
	w       io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

func newRateLimitedWriter(ctx context.Context, w io.Writer, limiter *rate.Limiter) *rateLimitedWriter {
	return &rateLimitedWriter{w: w, limiter: limiter, ctx: ctx}
}

func (rw *rateLimitedWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		chunk := min(len(p), rw.limiter.Burst())
		if err := rw.limiter.WaitN(rw.ctx, chunk); err != nil {
			return written, err
		}
		n, err := rw.w.Write(p[:chunk])
		written += n
		if err != nil {
			return written, err
		}
		p = p[chunk:]
	}
	return written, nil
}
