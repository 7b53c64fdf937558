package engine

import (
	"io"
)

// writeBlock writes all of p. Short writes are continued from where they
// stopped and interrupted writes are retried; a write that makes no
// progress or fails is reported as Failed with the bytes already written.
func (c *copier) writeBlock(p []byte) Outcome {
	var done int
	for done < len(p) {
		o := c.retry(func() Outcome {
			return classify(c.dst.w.Write(p[done:]))
		})
		switch o.Status {
		case Transferred:
			done += o.N
		case EOF:
			return failed(done, io.ErrShortWrite)
		default:
			return failed(done+o.N, o.Err)
		}
	}
	return transferred(done)
}
