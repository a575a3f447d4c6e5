package compiler

import "bytes"

// cappedBuffer keeps the first max bytes written to it and discards the
// rest, so a chatty compiler cannot grow memory without bound. Writes never
// fail; a short write would make os/exec abandon the pipe early.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}

	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
