// Package serial provides control channel adapters for the configuration console.
package serial

import (
	"bytes"
	"strings"
)

// maxLine bounds a buffered line; longer input without a terminator is discarded.
const maxLine = 512

// lineBuffer accumulates bytes and splits them into lines terminated by '\n'.
// A trailing '\r' is stripped. A line longer than maxLine is dropped whole.
type lineBuffer struct {
	buf        []byte
	discarding bool
}

func (b *lineBuffer) write(p []byte) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > maxLine && bytes.IndexByte(b.buf, '\n') < 0 {
		b.buf = b.buf[:0]
		b.discarding = true
	}
}

func (b *lineBuffer) next() (string, bool) {
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			return "", false
		}
		raw := b.buf[:i]
		drop := b.discarding || len(raw) > maxLine
		line := strings.TrimSuffix(string(raw), "\r")
		b.buf = append(b.buf[:0], b.buf[i+1:]...)
		b.discarding = false
		if !drop {
			return line, true
		}
	}
}
