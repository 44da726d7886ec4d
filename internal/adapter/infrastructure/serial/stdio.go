package serial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang-oscnode/internal/port"
)

// StreamAdapter is a ControlChannel over a blocking reader such as stdin.
// A background goroutine scans lines into a bounded queue; ReadLine drains it
// without blocking.
type StreamAdapter struct {
	out   io.Writer
	lines chan string
	errc  chan error

	closeOnce sync.Once
	closer    io.Closer
}

// Ensure StreamAdapter implements the ControlChannel port
var _ port.ControlChannel = (*StreamAdapter)(nil)

// NewStreamAdapter starts scanning in. closer, if not nil, is closed by Close.
func NewStreamAdapter(in io.Reader, out io.Writer, closer io.Closer) *StreamAdapter {
	a := &StreamAdapter{
		out:    out,
		lines:  make(chan string, 16),
		errc:   make(chan error, 1),
		closer: closer,
	}
	go a.scan(in)
	return a
}

// scan queues complete lines. A line longer than maxLine is dropped and
// reading continues with the next one.
func (a *StreamAdapter) scan(in io.Reader) {
	defer close(a.lines)

	r := bufio.NewReaderSize(in, maxLine)
	discarding := false
	for {
		chunk, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			discarding = true
			continue
		}
		if len(chunk) > 0 && !discarding {
			line := strings.TrimSuffix(string(chunk), "\n")
			a.lines <- strings.TrimSuffix(line, "\r")
		}
		discarding = false

		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.errc <- err
			}
			return
		}
	}
}

// ReadLine returns a queued line, if any.
func (a *StreamAdapter) ReadLine() (string, bool, error) {
	select {
	case line, ok := <-a.lines:
		if !ok {
			return "", false, a.closedErr()
		}
		return line, true, nil
	default:
		return "", false, nil
	}
}

func (a *StreamAdapter) closedErr() error {
	select {
	case err := <-a.errc:
		return fmt.Errorf("failed to read control stream: %w", err)
	default:
		return nil
	}
}

// WriteString sends text to the operator.
func (a *StreamAdapter) WriteString(s string) error {
	if _, err := io.WriteString(a.out, s); err != nil {
		return fmt.Errorf("failed to write control stream: %w", err)
	}
	return nil
}

// Close closes the underlying stream once.
func (a *StreamAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.closer != nil {
			err = a.closer.Close()
		}
	})
	return err
}
