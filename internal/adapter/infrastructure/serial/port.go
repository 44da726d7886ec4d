package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang-oscnode/internal/port"

	bugst "go.bug.st/serial"
)

// pollTimeout bounds how long a single read may wait for input.
const pollTimeout = time.Millisecond

// PortAdapter is a ControlChannel over a serial device such as a Bluetooth
// RFCOMM tty or a USB CDC console.
type PortAdapter struct {
	port bugst.Port
	name string
	rx   []byte
	buf  lineBuffer
}

// Ensure PortAdapter implements the ControlChannel port
var _ port.ControlChannel = (*PortAdapter)(nil)

// OpenPort opens name at baud 8N1.
func OpenPort(name string, baud int) (*PortAdapter, error) {
	p, err := bugst.Open(name, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(pollTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	return newPortAdapter(p, name), nil
}

func newPortAdapter(p bugst.Port, name string) *PortAdapter {
	return &PortAdapter{port: p, name: name, rx: make([]byte, 128)}
}

// ReadLine returns a buffered line, reading whatever the port has queued first.
func (a *PortAdapter) ReadLine() (string, bool, error) {
	if line, ok := a.buf.next(); ok {
		return line, true, nil
	}

	n, err := a.port.Read(a.rx)
	if n > 0 {
		a.buf.write(a.rx[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("failed to read serial port %s: %w", a.name, err)
	}

	line, ok := a.buf.next()
	return line, ok, nil
}

// WriteString sends text to the operator.
func (a *PortAdapter) WriteString(s string) error {
	if _, err := a.port.Write([]byte(s)); err != nil {
		return fmt.Errorf("failed to write serial port %s: %w", a.name, err)
	}
	return nil
}

// Close closes the port.
func (a *PortAdapter) Close() error {
	return a.port.Close()
}
