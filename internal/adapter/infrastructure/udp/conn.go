// Package udp provides the datagram transport adapter.
package udp

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"golang-oscnode/internal/port"
)

// maxDatagram is larger than any OSC message the node exchanges.
const maxDatagram = 1536

// ConnAdapter implements the DatagramConn port on a bound UDP socket.
// Receive polls with a short read deadline instead of blocking.
type ConnAdapter struct {
	conn        *net.UDPConn
	pollTimeout time.Duration
	buf         []byte
}

// Ensure ConnAdapter implements the DatagramConn port
var _ port.DatagramConn = (*ConnAdapter)(nil)

// Listen binds a UDP socket on all IPv4 addresses at inPort.
func Listen(inPort uint16, pollTimeout time.Duration) (*ConnAdapter, error) {
	return ListenAddr(netip.AddrPortFrom(netip.IPv4Unspecified(), inPort), pollTimeout)
}

// ListenAddr binds a UDP socket at addr.
func ListenAddr(addr netip.AddrPort, pollTimeout time.Duration) (*ConnAdapter, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on udp %s: %w", addr, err)
	}
	if pollTimeout <= 0 {
		pollTimeout = time.Millisecond
	}
	return &ConnAdapter{
		conn:        conn,
		pollTimeout: pollTimeout,
		buf:         make([]byte, maxDatagram),
	}, nil
}

// LocalAddr returns the bound address.
func (c *ConnAdapter) LocalAddr() netip.AddrPort {
	return c.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Receive returns one queued datagram, or ok=false when none arrives within the poll timeout.
func (c *ConnAdapter) Receive() ([]byte, bool, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pollTimeout)); err != nil {
		return nil, false, fmt.Errorf("failed to set read deadline: %w", err)
	}

	n, _, err := c.conn.ReadFromUDPAddrPort(c.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read datagram: %w", err)
	}

	payload := make([]byte, n)
	copy(payload, c.buf[:n])
	return payload, true, nil
}

// SendTo sends one datagram from the bound socket.
func (c *ConnAdapter) SendTo(dst netip.AddrPort, payload []byte) error {
	if _, err := c.conn.WriteToUDPAddrPort(payload, dst); err != nil {
		return fmt.Errorf("failed to send datagram to %s: %w", dst, err)
	}
	return nil
}

// Close closes the socket.
func (c *ConnAdapter) Close() error {
	return c.conn.Close()
}
