// Package port defines the primary ports (interfaces) for the application.
// This follows the Ports and Adapters (Hexagonal Architecture) pattern.
package port

//go:generate mockgen -source=infrastructure.go -destination=../mock/infrastructure.go -package=mock

import (
	"context"
	"net/netip"

	"golang-oscnode/internal/types"

	"github.com/vishvananda/netlink"
)

// KeyValueStore is a port for the persistent preference store.
// Values are unsigned integers addressed by short keys inside a single namespace.
type KeyValueStore interface {
	// GetUint returns the stored value and whether the key was present
	GetUint(key string) (uint32, bool, error)

	// PutUint stores a value, replacing any previous one
	PutUint(key string, value uint32) error

	// Close releases the underlying storage
	Close() error
}

// NetworkManager is a port for network interface operations.
// This interface abstracts netlink operations for network configuration.
type NetworkManager interface {
	// GetLinkByName returns a network link by interface name
	GetLinkByName(interfaceName string) (netlink.Link, error)

	// ListAddresses returns IPv4 addresses configured on the link
	ListAddresses(link netlink.Link) ([]netlink.Addr, error)

	// AddAddress adds an IP address to the interface
	AddAddress(link netlink.Link, addr *netlink.Addr) error

	// DeleteAddress removes an IP address from the interface
	DeleteAddress(link netlink.Link, addr *netlink.Addr) error

	// ListRoutes returns IPv4 routes
	ListRoutes() ([]netlink.Route, error)

	// AddRoute adds a route
	AddRoute(route *netlink.Route) error

	// DeleteRoute removes a route
	DeleteRoute(route *netlink.Route) error

	// SetLinkUp brings the interface up
	SetLinkUp(link netlink.Link) error
}

// FileManager is a port for file system operations.
// This interface abstracts file read/write operations.
type FileManager interface {
	// ReadFile reads the contents of a file
	ReadFile(filename string) ([]byte, error)

	// WriteFile replaces the contents of a file with specified permissions
	WriteFile(filename string, data []byte, perm int) error

	// FileExists checks if a file exists
	FileExists(filename string) bool
}

// SwitchInput is a port for the physical trigger switch.
type SwitchInput interface {
	// Active reports whether the switch is currently pressed
	Active() (bool, error)

	// Close releases the input line
	Close() error
}

// ControlChannel is a port for the line-oriented configuration console.
// Reads never block: when no complete line is buffered ReadLine returns ok=false.
type ControlChannel interface {
	// ReadLine returns the next complete line without its terminator
	ReadLine() (line string, ok bool, err error)

	// WriteString sends text to the operator
	WriteString(s string) error

	// Close releases the channel
	Close() error
}

// DatagramConn is a port for the unreliable datagram transport.
// Receive never blocks: when nothing is queued it returns ok=false.
type DatagramConn interface {
	// Receive returns at most one queued datagram
	Receive() (payload []byte, ok bool, err error)

	// SendTo sends one datagram
	SendTo(dst netip.AddrPort, payload []byte) error

	// Close releases the socket
	Close() error
}

// Actuator is a port for the LED strips of a node.
type Actuator interface {
	// Fill paints every pixel of every strip with the frame
	Fill(frame types.Frame) error

	// Close releases the actuator
	Close() error
}

// LinkInfo is a port for querying the live state of the wired link.
type LinkInfo interface {
	// LocalAddress returns the IPv4 address currently configured on the link
	LocalAddress() (netip.Addr, error)

	// HardwareAddress returns the link's MAC address in colon notation
	HardwareAddress() (string, error)
}

// LinkMonitor is a port for the periodic link health check.
type LinkMonitor interface {
	// Check re-asserts the link configuration and returns ErrLinkLost once the
	// link has stayed down for too long
	Check(ctx context.Context) error
}
