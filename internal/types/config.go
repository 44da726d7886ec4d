// Package types defines common types used across the application.
package types

import (
	"fmt"
	"net/netip"
)

// DeviceID identifies a node inside its installation.
type DeviceID int

const (
	// MinDeviceID and MaxDeviceID bound the identities an operator may assign.
	MinDeviceID DeviceID = 1
	MaxDeviceID DeviceID = 8

	// UnconfiguredID marks a node whose stored identity was missing or out of range.
	UnconfiguredID DeviceID = 10
)

// Valid reports whether the identity lies in the assignable range.
func (id DeviceID) Valid() bool {
	return id >= MinDeviceID && id <= MaxDeviceID
}

// NetworkConfig holds the persisted network parameters of a node.
// All addresses are IPv4; ports are never zero.
type NetworkConfig struct {
	LocalIP netip.Addr // Address assigned to the wired interface
	Subnet  netip.Addr // Subnet mask in dotted decimal notation
	Gateway netip.Addr // Default gateway
	OutIP   netip.Addr // Destination of outbound triggers
	InPort  uint16     // UDP port inbound triggers are received on
	OutPort uint16     // UDP port outbound triggers are sent to
}

// OutTarget returns the destination of outbound triggers.
func (c NetworkConfig) OutTarget() netip.AddrPort {
	return netip.AddrPortFrom(c.OutIP, c.OutPort)
}

// PrefixLength returns the number of leading one bits in the subnet mask.
func (c NetworkConfig) PrefixLength() (int, error) {
	if !c.Subnet.Is4() {
		return 0, fmt.Errorf("subnet mask %s is not IPv4", c.Subnet)
	}
	b := c.Subnet.As4()
	mask := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ones := 0
	for mask&0x80000000 != 0 {
		ones++
		mask <<= 1
	}
	if mask != 0 {
		return 0, fmt.Errorf("subnet mask %s is not contiguous", c.Subnet)
	}
	return ones, nil
}

// DeviceState is the configuration aggregate shared by the control loop components.
// It is owned by a single goroutine and must not be shared across goroutines.
type DeviceState struct {
	ID      DeviceID
	Network NetworkConfig
}
