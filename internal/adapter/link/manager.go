package link

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/vishvananda/netlink"
)

// Manager is the wired link controller. It applies the persisted address,
// subnet and gateway to the interface, answers live address queries, and
// reports port.ErrLinkLost once the carrier has been down for downThreshold
// consecutive checks.
type Manager struct {
	ifaceName     string
	networkMgr    port.NetworkManager
	downThreshold int

	applied   *types.NetworkConfig
	downCount int
}

// Ensure Manager implements the LinkInfo and LinkMonitor ports
var (
	_ port.LinkInfo    = (*Manager)(nil)
	_ port.LinkMonitor = (*Manager)(nil)
)

// NewManager creates a link controller for the named interface.
func NewManager(ifaceName string, networkMgr port.NetworkManager, downThreshold int) (*Manager, error) {
	if _, err := networkMgr.GetLinkByName(ifaceName); err != nil {
		return nil, fmt.Errorf("interface not found: %w", err)
	}
	if downThreshold < 1 {
		downThreshold = 1
	}

	return &Manager{
		ifaceName:     ifaceName,
		networkMgr:    networkMgr,
		downThreshold: downThreshold,
	}, nil
}

// GetInterfaceName returns the name of the managed interface.
func (m *Manager) GetInterfaceName() string {
	return m.ifaceName
}

// Apply configures the interface with the node's static address and default route.
// Later health checks re-assert this configuration.
func (m *Manager) Apply(ctx context.Context, cfg types.NetworkConfig) error {
	logger := logging.WithComponentAndInterface("link", m.ifaceName)

	link, err := m.networkMgr.GetLinkByName(m.ifaceName)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}

	if link.Attrs().Flags&net.FlagUp == 0 {
		if err := m.networkMgr.SetLinkUp(link); err != nil {
			return fmt.Errorf("failed to bring interface up: %w", err)
		}
	}

	if !cfg.LocalIP.Is4() {
		return fmt.Errorf("invalid IP address: %s", cfg.LocalIP)
	}
	ones, err := cfg.PrefixLength()
	if err != nil {
		return fmt.Errorf("invalid netmask: %w", err)
	}
	ipNet := &net.IPNet{
		IP:   net.IP(cfg.LocalIP.AsSlice()),
		Mask: net.CIDRMask(ones, 32),
	}

	if err := m.assignAddress(link, ipNet); err != nil {
		return err
	}

	if cfg.Gateway.Is4() && !cfg.Gateway.IsUnspecified() {
		if err := m.configureDefaultRoute(ctx, link, net.IP(cfg.Gateway.AsSlice())); err != nil {
			return fmt.Errorf("failed to set default gateway: %w", err)
		}
	}

	applied := cfg
	m.applied = &applied
	logger.WithFields(map[string]interface{}{
		"ip":      ipNet.String(),
		"gateway": cfg.Gateway.String(),
	}).Info("Static network configuration applied")
	return nil
}

// assignAddress makes ipNet the only IPv4 address on the link.
func (m *Manager) assignAddress(link netlink.Link, ipNet *net.IPNet) error {
	logger := logging.WithComponentAndInterface("link", m.ifaceName)

	existingAddrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return fmt.Errorf("failed to list existing addresses: %w", err)
	}

	for _, addr := range existingAddrs {
		if addr.IPNet.IP.Equal(ipNet.IP) && addr.IPNet.Mask.String() == ipNet.Mask.String() {
			logger.WithField("ip", ipNet.String()).Debug("IP address already configured")
			return nil
		}
	}

	for _, addr := range existingAddrs {
		addr := addr
		if err := m.networkMgr.DeleteAddress(link, &addr); err != nil {
			logger.WithError(err).WithField("address", addr.IPNet.String()).Warn("Failed to remove existing address")
		}
	}

	if err := m.networkMgr.AddAddress(link, &netlink.Addr{IPNet: ipNet}); err != nil {
		return fmt.Errorf("failed to add IP address %s: %w", ipNet.String(), err)
	}
	return nil
}

// configureDefaultRoute configures the default gateway for the interface.
func (m *Manager) configureDefaultRoute(ctx context.Context, link netlink.Link, gateway net.IP) error {
	logger := logging.WithComponentAndInterface("link", m.ifaceName).WithField("gateway", gateway.String())

	routes, err := m.networkMgr.ListRoutes()
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	for _, route := range routes {
		if route.Dst != nil || route.Gw == nil {
			continue
		}
		if route.Gw.Equal(gateway) && route.LinkIndex == link.Attrs().Index {
			logger.Debug("Default route already configured")
			return nil
		}
		route := route
		if err := m.networkMgr.DeleteRoute(&route); err != nil {
			logger.WithError(err).WithField("existing_gateway", route.Gw.String()).
				Warn("Failed to remove existing default route")
		}
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        gateway,
	}
	if err := m.networkMgr.AddRoute(route); err != nil {
		if strings.Contains(err.Error(), "file exists") {
			logger.Debug("Default route already exists, ignoring error")
			return nil
		}
		return fmt.Errorf("failed to add default route: %w", err)
	}

	logger.Info("Default route configured")
	return nil
}

// Check inspects the link once. It brings an administratively down interface
// back up, re-applies a lost address, and returns port.ErrLinkLost after
// downThreshold consecutive checks without carrier.
func (m *Manager) Check(ctx context.Context) error {
	logger := logging.WithComponentAndInterface("link", m.ifaceName)

	link, err := m.networkMgr.GetLinkByName(m.ifaceName)
	if err != nil {
		return m.countDown(fmt.Errorf("failed to get netlink interface: %w", err))
	}
	attrs := link.Attrs()

	if attrs.Flags&net.FlagUp == 0 {
		logger.Warn("Interface is down, bringing it up")
		if err := m.networkMgr.SetLinkUp(link); err != nil {
			return m.countDown(fmt.Errorf("failed to bring interface up: %w", err))
		}
	}

	if attrs.OperState == netlink.OperDown || attrs.OperState == netlink.OperLowerLayerDown {
		return m.countDown(fmt.Errorf("interface %s has no carrier", m.ifaceName))
	}

	if m.downCount > 0 {
		logger.WithField("failed_checks", m.downCount).Info("Link recovered")
	}
	m.downCount = 0

	if m.applied == nil {
		return nil
	}

	local, err := m.LocalAddress()
	if err == nil && local == m.applied.LocalIP {
		return nil
	}

	logger.WithField("ip", m.applied.LocalIP.String()).Warn("Static IP not found on interface, reapplying configuration")
	if err := m.Apply(ctx, *m.applied); err != nil {
		return fmt.Errorf("failed to reapply static configuration: %w", err)
	}
	return nil
}

func (m *Manager) countDown(cause error) error {
	m.downCount++
	logger := logging.WithComponentAndInterface("link", m.ifaceName).WithError(cause).WithField("failed_checks", m.downCount)

	if m.downCount >= m.downThreshold {
		logger.Error("No Ethernet connection")
		return fmt.Errorf("%w: %v", port.ErrLinkLost, cause)
	}
	logger.Warn("Link check failed")
	return nil
}

// LocalAddress returns the first IPv4 address on the interface.
func (m *Manager) LocalAddress() (netip.Addr, error) {
	link, err := m.networkMgr.GetLinkByName(m.ifaceName)
	if err != nil {
		return netip.Addr{}, err
	}
	addrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return netip.Addr{}, err
	}
	for _, addr := range addrs {
		if a, ok := netip.AddrFromSlice(addr.IP.To4()); ok {
			return a, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no IPv4 address on %s", m.ifaceName)
}

// HardwareAddress returns the interface MAC address.
func (m *Manager) HardwareAddress() (string, error) {
	link, err := m.networkMgr.GetLinkByName(m.ifaceName)
	if err != nil {
		return "", err
	}
	mac := link.Attrs().HardwareAddr
	if len(mac) == 0 {
		return "", fmt.Errorf("interface %s has no hardware address", m.ifaceName)
	}
	return strings.ToUpper(mac.String()), nil
}
