// Package configstore persists device identity and network parameters
// through a key-value preference store.
//
// Each field is stored under its own key, so a crash between writes can leave
// a mix of old and new values. Loading falls back to the deployment default
// field by field.
package configstore

import (
	"errors"
	"fmt"
	"net/netip"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/sirupsen/logrus"
)

// Preference keys.
const (
	KeyDeviceID = "device_id"
	KeyInPort   = "inPort"
	KeyOutPort  = "outPort"

	prefixIP      = "ip"
	prefixSubnet  = "sub"
	prefixGateway = "gw"
	prefixOutIP   = "out"
)

// Store loads and saves the device state. It holds no copy of the state itself.
type Store struct {
	kv       port.KeyValueStore
	defaults types.NetworkConfig
	logger   *logrus.Entry
}

// New creates a store over kv. defaults supplies every field that is absent from kv.
func New(kv port.KeyValueStore, defaults types.NetworkConfig) *Store {
	return &Store{
		kv:       kv,
		defaults: defaults,
		logger:   logging.WithComponent("configstore"),
	}
}

// Defaults returns the fallback network parameters.
func (s *Store) Defaults() types.NetworkConfig {
	return s.defaults
}

// Load returns the persisted network parameters.
func (s *Store) Load() types.NetworkConfig {
	return types.NetworkConfig{
		LocalIP: s.loadAddr(prefixIP, s.defaults.LocalIP),
		Subnet:  s.loadAddr(prefixSubnet, s.defaults.Subnet),
		Gateway: s.loadAddr(prefixGateway, s.defaults.Gateway),
		OutIP:   s.loadAddr(prefixOutIP, s.defaults.OutIP),
		InPort:  s.loadPort(KeyInPort, s.defaults.InPort),
		OutPort: s.loadPort(KeyOutPort, s.defaults.OutPort),
	}
}

// Save writes every network field. Writes are independent; the first
// failures do not stop later keys from being written.
func (s *Store) Save(cfg types.NetworkConfig) error {
	errs := []error{
		s.saveAddr(prefixIP, cfg.LocalIP),
		s.saveAddr(prefixSubnet, cfg.Subnet),
		s.saveAddr(prefixGateway, cfg.Gateway),
		s.saveAddr(prefixOutIP, cfg.OutIP),
		s.put(KeyInPort, uint32(cfg.InPort)),
		s.put(KeyOutPort, uint32(cfg.OutPort)),
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.WithError(err).Warn("Network configuration only partially saved")
		return err
	}
	return nil
}

// LoadIdentity returns the persisted device identity. A missing or out of
// range identity is replaced by types.UnconfiguredID, which is written back.
func (s *Store) LoadIdentity() types.DeviceID {
	v, found, err := s.kv.GetUint(KeyDeviceID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read device identity")
	}

	id := types.DeviceID(0)
	if found && v <= uint32(types.UnconfiguredID) {
		id = types.DeviceID(v)
	}
	if !id.Valid() {
		s.logger.WithField("stored", v).Warn("Device identity unset or out of range, marking node unconfigured")
		id = types.UnconfiguredID
		_ = s.SaveIdentity(id)
	}

	s.logger.WithField("device_id", int(id)).Debug("Loaded device identity")
	return id
}

// SaveIdentity persists the device identity.
func (s *Store) SaveIdentity(id types.DeviceID) error {
	if err := s.put(KeyDeviceID, uint32(id)); err != nil {
		s.logger.WithError(err).Warn("Failed to save device identity")
		return err
	}
	return nil
}

// LoadState returns the full device state.
func (s *Store) LoadState() types.DeviceState {
	return types.DeviceState{
		ID:      s.LoadIdentity(),
		Network: s.Load(),
	}
}

func (s *Store) loadAddr(prefix string, def netip.Addr) netip.Addr {
	d := def.As4()
	var b [4]byte
	for i := range b {
		key := octetKey(prefix, i)
		v, found, err := s.kv.GetUint(key)
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("key", key).Warn("Failed to read preference, using default")
			b[i] = d[i]
		case !found || v > 255:
			b[i] = d[i]
		default:
			b[i] = byte(v)
		}
	}
	return netip.AddrFrom4(b)
}

func (s *Store) loadPort(key string, def uint16) uint16 {
	v, found, err := s.kv.GetUint(key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read preference, using default")
		return def
	}
	if !found || v == 0 || v > 65535 {
		return def
	}
	return uint16(v)
}

func (s *Store) saveAddr(prefix string, addr netip.Addr) error {
	if !addr.Is4() {
		return fmt.Errorf("address %s for %s is not IPv4", addr, prefix)
	}
	b := addr.As4()
	var errs []error
	for i, octet := range b {
		errs = append(errs, s.put(octetKey(prefix, i), uint32(octet)))
	}
	return errors.Join(errs...)
}

func (s *Store) put(key string, value uint32) error {
	if err := s.kv.PutUint(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func octetKey(prefix string, i int) string {
	return fmt.Sprintf("%s%d", prefix, i)
}
