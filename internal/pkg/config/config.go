package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/types"

	"gopkg.in/yaml.v3"
)

// DeviceConfig holds node-wide settings
type DeviceConfig struct {
	NamePrefix   string        `yaml:"name_prefix"`
	Interface    string        `yaml:"interface"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
	Echo         bool          `yaml:"echo"`
	StartupFlash time.Duration `yaml:"startup_flash"`
}

// StripsConfig describes the LED strips driven by the node
type StripsConfig struct {
	Pixels int   `yaml:"pixels"`
	Pins   []int `yaml:"pins"`
}

// SwitchConfig describes the physical trigger switch
type SwitchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Line    int    `yaml:"line"`
}

// StorageConfig selects the preference store backend
type StorageConfig struct {
	Driver    string `yaml:"driver"` // sqlite, file, or memory
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// ControlConfig selects the configuration console transport
type ControlConfig struct {
	Driver string `yaml:"driver"` // serial or stdio
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
}

// MQTTConfig represents the broker used by the mqtt actuator driver
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// ActuatorConfig selects the strip driver
type ActuatorConfig struct {
	Driver string     `yaml:"driver"` // log or mqtt
	MQTT   MQTTConfig `yaml:"mqtt"`
}

// LinkConfig controls how the wired link is managed and supervised
type LinkConfig struct {
	Manage        bool          `yaml:"manage"`
	CheckInterval time.Duration `yaml:"check_interval"`
	DownThreshold int           `yaml:"down_threshold"`
}

// SupervisorConfig controls restarts after a lost link
type SupervisorConfig struct {
	MaxRestarts  int           `yaml:"max_restarts"`
	RestartDelay time.Duration `yaml:"restart_delay"`
}

// DefaultsConfig holds the network parameters used when nothing is persisted
type DefaultsConfig struct {
	IP      string `yaml:"ip"`
	Subnet  string `yaml:"subnet"`
	Gateway string `yaml:"gateway"`
	OutIP   string `yaml:"out_ip"`
	InPort  int    `yaml:"in_port"`
	OutPort int    `yaml:"out_port"`
}

// Config represents the deployment profile of a node
type Config struct {
	Logging    logging.LogConfig `yaml:"logging"`
	Device     DeviceConfig      `yaml:"device"`
	Strips     StripsConfig      `yaml:"strips"`
	Switch     SwitchConfig      `yaml:"switch"`
	Storage    StorageConfig     `yaml:"storage"`
	Control    ControlConfig     `yaml:"control"`
	Actuator   ActuatorConfig    `yaml:"actuator"`
	Link       LinkConfig        `yaml:"link"`
	Supervisor SupervisorConfig  `yaml:"supervisor"`
	Defaults   DefaultsConfig    `yaml:"defaults"`
}

// Default returns the profile of the reference three-strip node
func Default() *Config {
	return &Config{
		Logging: logging.LogConfig{Level: "info", Format: "compact"},
		Device: DeviceConfig{
			NamePrefix:   "BCG_SLAVE_",
			Interface:    "eth0",
			PollInterval: 5 * time.Millisecond,
			Debounce:     500 * time.Millisecond,
			StartupFlash: time.Second,
		},
		Strips:  StripsConfig{Pixels: 30, Pins: []int{13, 14, 33}},
		Switch:  SwitchConfig{Enabled: true, Chip: "gpiochip0", Line: 32},
		Storage: StorageConfig{Driver: "sqlite", Path: "/var/lib/oscnode/preferences.db", Namespace: "CONFIG"},
		Control: ControlConfig{Driver: "serial", Port: "/dev/rfcomm0", Baud: 115200},
		Actuator: ActuatorConfig{
			Driver: "log",
			MQTT:   MQTTConfig{TopicPrefix: "oscnode"},
		},
		Link:       LinkConfig{Manage: true, CheckInterval: 30 * time.Second, DownThreshold: 3},
		Supervisor: SupervisorConfig{RestartDelay: time.Second},
		Defaults: DefaultsConfig{
			IP:      "192.168.1.101",
			Subnet:  "255.255.255.0",
			Gateway: "192.168.1.1",
			OutIP:   "192.168.1.99",
			InPort:  7001,
			OutPort: 7000,
		},
	}
}

// Load loads configuration from a YAML file on top of Default
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Device.PollInterval <= 0 {
		return fmt.Errorf("device: poll_interval must be positive")
	}
	if c.Device.Debounce < 0 {
		return fmt.Errorf("device: debounce must not be negative")
	}
	if c.Device.Interface == "" && c.Link.Manage {
		return fmt.Errorf("device: interface is required when link.manage is set")
	}

	if c.Strips.Pixels <= 0 {
		return fmt.Errorf("strips: pixels must be positive")
	}
	if len(c.Strips.Pins) == 0 {
		return fmt.Errorf("strips: at least one pin is required")
	}

	if c.Switch.Enabled {
		if c.Switch.Chip == "" {
			return fmt.Errorf("switch: chip is required")
		}
		if c.Switch.Line < 0 {
			return fmt.Errorf("switch: line must not be negative")
		}
	}

	switch c.Storage.Driver {
	case "sqlite", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: path is required for driver %s", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("storage: namespace is required")
	}

	switch c.Control.Driver {
	case "serial":
		if c.Control.Port == "" {
			return fmt.Errorf("control: port is required for serial driver")
		}
		if c.Control.Baud <= 0 {
			return fmt.Errorf("control: baud must be positive")
		}
	case "stdio":
	default:
		return fmt.Errorf("control: unknown driver %q", c.Control.Driver)
	}

	switch c.Actuator.Driver {
	case "log":
	case "mqtt":
		if c.Actuator.MQTT.Broker == "" {
			return fmt.Errorf("actuator: mqtt broker is required")
		}
		if c.Actuator.MQTT.QoS < 0 || c.Actuator.MQTT.QoS > 2 {
			return fmt.Errorf("actuator: mqtt qos must be 0, 1 or 2")
		}
	default:
		return fmt.Errorf("actuator: unknown driver %q", c.Actuator.Driver)
	}

	if c.Link.CheckInterval <= 0 {
		return fmt.Errorf("link: check_interval must be positive")
	}
	if c.Link.DownThreshold < 1 {
		return fmt.Errorf("link: down_threshold must be at least 1")
	}

	if c.Supervisor.MaxRestarts < 0 {
		return fmt.Errorf("supervisor: max_restarts must not be negative")
	}

	if _, err := c.NetworkDefaults(); err != nil {
		return err
	}

	return nil
}

// NetworkDefaults returns the parsed fallback network parameters
func (c *Config) NetworkDefaults() (types.NetworkConfig, error) {
	var nc types.NetworkConfig
	var err error

	if nc.LocalIP, err = parseIPv4("ip", c.Defaults.IP); err != nil {
		return nc, err
	}
	if nc.Subnet, err = parseIPv4("subnet", c.Defaults.Subnet); err != nil {
		return nc, err
	}
	if nc.Gateway, err = parseIPv4("gateway", c.Defaults.Gateway); err != nil {
		return nc, err
	}
	if nc.OutIP, err = parseIPv4("out_ip", c.Defaults.OutIP); err != nil {
		return nc, err
	}
	if nc.InPort, err = parsePort("in_port", c.Defaults.InPort); err != nil {
		return nc, err
	}
	if nc.OutPort, err = parsePort("out_port", c.Defaults.OutPort); err != nil {
		return nc, err
	}

	return nc, nil
}

func parseIPv4(field, value string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("defaults: %s %q is not a dotted-quad address", field, value)
	}
	return addr, nil
}

func parsePort(field string, value int) (uint16, error) {
	if value <= 0 || value > 65535 {
		return 0, fmt.Errorf("defaults: %s %d must be between 1 and 65535", field, value)
	}
	return uint16(value), nil
}
