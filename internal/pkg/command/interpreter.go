package command

import (
	"fmt"
	"net/netip"
	"strings"

	"golang-oscnode/internal/pkg/configstore"
	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/sirupsen/logrus"
)

// HelpText lists every command accepted on the control channel.
const HelpText = "Available commands:\n" +
	"SET_IP <ip_address> - Set the device IP address\n" +
	"SET_SUBNET <subnet_mask> - Set the subnet mask\n" +
	"SET_GATEWAY <gateway_ip> - Set the gateway IP address\n" +
	"SET_OUTIP <outgoing_ip> - Set the outgoing IP address\n" +
	"SET_INPORT <port_number> - Set the input port (default 7001)\n" +
	"SET_OUTPORT <port_number> - Set the output port (default 7000)\n" +
	"SET_ID <device_id> - Set the device ID (1-8)\n" +
	"GET - Get current configuration\n" +
	"IP - Show current IP address\n" +
	"MAC - Show current MAC address\n" +
	"HELP - Show this help message\n"

// Status classifies the outcome of a command.
type Status int

const (
	// StatusIgnored means the line was not a command; nothing is sent back.
	StatusIgnored Status = iota
	StatusOK
	StatusRejected
)

// Result is the acknowledgement of an executed command.
type Result struct {
	Status  Status
	Message string
}

// Interpreter executes commands against the device state.
type Interpreter struct {
	state  *types.DeviceState
	store  *configstore.Store
	link   port.LinkInfo
	logger *logrus.Entry
}

// NewInterpreter creates an interpreter. link may be nil when no live link is available.
func NewInterpreter(state *types.DeviceState, store *configstore.Store, link port.LinkInfo) *Interpreter {
	return &Interpreter{
		state:  state,
		store:  store,
		link:   link,
		logger: logging.WithComponent("command"),
	}
}

// ExecuteLine parses and executes one control line.
func (i *Interpreter) ExecuteLine(line string) Result {
	return i.Execute(Parse(line))
}

// Execute runs a parsed command.
func (i *Interpreter) Execute(cmd Command) Result {
	logger := i.logger.WithField("command", cmd.Kind.String())

	var res Result
	switch cmd.Kind {
	case KindSetIP:
		res = i.setAddress(cmd, "IP", &i.state.Network.LocalIP)
	case KindSetSubnet:
		res = i.setAddress(cmd, "Subnet", &i.state.Network.Subnet)
	case KindSetGateway:
		res = i.setAddress(cmd, "Gateway", &i.state.Network.Gateway)
	case KindSetOutIP:
		res = i.setAddress(cmd, "OutIP", &i.state.Network.OutIP)
	case KindSetInPort:
		res = i.setPort(cmd, "Input", &i.state.Network.InPort)
	case KindSetOutPort:
		res = i.setPort(cmd, "Output", &i.state.Network.OutPort)
	case KindSetID:
		res = i.setID(cmd)
	case KindGet:
		res = Result{Status: StatusOK, Message: FormatState(*i.state)}
	case KindShowIP:
		res = i.showIP()
	case KindShowMAC:
		res = i.showMAC()
	case KindHelp:
		res = Result{Status: StatusOK, Message: HelpText}
	default:
		logger.WithField("line", cmd.Raw).Debug("Ignoring unrecognized line")
		return Result{Status: StatusIgnored}
	}

	if res.Status == StatusRejected {
		logger.WithField("line", cmd.Raw).Info("Command rejected")
	} else {
		logger.Debug("Command executed")
	}
	return res
}

func (i *Interpreter) setAddress(cmd Command, field string, target *netip.Addr) Result {
	if !cmd.Valid {
		return rejected("❌ Invalid %s format.", field)
	}
	*target = cmd.Addr
	i.saveNetwork()
	return ok("✅ %s updated and saved.", field)
}

func (i *Interpreter) setPort(cmd Command, direction string, target *uint16) Result {
	if !cmd.Valid || cmd.Number <= 0 || cmd.Number > 65535 {
		return rejected("❌ Invalid port. Must be between 1 and 65535.")
	}
	*target = uint16(cmd.Number)
	i.saveNetwork()
	return ok("✅ %s port set to %d and saved.", direction, *target)
}

func (i *Interpreter) setID(cmd Command) Result {
	id := types.DeviceID(cmd.Number)
	if !cmd.Valid || !id.Valid() {
		return rejected("❌ Invalid Device ID. Must be between %d and %d.", types.MinDeviceID, types.MaxDeviceID)
	}
	i.state.ID = id
	// Persistence failures are logged by the store and do not change the acknowledgement.
	_ = i.store.SaveIdentity(id)
	return ok("✅ Device ID set to %d and saved.", id)
}

func (i *Interpreter) saveNetwork() {
	_ = i.store.Save(i.state.Network)
}

func (i *Interpreter) showIP() Result {
	addr := "unavailable"
	if i.link != nil {
		if a, err := i.link.LocalAddress(); err != nil {
			i.logger.WithError(err).Warn("Failed to query link address")
		} else {
			addr = a.String()
		}
	}
	return ok("ETH IP: %s", addr)
}

func (i *Interpreter) showMAC() Result {
	mac := "unavailable"
	if i.link != nil {
		if m, err := i.link.HardwareAddress(); err != nil {
			i.logger.WithError(err).Warn("Failed to query link hardware address")
		} else {
			mac = m
		}
	}
	return ok("ETH MAC: %s", mac)
}

// FormatState renders the configuration listing returned by GET.
func FormatState(s types.DeviceState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Device ID: %d\n", s.ID)
	fmt.Fprintf(&b, "IP: %s\n", s.Network.LocalIP)
	fmt.Fprintf(&b, "Subnet: %s\n", s.Network.Subnet)
	fmt.Fprintf(&b, "Gateway: %s\n", s.Network.Gateway)
	fmt.Fprintf(&b, "Out IP: %s\n", s.Network.OutIP)
	fmt.Fprintf(&b, "In Port: %d\n", s.Network.InPort)
	fmt.Fprintf(&b, "Out Port: %d\n", s.Network.OutPort)
	return b.String()
}

func ok(format string, args ...any) Result {
	return Result{Status: StatusOK, Message: fmt.Sprintf(format, args...) + "\n"}
}

func rejected(format string, args ...any) Result {
	return Result{Status: StatusRejected, Message: fmt.Sprintf(format, args...) + "\n"}
}
