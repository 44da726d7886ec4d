// Package router matches OSC trigger messages against the local identity
// and emits this node's own trigger.
package router

import (
	"fmt"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/hypebeast/go-osc/osc"
	"github.com/sirupsen/logrus"
)

// OSC addresses understood by the node. Matching is exact.
const (
	AddressDevice = "/device/"
	AddressClear  = "/clear/"
)

// Outcome describes what an inbound datagram caused.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeActivated
	OutcomeIgnored
	OutcomeCleared
	OutcomeUnmatched
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActivated:
		return "activated"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCleared:
		return "cleared"
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "none"
	}
}

// Router routes datagrams between the transport, the device state and the strips.
type Router struct {
	conn     port.DatagramConn
	actuator port.Actuator
	state    *types.DeviceState
	logger   *logrus.Entry
}

// New creates a router. state is read on every message, so identity and
// target changes apply immediately.
func New(conn port.DatagramConn, actuator port.Actuator, state *types.DeviceState) *Router {
	return &Router{
		conn:     conn,
		actuator: actuator,
		state:    state,
		logger:   logging.WithComponent("router"),
	}
}

// Poll handles at most one queued datagram. It returns OutcomeNone when nothing was queued.
func (r *Router) Poll() (Outcome, error) {
	payload, ok, err := r.conn.Receive()
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to receive datagram: %w", err)
	}
	if !ok {
		return OutcomeNone, nil
	}
	return r.Handle(payload)
}

// Handle decodes one datagram and applies it.
func (r *Router) Handle(payload []byte) (Outcome, error) {
	if len(payload) == 0 {
		r.logger.Debug("Dropping empty datagram")
		return OutcomeMalformed, nil
	}

	packet, err := osc.ParsePacket(string(payload))
	if err != nil {
		r.logger.WithError(err).Debug("Dropping undecodable datagram")
		return OutcomeMalformed, nil
	}

	msg, ok := packet.(*osc.Message)
	if !ok {
		r.logger.Debug("Dropping OSC bundle")
		return OutcomeMalformed, nil
	}

	switch msg.Address {
	case AddressDevice:
		return r.handleDevice(msg)
	case AddressClear:
		if err := r.actuator.Fill(types.BaseFrame); err != nil {
			return OutcomeCleared, fmt.Errorf("failed to clear strips: %w", err)
		}
		r.logger.Debug("Strips cleared")
		return OutcomeCleared, nil
	default:
		r.logger.WithField("address", msg.Address).Info("Received OSC message with unmatched address")
		return OutcomeUnmatched, nil
	}
}

func (r *Router) handleDevice(msg *osc.Message) (Outcome, error) {
	logger := r.logger.WithField("address", msg.Address)

	target, ok := firstInt(msg.Arguments)
	if !ok {
		logger.WithField("arguments", msg.Arguments).Debug("Trigger without integer argument")
		return OutcomeIgnored, nil
	}
	logger = logger.WithField("target", target)

	if target != int64(r.state.ID) {
		logger.Debug("Trigger addressed to another node")
		return OutcomeIgnored, nil
	}

	if err := r.actuator.Fill(types.HighlightFrame); err != nil {
		return OutcomeActivated, fmt.Errorf("failed to highlight strips: %w", err)
	}
	logger.Info("Trigger matched this node")
	return OutcomeActivated, nil
}

// SendTrigger sends this node's identity to the configured outbound target.
// Delivery is not confirmed and failures are not retried.
func (r *Router) SendTrigger() error {
	dst := r.state.Network.OutTarget()

	data, err := EncodeTrigger(r.state.ID)
	if err != nil {
		return err
	}
	if err := r.conn.SendTo(dst, data); err != nil {
		return fmt.Errorf("failed to send trigger to %s: %w", dst, err)
	}

	r.logger.WithFields(logrus.Fields{
		"target":    dst.String(),
		"device_id": int(r.state.ID),
	}).Info("Trigger sent")
	return nil
}

// EncodeTrigger returns the OSC encoding of a /device/ message carrying id.
func EncodeTrigger(id types.DeviceID) ([]byte, error) {
	msg := osc.NewMessage(AddressDevice, int32(id))
	data, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger: %w", err)
	}
	return data, nil
}

func firstInt(args []interface{}) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
