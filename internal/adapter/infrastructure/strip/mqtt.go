package strip

import (
	"encoding/json"
	"fmt"
	"time"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250
)

// MQTTOptions configures the MQTT actuator.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// framePayload is the retained state published for each fill.
type framePayload struct {
	Color      string `json:"color"`
	Brightness uint8  `json:"brightness"`
	Pixels     int    `json:"pixels"`
	Pins       []int  `json:"pins"`
}

// publisher is the subset of the paho client used by MQTTActuator.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTActuator publishes every frame as retained JSON so that a strip
// controller subscribed to the topic can render it. Fill never waits for the
// broker; a delivery failure is logged once the publish completes.
type MQTTActuator struct {
	client publisher
	topic  string
	qos    byte
	layout Layout
	logger *logrus.Entry

	// pending is the last publish not yet seen to complete
	pending pahomqtt.Token
}

// Ensure MQTTActuator implements the Actuator port
var _ port.Actuator = (*MQTTActuator)(nil)

// ConnectMQTT connects to the broker and returns an actuator publishing on
// <prefix>/<client id>/strip.
func ConnectMQTT(opts MQTTOptions, layout Layout) (*MQTTActuator, error) {
	clientOpts := pahomqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectTimeout(connectTimeout)

	client := pahomqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: timeout after %v", opts.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", opts.Broker, err)
	}

	return newMQTTActuator(client, opts, layout), nil
}

func newMQTTActuator(client publisher, opts MQTTOptions, layout Layout) *MQTTActuator {
	return &MQTTActuator{
		client: client,
		topic:  Topic(opts.TopicPrefix, opts.ClientID),
		qos:    opts.QoS,
		layout: layout,
		logger: logging.WithComponentAndNode("strip", opts.ClientID),
	}
}

// Topic returns the strip state topic for a node.
func Topic(prefix, node string) string {
	return prefix + "/" + node + "/strip"
}

// Fill publishes the frame without waiting for delivery. It only fails when
// the frame cannot be encoded or the client rejects the publish at once.
func (a *MQTTActuator) Fill(frame types.Frame) error {
	a.reapPending()

	payload, err := json.Marshal(framePayload{
		Color:      frame.Color.String(),
		Brightness: frame.Brightness,
		Pixels:     a.layout.Pixels,
		Pins:       a.layout.Pins,
	})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	token := a.client.Publish(a.topic, a.qos, true, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish frame to %s: %w", a.topic, err)
		}
	default:
		a.pending = token
	}

	a.logger.WithField("color", frame.Color.String()).Debug("Frame published")
	return nil
}

// reapPending logs the outcome of the previous publish if it has completed.
func (a *MQTTActuator) reapPending() {
	if a.pending == nil {
		return
	}
	select {
	case <-a.pending.Done():
		if err := a.pending.Error(); err != nil {
			a.logger.WithError(err).Warn("Previous frame was not delivered")
		}
	default:
		a.logger.Debug("Previous frame still in flight")
	}
	a.pending = nil
}

// Close disconnects from the broker.
func (a *MQTTActuator) Close() error {
	a.client.Disconnect(disconnectQuiesce)
	return nil
}
