package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang-oscnode/internal/adapter/infrastructure/file"
	"golang-oscnode/internal/adapter/infrastructure/gpio"
	"golang-oscnode/internal/adapter/infrastructure/kv"
	"golang-oscnode/internal/adapter/infrastructure/network"
	"golang-oscnode/internal/adapter/infrastructure/serial"
	"golang-oscnode/internal/adapter/infrastructure/strip"
	"golang-oscnode/internal/adapter/infrastructure/udp"
	"golang-oscnode/internal/adapter/link"
	"golang-oscnode/internal/adapter/node"
	"golang-oscnode/internal/pkg/command"
	"golang-oscnode/internal/pkg/config"
	"golang-oscnode/internal/pkg/configstore"
	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/pkg/router"
	"golang-oscnode/internal/pkg/trigger"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"
)

// datagramPollTimeout bounds how long one loop pass waits for a datagram.
const datagramPollTimeout = time.Millisecond

// openStore opens the preference store selected by the profile
func openStore(cfg config.StorageConfig) (port.KeyValueStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return kv.OpenSQLiteStore(cfg.Path, cfg.Namespace)
	case "file":
		return kv.OpenFileStore(cfg.Path, cfg.Namespace, file.NewManagerAdapter())
	case "memory":
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// openLink creates the link controller for the profile's interface
func openLink(cfg *config.Config) (*link.Manager, func(), error) {
	networkMgr, err := network.NewManagerAdapter()
	if err != nil {
		return nil, nil, err
	}
	manager, err := link.NewManager(cfg.Device.Interface, networkMgr, cfg.Link.DownThreshold)
	if err != nil {
		networkMgr.Close()
		return nil, nil, err
	}
	return manager, networkMgr.Close, nil
}

// openActuator creates the strip driver selected by the profile
func openActuator(cfg *config.Config, name string) (port.Actuator, error) {
	layout := strip.Layout{Pixels: cfg.Strips.Pixels, Pins: cfg.Strips.Pins}

	switch cfg.Actuator.Driver {
	case "log":
		return strip.NewLogActuator(layout), nil
	case "mqtt":
		mqttCfg := cfg.Actuator.MQTT
		return strip.ConnectMQTT(strip.MQTTOptions{
			Broker:      mqttCfg.Broker,
			ClientID:    name,
			Username:    mqttCfg.Username,
			Password:    mqttCfg.Password,
			TopicPrefix: mqttCfg.TopicPrefix,
			QoS:         byte(mqttCfg.QoS),
		}, layout)
	default:
		return nil, fmt.Errorf("unknown actuator driver %q", cfg.Actuator.Driver)
	}
}

// openSwitch requests the trigger switch line, if the profile has one
func openSwitch(cfg config.SwitchConfig) (port.SwitchInput, error) {
	if !cfg.Enabled {
		return gpio.NoSwitch{}, nil
	}
	return gpio.OpenSwitch(cfg.Chip, cfg.Line)
}

// controlOpener returns a function opening the configuration console.
// The stdio console is shared across node restarts since stdin can only be
// scanned by one reader.
func controlOpener(cfg config.ControlConfig) func() (port.ControlChannel, error) {
	switch cfg.Driver {
	case "stdio":
		shared := serial.NewStreamAdapter(os.Stdin, os.Stdout, nil)
		return func() (port.ControlChannel, error) { return shared, nil }
	default:
		return func() (port.ControlChannel, error) { return serial.OpenPort(cfg.Port, cfg.Baud) }
	}
}

// newBuilder returns the function the supervisor uses to assemble a node.
// Every build reopens storage and reloads the persisted configuration.
func newBuilder(cfg *config.Config, defaults types.NetworkConfig) node.BuildFunc {
	openControl := controlOpener(cfg.Control)

	return func(ctx context.Context) (port.Runner, func(), error) {
		logger := logging.GetLogger()

		var closers []func()
		cleanup := func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
		fail := func(what string, err error) (port.Runner, func(), error) {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open %s: %w", what, err)
		}
		closeLogged := func(what string, c interface{ Close() error }) func() {
			return func() {
				if err := c.Close(); err != nil {
					logger.WithError(err).WithField("resource", what).Warn("Failed to close")
				}
			}
		}

		kvStore, err := openStore(cfg.Storage)
		if err != nil {
			return fail("storage", err)
		}
		closers = append(closers, closeLogged("storage", kvStore))

		store := configstore.New(kvStore, defaults)
		state := store.LoadState()
		name := node.Name(cfg.Device.NamePrefix, state.ID)

		control, err := openControl()
		if err != nil {
			return fail("control channel", err)
		}
		closers = append(closers, closeLogged("control channel", control))

		actuator, err := openActuator(cfg, name)
		if err != nil {
			return fail("strips", err)
		}
		closers = append(closers, closeLogged("strips", actuator))

		if err := strip.Startup(ctx, actuator, cfg.Device.StartupFlash); err != nil {
			return fail("strips", err)
		}

		components := node.Components{Control: control}

		if cfg.Link.Manage {
			linkMgr, closeLink, err := openLink(cfg)
			if err != nil {
				return fail("link", err)
			}
			closers = append(closers, closeLink)

			if err := linkMgr.Apply(ctx, state.Network); err != nil {
				logger.WithError(err).WithField("interface", cfg.Device.Interface).Warn("Failed to apply network configuration")
			}
			components.Link = linkMgr
			components.Info = linkMgr
		}

		conn, err := udp.Listen(state.Network.InPort, datagramPollTimeout)
		if err != nil {
			return fail("datagram socket", err)
		}
		closers = append(closers, closeLogged("datagram socket", conn))

		sw, err := openSwitch(cfg.Switch)
		if err != nil {
			return fail("switch", err)
		}
		closers = append(closers, closeLogged("switch", sw))

		components.Router = router.New(conn, actuator, &state)
		components.Watcher = trigger.NewWatcher(sw, components.Router.SendTrigger, trigger.WithDebounce(cfg.Device.Debounce))
		components.Interpreter = command.NewInterpreter(&state, store, components.Info)

		n := node.New(node.Options{
			Name:          name,
			PollInterval:  cfg.Device.PollInterval,
			CheckInterval: cfg.Link.CheckInterval,
			Echo:          cfg.Device.Echo,
		}, components)

		logger.WithField("node", name).WithField("device_id", int(state.ID)).Info("Node assembled")
		return n, cleanup, nil
	}
}
