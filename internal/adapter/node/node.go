// Package node runs the device superloop and restarts it when the link is lost.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-oscnode/internal/pkg/command"
	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/pkg/router"
	"golang-oscnode/internal/pkg/trigger"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/sirupsen/logrus"
)

// DefaultNamePrefix is prepended to the device ID to form the node name.
const DefaultNamePrefix = "BCG_SLAVE_"

// Name returns the node name announced on the control channel.
func Name(prefix string, id types.DeviceID) string {
	return fmt.Sprintf("%s%d", prefix, id)
}

// Options configures a Node.
type Options struct {
	Name          string
	PollInterval  time.Duration
	CheckInterval time.Duration
	// Echo writes every received control line back after its acknowledgement.
	Echo bool
	// Clock replaces time.Now for link check scheduling.
	Clock func() time.Time
}

// Components are the collaborators serviced on each pass.
// Link and Info may be nil when the link is not managed.
type Components struct {
	Watcher     *trigger.Watcher
	Control     port.ControlChannel
	Interpreter *command.Interpreter
	Router      *router.Router
	Link        port.LinkMonitor
	Info        port.LinkInfo
}

// Node is the single cooperative loop of the device. Each pass samples the
// switch, services one control line, handles one datagram and, at most once
// per check interval, checks the link. No collaborator call blocks, so the
// device state is only touched from the loop goroutine.
type Node struct {
	opts Options
	c    Components

	lastCheck time.Time
	logger    *logrus.Entry
}

// Ensure Node implements the Runner port
var _ port.Runner = (*Node)(nil)

// New creates a node.
func New(opts Options, c Components) *Node {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Node{
		opts:   opts,
		c:      c,
		logger: logging.WithComponentAndNode("node", opts.Name),
	}
}

// GetName returns the node name.
func (n *Node) GetName() string {
	return n.opts.Name
}

// Run services the node until ctx is cancelled or the link is lost.
func (n *Node) Run(ctx context.Context) error {
	n.logger.Info("Starting node")
	n.announce()

	ticker := time.NewTicker(n.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Node stopped due to context cancellation")
			return ctx.Err()
		case <-ticker.C:
			if err := n.Step(ctx); err != nil {
				return err
			}
		}
	}
}

// Step performs one loop pass. It only returns an error wrapping port.ErrLinkLost.
func (n *Node) Step(ctx context.Context) error {
	if fired, err := n.c.Watcher.Poll(); err != nil {
		n.logger.WithError(err).Warn("Switch handling failed")
	} else if fired {
		n.logger.Debug("Trigger fired")
	}

	n.serviceControl()

	if outcome, err := n.c.Router.Poll(); err != nil {
		n.logger.WithError(err).WithField("outcome", outcome.String()).Warn("Datagram handling failed")
	}

	return n.checkLink(ctx)
}

func (n *Node) serviceControl() {
	line, ok, err := n.c.Control.ReadLine()
	if err != nil {
		n.logger.WithError(err).Warn("Failed to read control channel")
		return
	}
	if !ok {
		return
	}

	res := n.c.Interpreter.ExecuteLine(line)
	if res.Status != command.StatusIgnored {
		n.reply(res.Message)
	}
	if n.opts.Echo {
		n.reply(line + "\n")
	}
}

func (n *Node) reply(s string) {
	if err := n.c.Control.WriteString(s); err != nil {
		n.logger.WithError(err).Warn("Failed to write control channel")
	}
}

func (n *Node) checkLink(ctx context.Context) error {
	if n.c.Link == nil {
		return nil
	}

	now := n.opts.Clock()
	if !n.lastCheck.IsZero() && now.Sub(n.lastCheck) < n.opts.CheckInterval {
		return nil
	}
	n.lastCheck = now

	err := n.c.Link.Check(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, port.ErrLinkLost) {
		n.logger.WithError(err).Warn("Stopping node")
		return err
	}
	n.logger.WithError(err).Warn("Link check failed")
	return nil
}

// announce writes the node name on the control channel and logs the live address.
func (n *Node) announce() {
	n.reply(n.opts.Name + "\n")

	if n.c.Info == nil {
		return
	}
	fields := logrus.Fields{}
	if ip, err := n.c.Info.LocalAddress(); err == nil {
		fields["ip"] = ip.String()
	} else {
		n.logger.WithError(err).Debug("No live address")
	}
	if mac, err := n.c.Info.HardwareAddress(); err == nil {
		fields["mac"] = mac
	}
	n.logger.WithFields(fields).Info("Link ready")
}
