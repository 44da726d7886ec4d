package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"

	"github.com/sirupsen/logrus"
)

// BuildFunc assembles a fresh runner, reopening storage and reloading
// configuration. cleanup releases everything the runner holds.
type BuildFunc func(ctx context.Context) (runner port.Runner, cleanup func(), err error)

// Supervisor rebuilds and restarts the node when it reports port.ErrLinkLost.
// Any other result ends supervision.
type Supervisor struct {
	build        BuildFunc
	maxRestarts  int
	restartDelay time.Duration
	restarts     int
	logger       *logrus.Entry
}

// NewSupervisor creates a supervisor. maxRestarts of 0 means unbounded.
func NewSupervisor(build BuildFunc, maxRestarts int, restartDelay time.Duration) *Supervisor {
	return &Supervisor{
		build:        build,
		maxRestarts:  maxRestarts,
		restartDelay: restartDelay,
		logger:       logging.WithComponent("supervisor"),
	}
}

// Restarts returns how many times the node has been restarted.
func (s *Supervisor) Restarts() int {
	return s.restarts
}

// Run builds and runs the node until ctx is cancelled, the node fails with an
// error other than link loss, or the restart limit is reached.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		runner, cleanup, err := s.build(ctx)
		if err != nil {
			return fmt.Errorf("failed to build node: %w", err)
		}

		logger := s.logger.WithFields(logrus.Fields{"node": runner.GetName(), "restarts": s.restarts})
		err = runner.Run(ctx)
		cleanup()

		if !errors.Is(err, port.ErrLinkLost) {
			return err
		}
		if s.maxRestarts > 0 && s.restarts >= s.maxRestarts {
			return fmt.Errorf("giving up after %d restarts: %w", s.restarts, err)
		}

		s.restarts++
		logger.WithError(err).WithField("delay", s.restartDelay.String()).Warn("Restarting node")

		timer := time.NewTimer(s.restartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
