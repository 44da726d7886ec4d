// Package strip provides the LED strip actuator adapters.
//
// The node treats its strips as one output: every frame is a whole-strip fill
// applied to all configured strips at once.
package strip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/sirupsen/logrus"
)

// Layout describes the physical strips driven by a node.
type Layout struct {
	Pixels int
	Pins   []int
}

// LogActuator records frames in the log. It is used on hosts without strip
// hardware and keeps the last frame for inspection.
type LogActuator struct {
	layout Layout
	logger *logrus.Entry

	mu   sync.Mutex
	last types.Frame
	n    int
}

// Ensure LogActuator implements the Actuator port
var _ port.Actuator = (*LogActuator)(nil)

// NewLogActuator creates a LogActuator for layout.
func NewLogActuator(layout Layout) *LogActuator {
	return &LogActuator{
		layout: layout,
		logger: logging.WithComponent("strip"),
	}
}

// Fill logs the frame.
func (a *LogActuator) Fill(frame types.Frame) error {
	a.mu.Lock()
	a.last = frame
	a.n++
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"color":      frame.Color.String(),
		"brightness": frame.Brightness,
		"pixels":     a.layout.Pixels,
		"strips":     len(a.layout.Pins),
	}).Info("Strip fill")
	return nil
}

// Last returns the most recent frame and the number of fills so far.
func (a *LogActuator) Last() (types.Frame, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.n
}

// Close is a no-op.
func (a *LogActuator) Close() error { return nil }

// Startup flashes the startup frame for flash, then shows the base frame.
func Startup(ctx context.Context, a port.Actuator, flash time.Duration) error {
	if err := a.Fill(types.StartupFrame); err != nil {
		return fmt.Errorf("failed to show startup frame: %w", err)
	}

	if flash > 0 {
		timer := time.NewTimer(flash)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := a.Fill(types.BaseFrame); err != nil {
		return fmt.Errorf("failed to show base frame: %w", err)
	}
	return nil
}
