// Package trigger turns presses of the physical switch into outbound triggers.
package trigger

import (
	"fmt"
	"time"

	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"

	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the minimum spacing between two fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher polls the switch level once per loop pass. It fires when the switch
// is active and at least the debounce interval has passed since the last fire,
// so a held switch fires once per interval and presses shorter than one pass
// can be missed.
type Watcher struct {
	input    port.SwitchInput
	send     func() error
	debounce time.Duration
	now      func() time.Time
	lastFire time.Time
	fires    uint64
	logger   *logrus.Entry
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher calling send on each fire.
func NewWatcher(input port.SwitchInput, send func() error, opts ...Option) *Watcher {
	w := &Watcher{
		input:    input,
		send:     send,
		debounce: DefaultDebounce,
		now:      time.Now,
		logger:   logging.WithComponent("trigger"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Poll samples the switch once. It reports whether a trigger fired.
// The fire is recorded before send is called, so a failed send is not retried
// until the debounce interval has passed again.
func (w *Watcher) Poll() (bool, error) {
	now := w.now()
	if w.fires > 0 && now.Sub(w.lastFire) < w.debounce {
		return false, nil
	}

	active, err := w.input.Active()
	if err != nil {
		return false, fmt.Errorf("failed to read switch: %w", err)
	}
	if !active {
		return false, nil
	}

	w.lastFire = now
	w.fires++
	w.logger.WithField("fires", w.fires).Debug("Switch pressed")

	return true, w.send()
}

// Fires returns the number of triggers fired so far.
func (w *Watcher) Fires() uint64 {
	return w.fires
}
