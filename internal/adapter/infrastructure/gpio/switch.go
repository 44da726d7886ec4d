// Package gpio provides the physical trigger switch adapter.
package gpio

import (
	"fmt"

	"golang-oscnode/internal/port"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// SwitchAdapter reads an active-low push button wired to a GPIO line with the
// internal pull-up enabled.
type SwitchAdapter struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

// Ensure SwitchAdapter implements the SwitchInput port
var _ port.SwitchInput = (*SwitchAdapter)(nil)

// OpenSwitch requests offset on chipName as a pulled-up input.
func OpenSwitch(chipName string, offset int) (*SwitchAdapter, error) {
	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiod.AsInput, gpiod.WithPullUp)
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("failed to request switch line %d: %w", offset, err)
	}

	return &SwitchAdapter{chip: chip, line: line}, nil
}

// Active reports whether the switch pulls the line low.
func (s *SwitchAdapter) Active() (bool, error) {
	v, err := s.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read switch line: %w", err)
	}
	return v == 0, nil
}

// Close releases the line and the chip.
func (s *SwitchAdapter) Close() error {
	lineErr := s.line.Close()
	chipErr := s.chip.Close()
	if lineErr != nil {
		return fmt.Errorf("failed to release switch line: %w", lineErr)
	}
	if chipErr != nil {
		return fmt.Errorf("failed to close gpio chip: %w", chipErr)
	}
	return nil
}

// NoSwitch is used by deployment profiles without a physical switch.
type NoSwitch struct{}

// Ensure NoSwitch implements the SwitchInput port
var _ port.SwitchInput = NoSwitch{}

// Active always reports released.
func (NoSwitch) Active() (bool, error) { return false, nil }

// Close is a no-op.
func (NoSwitch) Close() error { return nil }
