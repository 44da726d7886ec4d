//go:build unit

package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoSwitch(t *testing.T) {
	var s NoSwitch

	active, err := s.Active()
	assert.NoError(t, err)
	assert.False(t, active)
	assert.NoError(t, s.Close())
}

func TestOpenSwitch_MissingChip(t *testing.T) {
	_, err := OpenSwitch("gpiochip-does-not-exist", 32)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open gpio chip")
}
