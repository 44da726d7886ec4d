//go:build unit

package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-oscnode/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner returns the next result on every Run.
type scriptedRunner struct {
	results []error
	runs    int
}

func (r *scriptedRunner) Run(ctx context.Context) error {
	err := r.results[r.runs]
	r.runs++
	return err
}

func (r *scriptedRunner) GetName() string { return "BCG_SLAVE_1" }

func buildFrom(r *scriptedRunner, builds, cleanups *int) BuildFunc {
	return func(ctx context.Context) (port.Runner, func(), error) {
		*builds++
		return r, func() { *cleanups++ }, nil
	}
}

func TestSupervisor_RestartsOnLinkLoss(t *testing.T) {
	r := &scriptedRunner{results: []error{port.ErrLinkLost, port.ErrLinkLost, context.Canceled}}
	var builds, cleanups int

	s := NewSupervisor(buildFrom(r, &builds, &cleanups), 0, time.Millisecond)
	err := s.Run(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, s.Restarts())
	assert.Equal(t, 3, builds)
	assert.Equal(t, 3, cleanups)
}

func TestSupervisor_OtherErrorsStop(t *testing.T) {
	boom := errors.New("strip bus failure")
	r := &scriptedRunner{results: []error{boom}}
	var builds, cleanups int

	s := NewSupervisor(buildFrom(r, &builds, &cleanups), 0, time.Millisecond)

	assert.ErrorIs(t, s.Run(context.Background()), boom)
	assert.Equal(t, 0, s.Restarts())
	assert.Equal(t, 1, cleanups)
}

func TestSupervisor_MaxRestarts(t *testing.T) {
	r := &scriptedRunner{results: []error{port.ErrLinkLost, port.ErrLinkLost, port.ErrLinkLost}}
	var builds, cleanups int

	s := NewSupervisor(buildFrom(r, &builds, &cleanups), 2, time.Millisecond)
	err := s.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrLinkLost)
	assert.Contains(t, err.Error(), "giving up after 2 restarts")
	assert.Equal(t, 2, s.Restarts())
	assert.Equal(t, 3, builds)
}

func TestSupervisor_BuildFailure(t *testing.T) {
	s := NewSupervisor(func(ctx context.Context) (port.Runner, func(), error) {
		return nil, nil, errors.New("database is locked")
	}, 0, time.Millisecond)

	err := s.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build node")
}

func TestSupervisor_CancelledDuringDelay(t *testing.T) {
	r := &scriptedRunner{results: []error{port.ErrLinkLost}}
	var builds, cleanups int

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSupervisor(func(c context.Context) (port.Runner, func(), error) {
		cancel()
		return buildFrom(r, &builds, &cleanups)(c)
	}, 0, time.Hour)

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, 1, s.Restarts())
}
