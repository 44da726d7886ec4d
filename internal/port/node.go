// Package port defines the primary ports (interfaces) for the application.
// This follows the Ports and Adapters (Hexagonal Architecture) pattern.
package port

import (
	"context"
	"errors"
)

// ErrLinkLost is returned when the wired link stays disconnected.
// It is the only failure that triggers a supervised restart.
var ErrLinkLost = errors.New("link lost")

// Runner is the primary port for a long running node.
type Runner interface {
	// Run services the node until the context is cancelled or a fatal error occurs.
	Run(ctx context.Context) error

	// GetName returns the node name used in logs and banners.
	GetName() string
}
