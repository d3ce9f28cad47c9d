//go:build !linux

package remote

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultDeviceMatch selects the BT13 when no device path is configured.
const DefaultDeviceMatch = "BT13"

// EvdevSource is not available on non-Linux platforms.
type EvdevSource struct {
	path  string
	match string
}

// NewEvdevSource returns a source whose Open always fails.
func NewEvdevSource(path, match string, logger *zap.SugaredLogger) *EvdevSource {
	return &EvdevSource{path: path, match: match}
}

// Name returns the configured selector.
func (s *EvdevSource) Name() string {
	if s.path != "" {
		return s.path
	}
	return s.match
}

// Open is not implemented on non-Linux platforms.
func (s *EvdevSource) Open(ctx context.Context) error {
	return errors.New("evdev: not supported on this platform (requires Linux)")
}

// Run is not implemented on non-Linux platforms.
func (s *EvdevSource) Run(ctx context.Context, q *Queue) error {
	return errors.New("evdev: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *EvdevSource) Close() error {
	return nil
}
