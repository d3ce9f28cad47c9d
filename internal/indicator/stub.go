//go:build !linux

package indicator

import "github.com/pkg/errors"

// OpenLine returns an error on non-Linux platforms.
func OpenLine(chipName string, pin int) (Line, error) {
	return nil, errors.New("indicator: not supported on this platform (requires Linux)")
}
