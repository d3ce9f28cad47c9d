//go:build !linux

package motor

import (
	"github.com/pkg/errors"

	"github.com/sweeney/remote-motor/internal/logic"
)

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(chipName string, pinPWM, pinDir, freq int) (*RealActuator, error) {
	return nil, errors.New("motor: not supported on this platform (requires Linux)")
}

// SetMotor is not implemented on non-Linux platforms.
func (r *RealActuator) SetMotor(duty uint8, dir logic.Direction) error {
	return errors.New("motor: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealActuator) Close() error {
	return nil
}
