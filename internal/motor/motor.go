// Package motor drives the DC motor through a PWM pin and a direction pin.
// The real implementation uses the Pi's hardware PWM and the GPIO character
// device. The fake implementation allows testing without hardware.
package motor

import "github.com/sweeney/remote-motor/internal/logic"

// Actuator applies a duty cycle and direction to the motor.
type Actuator interface {
	// SetMotor drives the motor at duty/255 of full speed in dir.
	// A duty of 0 stops the motor; dir is still written.
	SetMotor(duty uint8, dir logic.Direction) error

	// Close stops the motor and releases hardware resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinPWM = 18 // hardware PWM0
	DefaultPinDir = 26
)

// DefaultPWMFreq is the PWM carrier frequency in Hz.
const DefaultPWMFreq = 1000

// Apply pushes an event's output to the actuator.
func Apply(a Actuator, out logic.Output) error {
	return a.SetMotor(out.Duty, out.Direction)
}
