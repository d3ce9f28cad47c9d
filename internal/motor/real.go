//go:build linux

package motor

import (
	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/remote-motor/internal/logic"
)

// RealActuator drives the motor on actual Raspberry Pi hardware. PWM goes
// through the BCM PWM peripheral via go-rpio, direction through a GPIO
// character device line.
type RealActuator struct {
	pwm  rpio.Pin
	chip *gpiocdev.Chip
	dir  *gpiocdev.Line
}

// NewRealActuator opens the PWM and direction pins. freq is the PWM carrier
// frequency in Hz.
func NewRealActuator(chipName string, pinPWM, pinDir, freq int) (*RealActuator, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "open gpio memory")
	}

	pwm := rpio.Pin(pinPWM)
	pwm.Mode(rpio.Pwm)
	// The PWM clock ticks once per duty step.
	pwm.Freq(freq * logic.MaxDuty)
	pwm.DutyCycle(0, logic.MaxDuty)

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		rpio.Close()
		return nil, errors.Wrapf(err, "open gpio chip %s", chipName)
	}

	dir, err := chip.RequestLine(pinDir, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		rpio.Close()
		return nil, errors.Wrapf(err, "request direction pin %d", pinDir)
	}

	return &RealActuator{pwm: pwm, chip: chip, dir: dir}, nil
}

// SetMotor writes the direction pin, then the duty cycle.
func (r *RealActuator) SetMotor(duty uint8, dir logic.Direction) error {
	v := 0
	if dir == logic.Forward {
		v = 1
	}
	if err := r.dir.SetValue(v); err != nil {
		return errors.Wrap(err, "set direction pin")
	}
	r.pwm.DutyCycle(uint32(duty), logic.MaxDuty)
	return nil
}

// Close stops the motor, returns the pins to input with pull-down (matching Pi
// boot defaults) and releases resources.
func (r *RealActuator) Close() error {
	var errs []error

	r.pwm.DutyCycle(0, logic.MaxDuty)
	r.pwm.Input()
	r.pwm.PullDown()

	if r.dir != nil {
		if err := r.dir.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, errors.Wrap(err, "reconfigure direction pin"))
		}
		if err := r.dir.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close direction pin"))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close chip"))
		}
	}
	if err := rpio.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close gpio memory"))
	}

	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
