//go:build linux

package indicator

import (
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// ledLine owns the chip so closing the LED releases both.
type ledLine struct {
	*gpiocdev.Line
	chip *gpiocdev.Chip
}

// OpenLine requests pin on chipName as an output, initially low.
func OpenLine(chipName string, pin int) (Line, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, errors.Wrapf(err, "open gpio chip %s", chipName)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, errors.Wrapf(err, "request led pin %d", pin)
	}
	return &ledLine{Line: line, chip: chip}, nil
}

func (l *ledLine) Close() error {
	l.Line.SetValue(0)
	lerr := l.Line.Close()
	cerr := l.chip.Close()
	if lerr != nil {
		return errors.Wrap(lerr, "close led pin")
	}
	return errors.Wrap(cerr, "close chip")
}
