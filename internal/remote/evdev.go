//go:build linux

package remote

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/gvalkov/golang-evdev"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultDeviceMatch selects the BT13 when no device path is configured.
const DefaultDeviceMatch = "BT13"

// Autorepeat timing applied on open. The first repeat must land inside the
// long-press release timeout or a held button releases before it repeats;
// the kernel default delay of 250ms does not.
const (
	keyRepeatDelay  = 150 * time.Millisecond
	keyRepeatPeriod = 33 * time.Millisecond
)

// EvdevSource reads the remote through the kernel's HID input layer once it
// is paired and bound by BlueZ. The device node appears on connect and
// vanishes on disconnect, so Open doubles as the connection check.
type EvdevSource struct {
	path   string // explicit /dev/input/eventN, or empty to search
	match  string // device name substring used when path is empty
	logger *zap.SugaredLogger

	dev *evdev.InputDevice
}

// NewEvdevSource creates a source for path, or for the first input device
// whose name contains match when path is empty.
func NewEvdevSource(path, match string, logger *zap.SugaredLogger) *EvdevSource {
	return &EvdevSource{path: path, match: match, logger: logger}
}

// Name returns the device name once open, else the configured selector.
func (s *EvdevSource) Name() string {
	if s.dev != nil {
		return s.dev.Name
	}
	if s.path != "" {
		return s.path
	}
	return s.match
}

// Open finds, opens and grabs the device.
func (s *EvdevSource) Open(ctx context.Context) error {
	dev, err := s.find()
	if err != nil {
		return err
	}
	if err := dev.Grab(); err != nil {
		dev.File.Close()
		return errors.Wrapf(err, "grab %s", dev.Fn)
	}
	if err := setRepeat(dev, keyRepeatDelay, keyRepeatPeriod); err != nil {
		s.logger.Warnw("could not set key repeat, long presses may drop", "device", dev.Fn, "error", err)
	}
	s.dev = dev
	return nil
}

// setRepeat writes EV_REP events to the device, which the kernel applies to
// its autorepeat timer. Written the way the library decodes events so the
// layout matches the platform's input_event.
func setRepeat(dev *evdev.InputDevice, delay, period time.Duration) error {
	events := []evdev.InputEvent{
		{Type: uint16(evdev.EV_REP), Code: uint16(evdev.REP_DELAY), Value: int32(delay.Milliseconds())},
		{Type: uint16(evdev.EV_REP), Code: uint16(evdev.REP_PERIOD), Value: int32(period.Milliseconds())},
	}
	if err := binary.Write(dev.File, binary.LittleEndian, events); err != nil {
		return errors.Wrap(err, "write EV_REP")
	}
	return nil
}

func (s *EvdevSource) find() (*evdev.InputDevice, error) {
	if s.path != "" {
		dev, err := evdev.Open(s.path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", s.path)
		}
		return dev, nil
	}

	devs, err := evdev.ListInputDevices()
	if err != nil {
		return nil, errors.Wrap(err, "list input devices")
	}
	var found *evdev.InputDevice
	for _, d := range devs {
		if found == nil && strings.Contains(d.Name, s.match) {
			found = d
			continue
		}
		d.File.Close()
	}
	if found == nil {
		return nil, errors.Errorf("no input device matching %q", s.match)
	}
	return found, nil
}

// Run converts key presses and autorepeats into 2-byte usage reports and
// key-ups into the idle report until the device goes away or ctx is done.
func (s *EvdevSource) Run(ctx context.Context, q *Queue) error {
	if s.dev == nil {
		return errors.New("evdev source not open")
	}

	// Closing the file unblocks Read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.dev.File.Close()
		case <-done:
		}
	}()

	var keys keyMapper
	for {
		events, err := s.dev.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "read %s", s.dev.Fn)
		}
		for _, ev := range events {
			report, ok := keys.mapEvent(ev.Type, ev.Code, ev.Value)
			if !ok {
				continue
			}
			if !q.PushReport(s.dev.Name, report) {
				s.logger.Warnw("event queue full, dropping report", "source", s.dev.Name, "dropped", q.Dropped())
			}
		}
	}
}

// Close releases the grab and closes the device.
func (s *EvdevSource) Close() error {
	if s.dev == nil {
		return nil
	}
	s.dev.Release()
	err := s.dev.File.Close()
	s.dev = nil
	if err != nil && !strings.Contains(err.Error(), "already closed") {
		return errors.Wrap(err, "close input device")
	}
	return nil
}
