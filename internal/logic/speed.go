package logic

import "github.com/sweeney/remote-motor/internal/mathx"

// MaxDuty is the full-scale duty cycle of the 8-bit PWM output.
const MaxDuty = 255

// SpeedController owns SpeedState. Every operation leaves
// Enabled == (Level != 0).
type SpeedController struct {
	maxLevel int
	state    SpeedState
}

// NewSpeedController creates a stopped controller with levels in
// [-maxLevel, +maxLevel]. maxLevel is clamped to [1, MaxDuty].
func NewSpeedController(maxLevel int) *SpeedController {
	return &SpeedController{maxLevel: mathx.Clamp(maxLevel, 1, MaxDuty)}
}

// ShortIncrement raises the level by one, saturating at +max.
func (s *SpeedController) ShortIncrement() bool {
	return s.setLevel(s.state.Level + 1)
}

// ShortDecrement lowers the level by one, saturating at -max.
func (s *SpeedController) ShortDecrement() bool {
	return s.setLevel(s.state.Level - 1)
}

// StartLongPress jumps to full speed in dir. It has no effect while a long
// press is already active.
func (s *SpeedController) StartLongPress(dir Direction) bool {
	if s.state.LongPressActive {
		return false
	}
	s.state.LongPressActive = true
	if dir == Forward {
		s.state.Level = s.maxLevel
	} else {
		s.state.Level = -s.maxLevel
	}
	s.state.Enabled = true
	return true
}

// EndLongPress stops the motor if a long press is active.
func (s *SpeedController) EndLongPress() bool {
	if !s.state.LongPressActive {
		return false
	}
	s.state = SpeedState{}
	return true
}

// Stop unconditionally zeroes the state. It reports whether anything changed.
func (s *SpeedController) Stop() bool {
	changed := s.state != SpeedState{}
	s.state = SpeedState{}
	return changed
}

func (s *SpeedController) setLevel(level int) bool {
	level = mathx.Clamp(level, -s.maxLevel, s.maxLevel)
	if level == s.state.Level {
		return false
	}
	s.state.Level = level
	s.state.Enabled = level != 0
	return true
}

// Output derives the actuator command from the current state.
func (s *SpeedController) Output() Output {
	duty := mathx.Abs(s.state.Level) * (MaxDuty / s.maxLevel)
	dir := Backward
	if s.state.Level > 0 {
		dir = Forward
	}
	return Output{Duty: uint8(duty), Direction: dir}
}

// State returns a copy of the current state.
func (s *SpeedController) State() SpeedState {
	return s.state
}

// MaxLevel returns the configured level bound.
func (s *SpeedController) MaxLevel() int {
	return s.maxLevel
}

// Percent is the speed magnitude as a percentage of full speed.
func (s *SpeedController) Percent() int {
	return mathx.Abs(s.state.Level) * 100 / s.maxLevel
}
