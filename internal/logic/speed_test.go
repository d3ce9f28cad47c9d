package logic

import (
	"math/rand"
	"testing"

	"github.com/sweeney/remote-motor/internal/mathx"
)

func TestNewSpeedController(t *testing.T) {
	s := NewSpeedController(5)
	if s.State() != (SpeedState{}) {
		t.Errorf("expected zero state, got %+v", s.State())
	}
	if s.MaxLevel() != 5 {
		t.Errorf("MaxLevel: got %d, want 5", s.MaxLevel())
	}
	if out := s.Output(); out.Duty != 0 {
		t.Errorf("expected duty 0, got %d", out.Duty)
	}
}

func TestNewSpeedControllerClampsMax(t *testing.T) {
	if got := NewSpeedController(0).MaxLevel(); got != 1 {
		t.Errorf("max 0: got %d, want 1", got)
	}
	if got := NewSpeedController(1000).MaxLevel(); got != MaxDuty {
		t.Errorf("max 1000: got %d, want %d", got, MaxDuty)
	}
}

// Scenario A
func TestShortIncrementToCeiling(t *testing.T) {
	s := NewSpeedController(5)
	for i := 0; i < 5; i++ {
		if !s.ShortIncrement() {
			t.Errorf("increment %d should change state", i+1)
		}
	}

	st := s.State()
	if st.Level != 5 {
		t.Errorf("level: got %d, want 5", st.Level)
	}
	out := s.Output()
	if out.Duty != 255 {
		t.Errorf("duty: got %d, want 255", out.Duty)
	}
	if out.Direction != Forward {
		t.Errorf("direction: got %s, want FORWARD", out.Direction)
	}

	if s.ShortIncrement() {
		t.Error("sixth increment should be a no-op")
	}
	if s.State().Level != 5 {
		t.Errorf("level after no-op: got %d, want 5", s.State().Level)
	}
}

func TestShortDecrementToFloor(t *testing.T) {
	s := NewSpeedController(5)
	for i := 0; i < 7; i++ {
		s.ShortDecrement()
	}
	if s.State().Level != -5 {
		t.Errorf("level: got %d, want -5", s.State().Level)
	}
	out := s.Output()
	if out.Duty != 255 || out.Direction != Backward {
		t.Errorf("output: got %+v, want {255 BACKWARD}", out)
	}
}

func TestShortDecrementThroughZero(t *testing.T) {
	s := NewSpeedController(5)
	s.ShortIncrement()
	s.ShortDecrement()
	st := s.State()
	if st.Level != 0 || st.Enabled {
		t.Errorf("expected stopped, got %+v", st)
	}
	s.ShortDecrement()
	st = s.State()
	if st.Level != -1 || !st.Enabled {
		t.Errorf("expected level -1 enabled, got %+v", st)
	}
	if out := s.Output(); out.Duty != 51 || out.Direction != Backward {
		t.Errorf("output: got %+v, want {51 BACKWARD}", out)
	}
}

// Scenario B
func TestLongPressBackwardThenEnd(t *testing.T) {
	s := NewSpeedController(5)

	if !s.StartLongPress(Backward) {
		t.Fatal("start should change state")
	}
	st := s.State()
	if st.Level != -5 || !st.LongPressActive || !st.Enabled {
		t.Errorf("after start: got %+v", st)
	}
	if out := s.Output(); out.Duty != 255 || out.Direction != Backward {
		t.Errorf("output: got %+v", out)
	}

	if !s.EndLongPress() {
		t.Fatal("end should change state")
	}
	st = s.State()
	if st.Level != 0 || st.LongPressActive || st.Enabled {
		t.Errorf("after end: got %+v", st)
	}
	if out := s.Output(); out.Duty != 0 {
		t.Errorf("duty: got %d, want 0", out.Duty)
	}
}

func TestStartLongPressIdempotent(t *testing.T) {
	s := NewSpeedController(5)
	s.StartLongPress(Forward)
	if s.StartLongPress(Backward) {
		t.Error("start while active should be a no-op")
	}
	if s.State().Level != 5 {
		t.Errorf("level: got %d, want 5", s.State().Level)
	}
}

func TestEndLongPressWhenInactive(t *testing.T) {
	s := NewSpeedController(5)
	s.ShortIncrement()
	if s.EndLongPress() {
		t.Error("end without an active long press should be a no-op")
	}
	if s.State().Level != 1 {
		t.Errorf("level should be untouched, got %d", s.State().Level)
	}
}

func TestStopUnconditional(t *testing.T) {
	s := NewSpeedController(5)
	s.StartLongPress(Forward)
	if !s.Stop() {
		t.Error("stop from running should report a change")
	}
	if s.State() != (SpeedState{}) {
		t.Errorf("expected zero state, got %+v", s.State())
	}
	if s.Stop() {
		t.Error("stop when already stopped should report no change")
	}
}

func TestPercent(t *testing.T) {
	s := NewSpeedController(5)
	s.ShortDecrement()
	s.ShortDecrement()
	s.ShortDecrement()
	if got := s.Percent(); got != 60 {
		t.Errorf("percent: got %d, want 60", got)
	}
}

func TestOutputDutyScaling(t *testing.T) {
	tests := []struct {
		max   int
		level int
		want  uint8
	}{
		{5, 1, 51},
		{5, 3, 153},
		{10, 10, 250},
		{3, -3, 255},
		{7, 7, 252},
	}
	for _, tt := range tests {
		s := NewSpeedController(tt.max)
		for i := 0; i < mathx.Abs(tt.level); i++ {
			if tt.level > 0 {
				s.ShortIncrement()
			} else {
				s.ShortDecrement()
			}
		}
		if got := s.Output().Duty; got != tt.want {
			t.Errorf("max=%d level=%d: duty %d, want %d", tt.max, tt.level, got, tt.want)
		}
	}
}

func TestRandomSequencesHoldInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewSpeedController(5)

	for i := 0; i < 10000; i++ {
		switch rng.Intn(5) {
		case 0:
			s.ShortIncrement()
		case 1:
			s.ShortDecrement()
		case 2:
			if rng.Intn(2) == 0 {
				s.StartLongPress(Forward)
			} else {
				s.StartLongPress(Backward)
			}
		case 3:
			s.EndLongPress()
		case 4:
			s.Stop()
		}

		st := s.State()
		if st.Enabled != (st.Level != 0) {
			t.Fatalf("step %d: enabled invariant broken: %+v", i, st)
		}
		if st.Level > 5 || st.Level < -5 {
			t.Fatalf("step %d: level out of range: %d", i, st.Level)
		}
	}
}
