package sim

import (
	"context"
	"testing"
)

func TestServoFollowsCommands(t *testing.T) {
	s := New(10)

	err := s.SetAngle(context.Background(), 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	samples, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || samples[0] != 90 {
		t.Errorf("expected [90], got %v", samples)
	}
}

func TestServoDualOffset(t *testing.T) {
	s := New(90, Dual(-5))

	samples, _ := s.Sample(context.Background())
	if len(samples) != 2 || samples[0] != 90 || samples[1] != 85 {
		t.Errorf("expected [90 85], got %v", samples)
	}
}

func TestServoStick(t *testing.T) {
	s := New(0)
	s.Stick(140)

	_ = s.SetAngle(context.Background(), 126)
	if s.Angle() != 140 {
		t.Errorf("stuck servo moved to %d", s.Angle())
	}
	if got := s.Commands(); len(got) != 1 || got[0] != 126 {
		t.Errorf("expected commands [126], got %v", got)
	}

	s.Release()
	_ = s.SetAngle(context.Background(), 126)
	if s.Angle() != 126 {
		t.Errorf("released servo did not move: %d", s.Angle())
	}
}

func TestServoNoiseIsBounded(t *testing.T) {
	s := New(90, Noise(3, 42))

	for range 100 {
		samples, _ := s.Sample(context.Background())
		if samples[0] < 87 || samples[0] > 93 {
			t.Fatalf("sample %d outside noise range", samples[0])
		}
	}
}

func TestServoStop(t *testing.T) {
	s := New(0)

	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Stopped() {
		t.Error("expected servo to be stopped")
	}
	if err := s.Stop(); err != ErrStopped {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
