// Package sim simulates the gear selector servo and its feedback sensors so the shifter can run without hardware.
package sim

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/calvinmclean/gearshift/gear"
)

var ErrStopped = errors.New("servo is stopped")

// Servo is a simulated servo with one or two feedback channels. It follows every command immediately
// unless it is stuck
type Servo struct {
	mu sync.Mutex

	angle    int
	commands []int
	stopped  bool

	dual   bool
	offset int
	noise  int
	stuck  bool
	rng    *rand.Rand
}

// Option configures a simulated Servo
type Option func(*Servo)

// Dual adds a second feedback channel that reads offset degrees away from the first.
// An offset beyond the alignment threshold simulates a misaligned mechanism
func Dual(offset int) Option {
	return func(s *Servo) {
		s.dual = true
		s.offset = offset
	}
}

// Noise adds up to +/- n degrees of noise to each reading. The seed makes readings repeatable
func Noise(n int, seed uint64) Option {
	return func(s *Servo) {
		s.noise = n
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// New creates a Servo resting at angle
func New(angle int, opts ...Option) *Servo {
	s := &Servo{angle: gear.Clamp(angle)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAngle implements shifter.Actuator.
func (s *Servo) SetAngle(_ context.Context, angle int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, angle)
	s.stopped = false
	if !s.stuck {
		s.angle = gear.Clamp(angle)
	}
	return nil
}

// Sample implements shifter.Feedback.
func (s *Servo) Sample(context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := gear.Clamp(s.angle + s.jitter())
	if !s.dual {
		return []int{first}, nil
	}
	return []int{first, gear.Clamp(s.angle + s.offset + s.jitter())}, nil
}

// Stop implements shifter.Stopper.
func (s *Servo) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.stopped = true
	return nil
}

// Stick moves the mechanism to angle and keeps it there whatever is commanded, like a jammed selector
func (s *Servo) Stick(angle int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angle = gear.Clamp(angle)
	s.stuck = true
}

// Release lets a stuck servo follow commands again
func (s *Servo) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stuck = false
}

// SetOffset changes the second channel's offset
func (s *Servo) SetOffset(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
}

// Angle returns the true mechanical angle
func (s *Servo) Angle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Commands returns every angle that was commanded, in order
func (s *Servo) Commands() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.commands...)
}

// Stopped reports whether Stop was called since the last command
func (s *Servo) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Servo) jitter() int {
	if s.noise == 0 || s.rng == nil {
		return 0
	}
	return s.rng.IntN(2*s.noise+1) - s.noise
}
