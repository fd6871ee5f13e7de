//go:build tinygo

package device

import (
	"context"
	"errors"
	"machine"

	"tinygo.org/x/drivers/servo"
)

// Servo is the PWM servo that moves the derailleur
type Servo struct {
	servo   servo.Servo
	pin     machine.Pin
	pwm     servo.PWM
	stopped bool
}

func NewServo(cfg ServoConfig) (*Servo, error) {
	s, err := servo.New(cfg.PWM, cfg.Pin)
	if err != nil {
		return nil, errors.New("error creating servo: " + err.Error())
	}
	return &Servo{servo: s, pin: cfg.Pin, pwm: cfg.PWM}, nil
}

// SetAngle implements shifter.Actuator. The PWM is set up again if the servo was stopped
func (s *Servo) SetAngle(_ context.Context, angle int) error {
	if s.stopped {
		var err error
		s.servo, err = servo.New(s.pwm, s.pin)
		if err != nil {
			return err
		}
		s.stopped = false
	}
	return s.servo.SetAngle(angle)
}

// Stop implements shifter.Stopper. Driving the pin low stops the pulses so the servo goes limp
func (s *Servo) Stop() error {
	s.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.pin.Low()
	s.stopped = true
	return nil
}
