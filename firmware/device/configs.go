//go:build tinygo

package device

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/servo"
)

// ServoConfig has device-level values for setting up the Servo
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM
}

// FeedbackConfig has the analog pins that read the servo potentiometers. Use one pin, or two for a
// mechanism with redundant servos
type FeedbackConfig struct {
	Pins []machine.Pin
	// RawMin and RawMax are the ADC readings at 0 and 180 degrees
	RawMin uint16
	RawMax uint16
	// Samples is how many readings are averaged for each angle
	Samples int
}

// ButtonConfig has the shift buttons. Buttons are wired to ground and use the internal pull-up
type ButtonConfig struct {
	Up       machine.Pin
	Down     machine.Pin
	Debounce time.Duration
}
