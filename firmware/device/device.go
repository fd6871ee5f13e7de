//go:build tinygo

package device

import (
	"context"
	"errors"
	"machine"
	"time"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/shifter"
)

// Device is the gear shifter hardware: the servo, its feedback and the serial port. It embeds the
// shifter.Controller so it can be driven directly by serial commands
type Device struct {
	*shifter.Controller

	servo    *Servo
	feedback []machine.ADC
	feedCfg  FeedbackConfig

	startTime time.Time
}

// New intializes the servo and ADCs and creates the shifter.Controller
func New(servoCfg ServoConfig, feedbackCfg FeedbackConfig, shifterCfg shifter.Config) (*Device, error) {
	if len(feedbackCfg.Pins) == 0 || len(feedbackCfg.Pins) > 2 {
		return nil, errors.New("feedback needs one or two pins")
	}
	if feedbackCfg.RawMax <= feedbackCfg.RawMin {
		return nil, errors.New("feedback RawMax must be greater than RawMin")
	}
	if feedbackCfg.Samples < 1 {
		feedbackCfg.Samples = 1
	}

	myServo, err := NewServo(servoCfg)
	if err != nil {
		return nil, err
	}

	machine.InitADC()
	adcs := make([]machine.ADC, len(feedbackCfg.Pins))
	for i, p := range feedbackCfg.Pins {
		adcs[i] = machine.ADC{Pin: p}
		adcs[i].Configure(machine.ADCConfig{})
	}

	d := &Device{
		servo:     myServo,
		feedback:  adcs,
		feedCfg:   feedbackCfg,
		startTime: time.Now(),
	}

	d.Controller, err = shifter.New(shifterCfg, myServo, d, d)
	if err != nil {
		return nil, errors.New("error creating shifter: " + err.Error())
	}

	return d, nil
}

// Sample implements shifter.Feedback.
func (d *Device) Sample(context.Context) ([]int, error) {
	angles := make([]int, len(d.feedback))
	for i, adc := range d.feedback {
		var total uint32
		for range d.feedCfg.Samples {
			total += uint32(adc.Get())
		}
		angles[i] = d.toDegrees(uint16(total / uint32(d.feedCfg.Samples)))
	}
	return angles, nil
}

// toDegrees converts a raw ADC reading to degrees using the calibrated range
func (d *Device) toDegrees(raw uint16) int {
	lo, hi := int32(d.feedCfg.RawMin), int32(d.feedCfg.RawMax)
	deg := (int32(raw) - lo) * 180 / (hi - lo)
	if deg < 0 {
		return 0
	}
	if deg > 180 {
		return 180
	}
	return int(deg)
}

// Report implements shifter.Reporter by writing the framed message to the serial port
func (d *Device) Report(m gearshift.Message) error {
	_, err := machine.Serial.Write(m.Encode())
	return err
}

// Log prints a line prefixed with the uptime, for the USB console
func (d *Device) Log(args ...string) {
	print("[", time.Since(d.startTime).String(), "]")
	for _, a := range args {
		print(" ", a)
	}
	println()
}

// ReadByte waits for the next byte from the serial port. Sleeping while the buffer is empty lets the button
// loop run
func (d *Device) ReadByte() (byte, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	return machine.Serial.ReadByte()
}
