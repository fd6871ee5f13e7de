//go:build tinygo

package main

import (
	"context"
	"machine"
	"strconv"
	"time"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/firmware/commands"
	"github.com/calvinmclean/gearshift/firmware/device"
	"github.com/calvinmclean/gearshift/shifter"
)

const pollInterval = 10 * time.Millisecond

func main() {
	servoCfg := device.ServoConfig{
		PWM: machine.PWM2,
		Pin: machine.GP4,
	}
	feedbackCfg := device.FeedbackConfig{
		Pins:    []machine.Pin{machine.ADC0, machine.ADC1},
		RawMin:  3200,
		RawMax:  62500,
		Samples: 8,
	}
	buttonCfg := device.ButtonConfig{
		Up:       machine.GP2,
		Down:     machine.GP3,
		Debounce: 30 * time.Millisecond,
	}

	d, err := device.New(servoCfg, feedbackCfg, shifter.DefaultConfig())
	if err != nil {
		panic(err)
	}
	buttons := device.NewButtons(buttonCfg)

	ctx := context.Background()

	g, err := d.Start(ctx)
	if err != nil {
		d.Log("startup calibration failed:", err.Error())
	} else {
		d.Log("started in gear", strconv.Itoa(g))
	}

	// serial commands run alongside the buttons; whichever arrives second while a move is running is rejected
	go func() {
		_ = commands.Run(ctx, d)
	}()

	intents := make(chan gearshift.Intent)
	go func() {
		_ = d.Run(ctx, intents)
	}()

	for {
		intent := buttons.Poll()
		if intent != gearshift.IntentNone {
			select {
			case intents <- intent:
			default:
				d.Log("busy, ignoring", intent.String())
			}
		}
		time.Sleep(pollInterval)
	}
}
