package ui

import (
	"image/color"

	"github.com/calvinmclean/gearshift"
)

type state int

const (
	stateNone state = iota
	stateReady
	stateShifting
	stateError
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateReady:
		return "Ready"
	case stateShifting:
		return "Shifting"
	case stateError:
		return "Error"
	case stateStopped:
		return "Stopped"
	default:
		return "Waiting"
	}
}

func (s state) color() color.Color {
	switch s {
	case stateReady:
		return color.RGBA{R: 0, G: 128, B: 0, A: 255}
	case stateShifting:
		return color.RGBA{R: 200, G: 140, B: 0, A: 255}
	case stateError:
		return color.RGBA{R: 139, G: 0, B: 0, A: 255}
	default:
		return color.Gray{Y: 128}
	}
}

// next returns the state after receiving a status message. Debug and acknowledge messages do not change it
func (s state) next(mt gearshift.MessageType) state {
	switch mt {
	case gearshift.MessageStartup, gearshift.MessageGearChanged:
		return stateReady
	case gearshift.MessageGearChanging:
		return stateShifting
	case gearshift.MessageError:
		return stateError
	case gearshift.MessageShutdown:
		return stateStopped
	default:
		return s
	}
}
