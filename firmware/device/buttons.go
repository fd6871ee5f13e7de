//go:build tinygo

package device

import (
	"machine"
	"time"

	"github.com/calvinmclean/gearshift"
)

const defaultDebounce = 30 * time.Millisecond

// Buttons reads the up and down shift buttons. Holding both is the debug intent
type Buttons struct {
	up       machine.Pin
	down     machine.Pin
	debounce time.Duration
	pressed  bool
}

func NewButtons(cfg ButtonConfig) *Buttons {
	if cfg.Debounce == 0 {
		cfg.Debounce = defaultDebounce
	}
	cfg.Up.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	cfg.Down.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	return &Buttons{
		up:       cfg.Up,
		down:     cfg.Down,
		debounce: cfg.Debounce,
	}
}

// Poll returns the intent for a new press, and IntentNone if nothing changed. A press is only reported
// once; the buttons must be released before the next one
func (b *Buttons) Poll() gearshift.Intent {
	intent := b.read()
	if intent == gearshift.IntentNone {
		b.pressed = false
		return gearshift.IntentNone
	}
	if b.pressed {
		return gearshift.IntentNone
	}

	// wait and read again so a bounce or a slightly late second button is not mistaken for a press
	time.Sleep(b.debounce)
	intent = b.read()
	if intent == gearshift.IntentNone {
		return gearshift.IntentNone
	}

	b.pressed = true
	return intent
}

func (b *Buttons) read() gearshift.Intent {
	// pulled up, so pressed is low
	up, down := !b.up.Get(), !b.down.Get()
	switch {
	case up && down:
		return gearshift.IntentDebug
	case up:
		return gearshift.IntentUp
	case down:
		return gearshift.IntentDown
	default:
		return gearshift.IntentNone
	}
}
