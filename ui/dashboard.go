package ui

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/calvinmclean/gearshift"
)

const maxLogLines = 200

// dashboard is the data behind the window. It is built from the status messages written by the controller
type dashboard struct {
	mu      sync.Mutex
	partial []byte

	state     state
	gear      int
	gearKnown bool
	changing  bool
	lastError string
	logLines  []string
}

// write consumes encoded status messages and returns how many complete lines were applied
func (d *dashboard) write(p []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.partial = append(d.partial, p...)

	n := 0
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		line := string(d.partial[:i])
		d.partial = d.partial[i+1:]

		m, err := gearshift.ParseMessage(line)
		if err != nil {
			continue
		}
		d.apply(m)
		n++
	}

	return n
}

func (d *dashboard) apply(m gearshift.Message) {
	d.state = d.state.next(m.Type)

	switch m.Type {
	case gearshift.MessageGearChanging:
		d.changing = true
	case gearshift.MessageGearChanged:
		g, err := m.Gear()
		if err == nil {
			d.gear, d.gearKnown = g, true
			d.lastError = ""
		}
		d.changing = false
	case gearshift.MessageError:
		// only a failed move loses the gear
		if d.changing {
			d.gearKnown = false
		}
		d.changing = false
		d.lastError = m.Payload
	}

	d.logLines = append(d.logLines, m.String())
	if len(d.logLines) > maxLogLines {
		d.logLines = d.logLines[len(d.logLines)-maxLogLines:]
	}
}

func (d *dashboard) gearText() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.gearKnown {
		return "-"
	}
	// gears are 0-indexed on the wire but riders count from 1
	return fmt.Sprintf("%d", d.gear+1)
}

func (d *dashboard) statusText() (string, state) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == stateError && d.lastError != "" {
		return d.state.String() + ": " + d.lastError, d.state
	}
	return d.state.String(), d.state
}

func (d *dashboard) logText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.logLines, "\n")
}
