package ui

import (
	"testing"

	"github.com/calvinmclean/gearshift"
)

func TestDashboardWrite(t *testing.T) {
	var d dashboard

	if n := d.write([]byte("S\nC")); n != 1 {
		t.Errorf("expected 1 complete line, got %d", n)
	}
	if text, s := d.statusText(); s != stateReady || text != "Ready" {
		t.Errorf("unexpected status %q", text)
	}
	if g := d.gearText(); g != "-" {
		t.Errorf("expected unknown gear, got %q", g)
	}

	// finishes the partial C line
	if n := d.write([]byte("\nG2\n")); n != 2 {
		t.Errorf("expected 2 complete lines, got %d", n)
	}
	if g := d.gearText(); g != "3" {
		t.Errorf("expected gear 3, got %q", g)
	}

	d.write([]byte("C\nEGear not in correct position\n"))
	text, s := d.statusText()
	if s != stateError {
		t.Errorf("expected error state, got %s", s)
	}
	if text != "Error: Gear not in correct position" {
		t.Errorf("unexpected status %q", text)
	}
	if g := d.gearText(); g != "-" {
		t.Errorf("gear should be unknown after a failed move, got %q", g)
	}

	d.write([]byte("junk\nDangles=[98]\n"))
	if _, s := d.statusText(); s != stateError {
		t.Errorf("debug message should not change the state, got %s", s)
	}

	expectedLog := "Startup\nGearChanging\nGearChanged: 2\nGearChanging\nError: Gear not in correct position\nDebug: angles=[98]"
	if log := d.logText(); log != expectedLog {
		t.Errorf("expected log %q, got %q", expectedLog, log)
	}
}

func TestDashboardErrorWithoutMove(t *testing.T) {
	var d dashboard
	d.write([]byte("C\nG1\nEinvalid gear 7\n"))

	if g := d.gearText(); g != "2" {
		t.Errorf("an error without a move should keep the gear, got %q", g)
	}
	if _, s := d.statusText(); s != stateError {
		t.Errorf("expected error state, got %s", s)
	}

	// the gear is found again by the next successful move
	d.write([]byte("C\nEGear not in correct position\nC\nG3\n"))
	if g := d.gearText(); g != "4" {
		t.Errorf("expected gear 4, got %q", g)
	}
}

func TestDashboardLogLimit(t *testing.T) {
	var d dashboard
	for range maxLogLines + 10 {
		d.write(gearshift.Acknowledge().Encode())
	}
	if len(d.logLines) != maxLogLines {
		t.Errorf("expected %d lines, got %d", maxLogLines, len(d.logLines))
	}
}

func TestStateNext(t *testing.T) {
	tests := []struct {
		from     state
		mt       gearshift.MessageType
		expected state
	}{
		{stateNone, gearshift.MessageStartup, stateReady},
		{stateReady, gearshift.MessageGearChanging, stateShifting},
		{stateShifting, gearshift.MessageGearChanged, stateReady},
		{stateShifting, gearshift.MessageError, stateError},
		{stateError, gearshift.MessageAcknowledge, stateError},
		{stateReady, gearshift.MessageDebug, stateReady},
		{stateReady, gearshift.MessageShutdown, stateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.mt.String(), func(t *testing.T) {
			if got := tt.from.next(tt.mt); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(83_000_000_000); got != "01:23" {
		t.Errorf("expected 01:23, got %q", got)
	}
}
