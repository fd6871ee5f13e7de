package main_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/calvinmclean/gearshift"
)

// Set GEARSHIFT_TEST_PORT to the serial port of a shifter running the firmware
const portEnv = "GEARSHIFT_TEST_PORT"

func sendSerial(t *testing.T, in string, expectedLines int, timeout time.Duration) []gearshift.Message {
	t.Helper()

	portName := os.Getenv(portEnv)
	if portName == "" {
		t.Skip(portEnv + " is not set")
	}

	mode := &serial.Mode{
		BaudRate: 115200,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		t.Fatalf("unexpected error opening serial connection: %v", err)
	}
	defer port.Close()

	_, err = port.Write([]byte(in))
	if err != nil {
		t.Fatalf("unexpected error writing serial: %v", err)
	}

	err = port.SetReadTimeout(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error setting timeout: %v", err)
	}

	var (
		messages []gearshift.Message
		partial  string
		buf      = make([]byte, 128)
	)
	deadline := time.Now().Add(timeout)
	for len(messages) < expectedLines && time.Now().Before(deadline) {
		n, err := port.Read(buf)
		if err != nil {
			t.Fatalf("unexpected error reading serial: %v", err)
		}
		partial += string(buf[:n])

		for {
			line, rest, ok := strings.Cut(partial, "\n")
			if !ok {
				break
			}
			partial = rest

			m, err := gearshift.ParseMessage(strings.Trim(line, "\r\x00"))
			if err != nil {
				// uptime log lines share the port
				continue
			}
			messages = append(messages, m)
		}
	}
	return messages
}

func types(messages []gearshift.Message) string {
	var s string
	for _, m := range messages {
		s += string(m.Type)
	}
	return s
}

func TestSerial(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
		gear     int
	}{
		{
			"Ping",
			"A\n",
			"A",
			-1,
		},
		{
			"GoToFirstGear",
			"g0\n",
			"CG",
			0,
		},
		{
			"ShiftUp",
			"U\n",
			"CG",
			1,
		},
		{
			"ShiftDown",
			"D\n",
			"CG",
			0,
		},
		{
			"AcknowledgeAtBottom",
			"D\n",
			"A",
			-1,
		},
		{
			"InvalidGear",
			"g9\n",
			"E",
			-1,
		},
		{
			"Debug",
			"?\n",
			"D",
			-1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := sendSerial(t, tt.in, len(tt.expected), 15*time.Second)
			if got := types(messages); got != tt.expected {
				t.Fatalf("expected=%q, got=%q (%v)", tt.expected, got, messages)
			}

			if tt.gear < 0 {
				return
			}
			g, err := messages[len(messages)-1].Gear()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g != tt.gear {
				t.Errorf("expected gear %d, got %d", tt.gear, g)
			}
		})
	}
}
