package ui

import (
	"fmt"
	"io"
	"time"
)

type controllerWrapper struct {
	writer         io.Writer
	lastShiftTimer *timer
}

func (c *controllerWrapper) ShiftUp() {
	c.lastShiftTimer.Set(time.Now())
	fmt.Fprint(c.writer, "U\n")
}

func (c *controllerWrapper) ShiftDown() {
	c.lastShiftTimer.Set(time.Now())
	fmt.Fprint(c.writer, "D\n")
}

func (c *controllerWrapper) GoToGear(g int) {
	c.lastShiftTimer.Set(time.Now())
	fmt.Fprintf(c.writer, "g%d\n", g)
}

func (c *controllerWrapper) Calibrate() {
	fmt.Fprint(c.writer, "N\n")
}

func (c *controllerWrapper) Debug() {
	fmt.Fprint(c.writer, "?\n")
}
