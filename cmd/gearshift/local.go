package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/controller"
	"github.com/calvinmclean/gearshift/firmware/commands"
	"github.com/calvinmclean/gearshift/shifter"
	"github.com/calvinmclean/gearshift/ui"
)

// localDevice runs the firmware command table in-process, against a shifter driven from this machine
type localDevice struct {
	*shifter.Controller

	in  *bufio.Reader
	out io.Writer
}

func newLocalDevice(cfg shifter.Config, actuator shifter.Actuator, feedback shifter.Feedback, in io.Reader, out io.Writer, logger *slog.Logger) (*localDevice, error) {
	d := &localDevice{
		in:  bufio.NewReader(in),
		out: out,
	}

	var err error
	d.Controller, err = shifter.New(cfg, actuator, feedback, shifter.ReporterFunc(d.Report), shifter.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *localDevice) ReadByte() (byte, error) {
	return d.in.ReadByte()
}

func (d *localDevice) Report(m gearshift.Message) error {
	_, err := d.out.Write(m.Encode())
	return err
}

// translateInput converts typed commands like "up" or "gear 3" into the single-byte firmware commands
func translateInput(in io.Reader, w io.Writer, logger *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, ok := controller.Command(scanner.Text())
		if !ok {
			if scanner.Text() != "" {
				logger.Warn("unknown command", "input", scanner.Text())
			}
			continue
		}
		_, err := io.WriteString(w, cmd+"\n")
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}

// runLocal starts the shifter and serves commands from stdin until it ends or the process is interrupted.
// With showUI, the dashboard is shown and its buttons are another source of commands
func runLocal(ctx context.Context, cfg shifter.Config, actuator shifter.Actuator, feedback shifter.Feedback, showUI bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := newLogger()

	var out io.Writer = newStatusPrinter(os.Stdout)
	var gearUI *ui.GearUI
	if showUI {
		gearUI = ui.NewGearUI()
		out = io.MultiWriter(out, gearUI)
	}

	r, w := io.Pipe()
	go func() {
		err := translateInput(os.Stdin, w, logger)
		// the dashboard keeps writing to the pipe after Stdin ends
		if !showUI {
			w.CloseWithError(err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = r.Close()
	}()

	d, err := newLocalDevice(cfg, actuator, feedback, r, out, logger)
	if err != nil {
		return err
	}

	_, err = d.Start(ctx)
	if err != nil {
		logger.Warn("startup calibration failed", "error", err)
	}

	defer func() {
		err := d.Stop()
		if err != nil {
			logger.Error("error stopping", "error", err)
		}
	}()

	if !showUI {
		return ignoreEOF(commands.Run(ctx, d))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		errs <- ignoreEOF(commands.Run(ctx, d))
		cancel()
	}()

	// UI buttons write single-byte commands, so they skip translateInput
	gearUI.Show(ctx, w, d.Table().Len())
	gearUI.App().Run()
	cancel()
	_ = r.Close()

	return ignoreEOF(<-errs)
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
