package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/shifter"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(context.Context, Controller, []byte) error
	Description string
}

// Controller is used to control the shifter from the serial port
type Controller interface {
	Shift(context.Context, gearshift.Intent) error
	MoveToGear(context.Context, int) (int, error)
	ReadGear(context.Context) (int, error)
	MoveToNearestGear(context.Context) (int, error)
	Debug(context.Context) error

	// I/O
	ReadByte() (byte, error)
	Report(gearshift.Message) error
}

var (
	ShiftUpCommand = &Command{
		Flag:      'U',
		InputSize: 0,
		Run: func(ctx context.Context, c Controller, _ []byte) error {
			return c.Shift(ctx, gearshift.IntentUp)
		},
		Description: "Shift up one gear.",
	}
	ShiftDownCommand = &Command{
		Flag:      'D',
		InputSize: 0,
		Run: func(ctx context.Context, c Controller, _ []byte) error {
			return c.Shift(ctx, gearshift.IntentDown)
		},
		Description: "Shift down one gear.",
	}
	GoToGearCommand = &Command{
		Flag:      'g',
		InputSize: 1,
		Run: func(ctx context.Context, c Controller, input []byte) error {
			g, ok := b2i(input[0])
			if !ok {
				return errors.New("invalid input: " + string(input))
			}
			_, err := c.MoveToGear(ctx, g)
			return err
		},
		Description: "Move directly to a gear. Input: 0-9.",
	}
	ReadGearCommand = &Command{
		Flag:      'R',
		InputSize: 0,
		Run: func(ctx context.Context, c Controller, _ []byte) error {
			g, err := c.ReadGear(ctx)
			if err != nil {
				return err
			}
			return c.Report(gearshift.Debug("gear=" + strconv.Itoa(g)))
		},
		Description: "Read the gear from the feedback sensors without moving.",
	}
	NearestGearCommand = &Command{
		Flag:      'N',
		InputSize: 0,
		Run: func(ctx context.Context, c Controller, _ []byte) error {
			_, err := c.MoveToNearestGear(ctx)
			return err
		},
		Description: "Move to the gear closest to the current position.",
	}
	DebugCommand = &Command{
		Flag:      '?',
		InputSize: 0,
		Run: func(ctx context.Context, c Controller, _ []byte) error {
			return c.Debug(ctx)
		},
		Description: "Report the raw feedback angles.",
	}
	PingCommand = &Command{
		Flag:      'A',
		InputSize: 0,
		Run: func(_ context.Context, c Controller, _ []byte) error {
			return c.Report(gearshift.Acknowledge())
		},
		Description: "Acknowledge. Used by the host to check the connection.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(_ context.Context, c Controller, _ []byte) error {
			for _, cmd := range commands {
				err := c.Report(gearshift.Debug(string(cmd.Flag) + ": " + cmd.Description))
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
)

func b2i(b byte) (int, bool) {
	if b < '0' || b > '9' {
		return 0, false
	}
	return int(b - '0'), true
}

var commands = []*Command{
	ShiftUpCommand,
	ShiftDownCommand,
	GoToGearCommand,
	ReadGearCommand,
	NearestGearCommand,
	DebugCommand,
	PingCommand,
}

// Run reads commands from the Controller until ctx is done, the input ends, or reading fails. ReadByte must block
// until a byte is available. Bytes that are not a command flag, such as newlines, are skipped
func Run(ctx context.Context, c Controller) error {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}

	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmdIn, err := c.ReadByte()
		if err != nil {
			return readError(err)
		}

		cmd, ok := cmdMap[cmdIn]
		if !ok {
			continue
		}

		in := make([]byte, cmd.InputSize)
		for i := 0; i < int(cmd.InputSize); {
			b, err := c.ReadByte()
			if err != nil {
				return readError(err)
			}

			in[i] = b
			i++
		}

		err = cmd.Run(ctx, c, in)
		if err != nil {
			// motion errors have already been reported by the shifter
			var motionErr *shifter.MotionError
			if !errors.As(err, &motionErr) {
				_ = c.Report(gearshift.Error(err.Error()))
			}
		}
	}
}

// readError ends Run. The end of the input is not an error
func readError(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("error reading command: %w", err)
}
