package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/ridelog"
)

// ErrPortClosed is returned by Run when the shifter stops sending status messages
var ErrPortClosed = errors.New("serial port closed")

// Controller is the host side of the serial link. It forwards commands to the shifter firmware and
// decodes the status messages that come back
type Controller struct {
	port    io.ReadWriteCloser
	rideLog rideLogClient
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	gear      int
	gearKnown bool
	// changing is set between a GearChanging message and the result of that move
	changing bool
}

type Option func(*Controller)

// WithPort uses an already open connection instead of opening Config.SerialPort
func WithPort(port io.ReadWriteCloser) Option {
	return func(c *Controller) {
		c.port = port
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a Controller. The serial port is opened unless it is empty or SerialPortNone, in which case
// commands are only logged
func New(cfg Config, opts ...Option) (*Controller, error) {
	c := &Controller{
		rideLog: noopRideLogClient{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.RideLogAddr != "" {
		c.rideLog = ridelog.NewClient(cfg.RideLogAddr)
	}

	if c.port == nil && cfg.SerialPort != "" && cfg.SerialPort != SerialPortNone {
		port, err := openSerial(cfg)
		if err != nil {
			return nil, err
		}
		c.port = port
	}

	return c, nil
}

// NewFromEnv creates a Controller using ConfigFromEnv
func NewFromEnv(opts ...Option) (*Controller, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

func (c *Controller) Close() error {
	if c.port == nil {
		return nil
	}
	return c.port.Close()
}

// Gear returns the last gear reported by the shifter
func (c *Controller) Gear() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gear, c.gearKnown
}

// Run forwards commands read from in to the shifter and writes each status message it sends to out,
// one encoded message per line. It returns when in is exhausted, ctx is done, or the serial link fails
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	if c.port != nil {
		go func() {
			errs <- c.readStatus(ctx, c.port, out)
		}()
	}
	go func() {
		errs <- c.readInput(ctx, in)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

func (c *Controller) readInput(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, ok := Command(line)
		if !ok {
			c.logger.Warn("unknown command", "input", line)
			continue
		}

		err := c.send(cmd)
		if err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (c *Controller) send(cmd string) error {
	c.logger.Debug("sending command", "command", cmd)
	if c.port == nil {
		return nil
	}

	_, err := io.WriteString(c.port, cmd+"\n")
	if err != nil {
		return fmt.Errorf("error writing command: %w", err)
	}
	return nil
}

func (c *Controller) readStatus(ctx context.Context, port io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\x00")
		if line == "" {
			continue
		}

		m, err := gearshift.ParseMessage(line)
		if err != nil {
			c.logger.Warn("invalid status message", "line", line)
			continue
		}

		err = c.handle(ctx, m, out)
		if err != nil {
			return err
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("error reading status: %w", err)
	}
	return ErrPortClosed
}

func (c *Controller) handle(ctx context.Context, m gearshift.Message, out io.Writer) error {
	switch m.Type {
	case gearshift.MessageGearChanging:
		c.mu.Lock()
		c.changing = true
		c.mu.Unlock()
		c.logger.Info("gear changing")
	case gearshift.MessageError:
		// a failed move leaves the gear unknown. Errors without a move, like an invalid gear, keep it
		c.mu.Lock()
		if c.changing {
			c.gearKnown = false
		}
		c.changing = false
		c.mu.Unlock()
		c.logger.Error("shifter error", "message", m.Payload)
	case gearshift.MessageDebug:
		c.logger.Debug("shifter debug", "message", m.Payload)
	case gearshift.MessageGearChanged:
		g, err := m.Gear()
		if err != nil {
			c.logger.Warn("invalid gear", "payload", m.Payload)
			break
		}
		c.mu.Lock()
		c.gear, c.gearKnown = g, true
		c.changing = false
		c.mu.Unlock()
		c.logger.Info("gear changed", "gear", g)
	default:
		c.logger.Info("shifter status", "type", m.Type.String())
	}

	if recorded(m.Type) {
		_, err := c.rideLog.Record(ctx, m, c.now())
		if err != nil {
			c.logger.Warn("error recording to ride log", "error", err)
		}
	}

	_, err := out.Write(m.Encode())
	if err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	return nil
}

// recorded reports whether messages of this type are kept in the ride log
func recorded(t gearshift.MessageType) bool {
	switch t {
	case gearshift.MessageStartup, gearshift.MessageShutdown, gearshift.MessageError, gearshift.MessageGearChanged:
		return true
	default:
		return false
	}
}

var commandAliases = map[string]string{
	"up":      "U",
	"u":       "U",
	"down":    "D",
	"d":       "D",
	"debug":   "?",
	"?":       "?",
	"read":    "R",
	"r":       "R",
	"nearest": "N",
	"n":       "N",
	"ping":    "A",
	"a":       "A",
	"help":    "H",
	"h":       "H",
}

// Command translates a line of user input into a firmware command. It accepts the raw single-letter commands,
// their names, and "g3" or "gear 3" to move to a gear
func Command(input string) (string, bool) {
	input = strings.TrimSpace(input)

	cmd, ok := commandAliases[strings.ToLower(input)]
	if ok {
		return cmd, true
	}

	g, ok := strings.CutPrefix(strings.ToLower(input), "gear")
	if !ok {
		g, ok = strings.CutPrefix(input, "g")
	}
	g = strings.TrimSpace(g)
	if ok && len(g) == 1 && g[0] >= '0' && g[0] <= '9' {
		return "g" + g, true
	}

	return "", false
}

// IntentCommand returns the firmware command for a button intent
func IntentCommand(i gearshift.Intent) (string, bool) {
	switch i {
	case gearshift.IntentUp:
		return "U", true
	case gearshift.IntentDown:
		return "D", true
	case gearshift.IntentDebug:
		return "?", true
	default:
		return "", false
	}
}
