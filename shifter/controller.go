// Package shifter drives the gear selector servo between gears and validates every move against the feedback sensors.
package shifter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/gear"
)

// State is the motion state of the Controller
type State int

const (
	StateIdle State = iota
	StateMoving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateMoving:
		return "Moving"
	default:
		return "Unknown"
	}
}

// MotionState is a snapshot of the Controller. CurrentGear is only meaningful when GearKnown is true
type MotionState struct {
	State              State
	CurrentGear        int
	GearKnown          bool
	TargetGear         int
	LastCommandedAngle int
	AngleKnown         bool
}

// Controller owns the actuator, the feedback sensors and the gear state. All moves are blocking and only one
// operation that touches the hardware can run at a time; others are rejected with ErrBusy
type Controller struct {
	cfg   Config
	table gear.Table

	actuator Actuator
	feedback Feedback
	reporter Reporter
	sleeper  Sleeper
	logger   *slog.Logger

	mu    sync.Mutex
	state MotionState
}

// Option configures optional Controller dependencies
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithSleeper replaces time.Sleep for the step and settle delays
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) {
		c.sleeper = s
	}
}

// New creates a Controller. The gear is unknown until the first read or move.
// A nil reporter drops all status messages
func New(cfg Config, actuator Actuator, feedback Feedback, reporter Reporter, opts ...Option) (*Controller, error) {
	table, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if actuator == nil || feedback == nil {
		return nil, errors.New("actuator and feedback are required")
	}
	if reporter == nil {
		reporter = noopReporter{}
	}

	c := &Controller{
		cfg:      cfg,
		table:    table,
		actuator: actuator,
		feedback: feedback,
		reporter: reporter,
		sleeper:  RealSleeper{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Table returns the gear table the Controller was configured with
func (c *Controller) Table() gear.Table {
	return c.table
}

// State returns a snapshot of the current motion state
func (c *Controller) State() MotionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentGear returns the last validated gear, and false if the position is unknown
func (c *Controller) CurrentGear() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentGear, c.state.GearKnown
}

// begin moves the Controller from Idle to Moving. It fails when another operation is running
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.State == StateMoving {
		return ErrBusy
	}
	c.state.State = StateMoving
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.state.State = StateIdle
	c.mu.Unlock()
}

func (c *Controller) setGear(g int, known bool) {
	c.mu.Lock()
	c.state.CurrentGear = g
	c.state.GearKnown = known
	c.mu.Unlock()
}

// MoveToGear moves to target and validates that the feedback agrees. On failure the current gear becomes unknown
func (c *Controller) MoveToGear(ctx context.Context, target int) (int, error) {
	if !c.table.Valid(target) {
		return 0, c.fail(&MotionError{Kind: InvalidGear, Target: target})
	}

	if err := c.begin(); err != nil {
		c.logger.Warn("rejected gear change", "target", target, "error", err)
		return 0, err
	}
	defer c.end()

	return c.moveToGear(ctx, target)
}

// moveToGear runs the full move and validate sequence. The caller must hold the Moving state.
// Once motion starts it is not cancelled: a half finished move leaves the mechanism in an unknown spot
func (c *Controller) moveToGear(ctx context.Context, target int) (int, error) {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	c.state.TargetGear = target
	c.mu.Unlock()

	c.report(gearshift.GearChanging())

	targetAngle := c.table.Angle(target)
	c.logger.Info("changing gear", "target", target, "angle", targetAngle)

	err := c.stepTo(ctx, c.startAngle(ctx, targetAngle), targetAngle)
	if err != nil {
		c.setGear(0, false)
		return 0, c.fail(err)
	}

	c.sleeper.Sleep(c.cfg.SettleTime)

	pos, err := c.resolve(ctx, c.cfg.MoveThreshold)
	if err != nil {
		c.setGear(0, false)
		return 0, c.fail(err)
	}

	switch {
	case pos.Is(target):
		c.setGear(target, true)
		c.report(gearshift.GearChanged(target))
		c.logger.Info("gear changed", "gear", target, "angle", pos.Angle)
		return target, nil
	case pos.Kind == gear.NotAligned:
		c.setGear(0, false)
		return 0, c.fail(&MotionError{Kind: NotAligned, Target: target, Position: pos})
	case pos.Kind == gear.Matched:
		c.setGear(0, false)
		return 0, c.fail(&MotionError{Kind: UnexpectedGear, Target: target, Position: pos})
	default:
		c.setGear(0, false)
		return 0, c.fail(&MotionError{Kind: NoPosition, Target: target, Position: pos})
	}
}

// startAngle is where stepping begins: the last commanded angle, or the measured angle before the first command.
// If the measurement is unusable the move starts at the target, which means a single command
func (c *Controller) startAngle(ctx context.Context, targetAngle int) int {
	c.mu.Lock()
	last, known := c.state.LastCommandedAngle, c.state.AngleKnown
	c.mu.Unlock()
	if known {
		return last
	}

	samples, err := c.feedback.Sample(ctx)
	if err != nil || !gear.Aligned(samples, c.cfg.AlignThreshold) {
		c.logger.Warn("unable to measure start angle", "samples", samples, "error", err)
		return targetAngle
	}

	angle, err := gear.Representative(samples)
	if err != nil {
		return targetAngle
	}
	return gear.Clamp(angle)
}

// stepTo commands the actuator from one angle to another in StepSize increments,
// waiting StepDelay per degree after each one. The target is always commanded at least once
func (c *Controller) stepTo(ctx context.Context, from, to int) error {
	angle := from
	for {
		next := to
		if d := to - angle; d > c.cfg.StepSize {
			next = angle + c.cfg.StepSize
		} else if d < -c.cfg.StepSize {
			next = angle - c.cfg.StepSize
		}

		err := c.actuator.SetAngle(ctx, next)
		if err != nil {
			return hardwareError("error setting servo angle", err)
		}

		c.mu.Lock()
		c.state.LastCommandedAngle = next
		c.state.AngleKnown = true
		c.mu.Unlock()

		moved := next - angle
		if moved < 0 {
			moved = -moved
		}
		c.sleeper.Sleep(time.Duration(moved) * c.cfg.StepDelay)

		angle = next
		if angle == to {
			return nil
		}
	}
}

// resolve samples the feedback and matches it against the table
func (c *Controller) resolve(ctx context.Context, threshold int) (gear.Position, error) {
	samples, err := c.feedback.Sample(ctx)
	if err != nil {
		return gear.Position{}, hardwareError("error reading feedback", err)
	}

	pos, err := c.table.Resolve(samples, threshold, c.cfg.AlignThreshold)
	if err != nil {
		return gear.Position{}, hardwareError("error resolving feedback", err)
	}
	c.logger.Debug("resolved position", "samples", samples, "position", pos.String())

	return pos, nil
}

// ReadGear resolves the current gear from the feedback using the idle PositionThreshold.
// A match updates the current gear; anything else marks it unknown and is reported
func (c *Controller) ReadGear(ctx context.Context) (int, error) {
	if err := c.begin(); err != nil {
		return 0, err
	}
	defer c.end()

	return c.readGear(ctx)
}

func (c *Controller) readGear(ctx context.Context) (int, error) {
	pos, err := c.resolve(ctx, c.cfg.PositionThreshold)
	if err != nil {
		return 0, c.fail(err)
	}

	switch pos.Kind {
	case gear.Matched:
		c.setGear(pos.Gear, true)
		return pos.Gear, nil
	case gear.NotAligned:
		c.setGear(0, false)
		return 0, c.fail(&MotionError{Kind: NotAligned, Position: pos})
	default:
		c.setGear(0, false)
		return 0, c.fail(&MotionError{Kind: NoPosition, Position: pos})
	}
}

// MoveToNearestGear moves to whichever gear is closest to the measured angle. It is used to calibrate on startup
func (c *Controller) MoveToNearestGear(ctx context.Context) (int, error) {
	if err := c.begin(); err != nil {
		return 0, err
	}
	defer c.end()

	nearest, err := c.nearestGear(ctx)
	if err != nil {
		return 0, c.fail(err)
	}

	return c.moveToGear(ctx, nearest)
}

func (c *Controller) nearestGear(ctx context.Context) (int, error) {
	pos, err := c.resolve(ctx, c.cfg.PositionThreshold)
	if err != nil {
		return 0, err
	}
	if pos.Kind == gear.NotAligned {
		c.setGear(0, false)
		return 0, &MotionError{Kind: NotAligned, Position: pos}
	}
	return c.table.Nearest(pos.Angle), nil
}

// Shift handles one intent from the input device. Up and down move one gear from the current gear, clamped to
// the table. When the current gear is unknown the feedback decides where to start from. Shifting past the first
// or last gear only acknowledges
func (c *Controller) Shift(ctx context.Context, intent gearshift.Intent) error {
	switch intent {
	case gearshift.IntentNone:
		return nil
	case gearshift.IntentDebug:
		return c.Debug(ctx)
	}

	if err := c.begin(); err != nil {
		c.logger.Warn("rejected shift", "intent", intent.String(), "error", err)
		return err
	}
	defer c.end()

	base, known := c.CurrentGear()
	if !known {
		var err error
		base, err = c.nearestGear(ctx)
		if err != nil {
			return c.fail(err)
		}
	}

	target := c.table.ClampGear(base + intent.Delta())
	if known && target == base {
		c.logger.Info("already at the last gear", "gear", base, "intent", intent.String())
		c.report(gearshift.Acknowledge())
		return nil
	}

	_, err := c.moveToGear(ctx, target)
	return err
}

// Debug reports the raw feedback angles and what they resolve to
func (c *Controller) Debug(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	samples, err := c.feedback.Sample(ctx)
	if err != nil {
		return c.fail(hardwareError("error reading feedback", err))
	}

	pos, err := c.table.Resolve(samples, c.cfg.PositionThreshold, c.cfg.AlignThreshold)
	if err != nil {
		return c.fail(hardwareError("error resolving feedback", err))
	}

	state := c.State()
	current := "unknown"
	if state.GearKnown {
		current = fmt.Sprint(state.CurrentGear)
	}

	c.report(gearshift.Debug(fmt.Sprintf("angles=%v position=%s current=%s", samples, pos, current)))
	return nil
}

// Start announces the shifter and calibrates by moving to the nearest gear
func (c *Controller) Start(ctx context.Context) (int, error) {
	c.report(gearshift.Startup())
	return c.MoveToNearestGear(ctx)
}

// Stop announces shutdown and releases the actuator if it supports it
func (c *Controller) Stop() error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.report(gearshift.Shutdown())

	stopper, ok := c.actuator.(Stopper)
	if !ok {
		return nil
	}
	err := stopper.Stop()
	if err != nil {
		return fmt.Errorf("error stopping servo: %w", err)
	}

	c.mu.Lock()
	c.state.AngleKnown = false
	c.mu.Unlock()
	return nil
}

// Run handles intents until the channel is closed or ctx is done. Cancellation is only noticed between moves.
// Failed shifts are already reported, so Run keeps going
func (c *Controller) Run(ctx context.Context, intents <-chan gearshift.Intent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case intent, ok := <-intents:
			if !ok {
				return nil
			}
			err := c.Shift(ctx, intent)
			if err != nil {
				c.logger.Error("shift failed", "intent", intent.String(), "error", err)
			}
		}
	}
}

// fail mirrors err as an error message and returns it
func (c *Controller) fail(err error) error {
	c.logger.Error("gear error", "error", err)
	c.report(gearshift.Error(err.Error()))
	return err
}

func (c *Controller) report(m gearshift.Message) {
	err := c.reporter.Report(m)
	if err != nil {
		c.logger.Warn("error reporting message", "message", m.String(), "error", err)
	}
}
