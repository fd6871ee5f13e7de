package shifter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/gearshift"
	"github.com/calvinmclean/gearshift/shifter"
	"github.com/calvinmclean/gearshift/sim"
)

type fakeSleeper struct {
	mu    sync.Mutex
	total time.Duration
	calls int
}

func (s *fakeSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total += d
	s.calls++
}

func (s *fakeSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

type recorder struct {
	mu       sync.Mutex
	messages []gearshift.Message
}

func (r *recorder) Report(m gearshift.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *recorder) Messages() []gearshift.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gearshift.Message(nil), r.messages...)
}

func (r *recorder) Types() string {
	var out string
	for _, m := range r.Messages() {
		out += string(byte(m.Type))
	}
	return out
}

func (r *recorder) Last() gearshift.Message {
	msgs := r.Messages()
	if len(msgs) == 0 {
		return gearshift.Message{}
	}
	return msgs[len(msgs)-1]
}

func testConfig() shifter.Config {
	cfg := shifter.DefaultConfig()
	cfg.Gears = []int{0, 42, 84, 126, 168}
	return cfg
}

func newTestController(t *testing.T, cfg shifter.Config, servo *sim.Servo) (*shifter.Controller, *recorder, *fakeSleeper) {
	t.Helper()
	rec := &recorder{}
	sleeper := &fakeSleeper{}
	c, err := shifter.New(cfg, servo, servo, rec, shifter.WithSleeper(sleeper))
	require.NoError(t, err)
	return c, rec, sleeper
}

func TestMoveToGear(t *testing.T) {
	servo := sim.New(0)
	c, rec, sleeper := newTestController(t, testConfig(), servo)

	got, err := c.MoveToGear(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	commands := servo.Commands()
	assert.Len(t, commands, 126)
	assert.Equal(t, 1, commands[0])
	assert.Equal(t, 126, commands[len(commands)-1])

	gear, known := c.CurrentGear()
	assert.True(t, known)
	assert.Equal(t, 3, gear)

	assert.Equal(t, "CG", rec.Types())
	assert.Equal(t, gearshift.GearChanged(3), rec.Last())

	assert.Equal(t, 126*shifter.DefaultStepDelay+shifter.DefaultSettleTime, sleeper.Total())

	state := c.State()
	assert.Equal(t, shifter.StateIdle, state.State)
	assert.Equal(t, 3, state.TargetGear)
	assert.Equal(t, 126, state.LastCommandedAngle)
}

func TestMoveToGearStepsAreBounded(t *testing.T) {
	cfg := testConfig()
	cfg.StepSize = 5
	servo := sim.New(84)
	c, _, sleeper := newTestController(t, cfg, servo)

	_, err := c.MoveToGear(context.Background(), 1)
	require.NoError(t, err)

	commands := servo.Commands()
	assert.Equal(t, []int{79, 74, 69, 64, 59, 54, 49, 44, 42}, commands)
	assert.Equal(t, 42*shifter.DefaultStepDelay+shifter.DefaultSettleTime, sleeper.Total())
}

func TestMoveToGearNoPosition(t *testing.T) {
	servo := sim.New(0)
	c, rec, _ := newTestController(t, testConfig(), servo)

	_, err := c.MoveToGear(context.Background(), 0)
	require.NoError(t, err)

	servo.Stick(140)

	_, err = c.MoveToGear(context.Background(), 3)
	require.ErrorIs(t, err, shifter.ErrNoPosition)

	var motionErr *shifter.MotionError
	require.ErrorAs(t, err, &motionErr)
	assert.Equal(t, 3, motionErr.Target)
	assert.Equal(t, 140, motionErr.Position.Angle)

	commands := servo.Commands()
	assert.Equal(t, 126, commands[len(commands)-1])

	_, known := c.CurrentGear()
	assert.False(t, known)
	assert.Equal(t, shifter.StateIdle, c.State().State)

	assert.Equal(t, gearshift.Error("Gear not in correct position"), rec.Last())
}

func TestMoveToGearUnexpectedGear(t *testing.T) {
	servo := sim.New(0)
	c, rec, _ := newTestController(t, testConfig(), servo)
	servo.Stick(44)

	_, err := c.MoveToGear(context.Background(), 3)
	require.ErrorIs(t, err, shifter.ErrUnexpectedGear)
	assert.NotErrorIs(t, err, shifter.ErrNoPosition)
	assert.Equal(t, gearshift.Error("expected gear 3, got gear 1"), rec.Last())

	_, known := c.CurrentGear()
	assert.False(t, known)
}

func TestMoveToGearNotAligned(t *testing.T) {
	servo := sim.New(0, sim.Dual(20))
	c, rec, _ := newTestController(t, testConfig(), servo)

	_, err := c.MoveToGear(context.Background(), 2)
	require.ErrorIs(t, err, shifter.ErrNotAligned)

	// the start angle could not be measured so the target is commanded directly
	assert.Equal(t, []int{84}, servo.Commands())
	assert.Equal(t, "CE", rec.Types())
	assert.Equal(t, gearshift.Error("Servo motors not aligned (different positions)"), rec.Last())

	_, known := c.CurrentGear()
	assert.False(t, known)
}

func TestMoveToGearDualAligned(t *testing.T) {
	servo := sim.New(40, sim.Dual(4))
	c, _, _ := newTestController(t, testConfig(), servo)

	got, err := c.MoveToGear(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	// measured start is 42, the mean of 40 and 44
	assert.Equal(t, 43, servo.Commands()[0])
}

func TestMoveToGearInvalid(t *testing.T) {
	servo := sim.New(0)
	c, rec, sleeper := newTestController(t, testConfig(), servo)

	for _, target := range []int{-1, 5, 100} {
		_, err := c.MoveToGear(context.Background(), target)
		require.ErrorIs(t, err, shifter.ErrInvalidGear)
	}

	assert.Empty(t, servo.Commands())
	assert.Zero(t, sleeper.Total())
	assert.Equal(t, "EEE", rec.Types())
	assert.Equal(t, shifter.StateIdle, c.State().State)
}

func TestMoveToGearIsIdempotent(t *testing.T) {
	servo := sim.New(0)
	c, rec, _ := newTestController(t, testConfig(), servo)

	for range 2 {
		got, err := c.MoveToGear(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, got)
		gear, known := c.CurrentGear()
		assert.True(t, known)
		assert.Equal(t, 2, gear)
	}

	// the second move only re-commands the target
	commands := servo.Commands()
	assert.Len(t, commands, 85)
	assert.Equal(t, 84, commands[84])
	assert.Equal(t, "CGCG", rec.Types())
}

func TestMoveToGearRecoversAfterFailure(t *testing.T) {
	servo := sim.New(0)
	c, _, _ := newTestController(t, testConfig(), servo)

	servo.Stick(100)
	_, err := c.MoveToGear(context.Background(), 2)
	require.ErrorIs(t, err, shifter.ErrNoPosition)

	servo.Release()
	got, err := c.MoveToGear(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

type blockingActuator struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
	servo   *sim.Servo
}

func (b *blockingActuator) SetAngle(ctx context.Context, angle int) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.servo.SetAngle(ctx, angle)
}

func TestMoveToGearRejectsConcurrentRequests(t *testing.T) {
	servo := sim.New(0)
	actuator := &blockingActuator{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		servo:   servo,
	}
	rec := &recorder{}
	c, err := shifter.New(testConfig(), actuator, servo, rec, shifter.WithSleeper(&fakeSleeper{}))
	require.NoError(t, err)

	type result struct {
		gear int
		err  error
	}
	done := make(chan result)
	go func() {
		g, err := c.MoveToGear(context.Background(), 1)
		done <- result{g, err}
	}()

	<-actuator.entered
	assert.Equal(t, shifter.StateMoving, c.State().State)

	_, err = c.MoveToGear(context.Background(), 2)
	assert.ErrorIs(t, err, shifter.ErrBusy)
	_, err = c.ReadGear(context.Background())
	assert.ErrorIs(t, err, shifter.ErrBusy)
	assert.ErrorIs(t, c.Shift(context.Background(), gearshift.IntentUp), shifter.ErrBusy)

	close(actuator.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.gear)
	assert.Equal(t, 42, servo.Angle())
	assert.Equal(t, "CG", rec.Types())
}

func TestMoveToGearIgnoresCancellation(t *testing.T) {
	servo := sim.New(0)
	c, _, _ := newTestController(t, testConfig(), servo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.MoveToGear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

type failingFeedback struct{}

func (failingFeedback) Sample(context.Context) ([]int, error) {
	return nil, errors.New("adc timeout")
}

func TestMoveToGearFeedbackFailure(t *testing.T) {
	servo := sim.New(0)
	rec := &recorder{}
	c, err := shifter.New(testConfig(), servo, failingFeedback{}, rec, shifter.WithSleeper(&fakeSleeper{}))
	require.NoError(t, err)

	_, err = c.MoveToGear(context.Background(), 1)
	require.ErrorIs(t, err, shifter.ErrHardware)
	assert.ErrorContains(t, err, "adc timeout")
	assert.Equal(t, []int{42}, servo.Commands())
	assert.Equal(t, gearshift.MessageError, rec.Last().Type)
}

func TestReadGear(t *testing.T) {
	servo := sim.New(85)
	c, rec, _ := newTestController(t, testConfig(), servo)

	got, err := c.ReadGear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	gear, known := c.CurrentGear()
	assert.True(t, known)
	assert.Equal(t, 2, gear)
	assert.Empty(t, rec.Messages())

	servo.Stick(95)
	_, err = c.ReadGear(context.Background())
	require.ErrorIs(t, err, shifter.ErrNoPosition)
	_, known = c.CurrentGear()
	assert.False(t, known)
	assert.Empty(t, servo.Commands())
}

func TestReadGearNotAligned(t *testing.T) {
	servo := sim.New(84, sim.Dual(0))
	c, rec, _ := newTestController(t, testConfig(), servo)

	got, err := c.ReadGear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	servo.SetOffset(20)
	_, err = c.ReadGear(context.Background())
	require.ErrorIs(t, err, shifter.ErrNotAligned)

	_, known := c.CurrentGear()
	assert.False(t, known)
	assert.Equal(t, "E", rec.Types())
	assert.Equal(t, "Servo motors not aligned (different positions)", rec.Last().Payload)
	assert.Empty(t, servo.Commands())
}

func TestReadGearUsesIdleThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.PositionThreshold = 12
	cfg.MoveThreshold = 4
	servo := sim.New(0)
	c, _, _ := newTestController(t, cfg, servo)

	servo.Stick(94)
	got, err := c.ReadGear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	_, err = c.MoveToGear(context.Background(), 2)
	require.ErrorIs(t, err, shifter.ErrNoPosition)
}

func TestShift(t *testing.T) {
	servo := sim.New(0)
	c, rec, _ := newTestController(t, testConfig(), servo)
	ctx := context.Background()

	require.NoError(t, c.Shift(ctx, gearshift.IntentUp))
	gear, _ := c.CurrentGear()
	assert.Equal(t, 1, gear)

	require.NoError(t, c.Shift(ctx, gearshift.IntentDown))
	require.NoError(t, c.Shift(ctx, gearshift.IntentDown))
	gear, _ = c.CurrentGear()
	assert.Equal(t, 0, gear)
	assert.Equal(t, "CGCGA", rec.Types())

	require.NoError(t, c.Shift(ctx, gearshift.IntentNone))
	assert.Equal(t, "CGCGA", rec.Types())
}

func TestShiftAtTopOnlyAcknowledges(t *testing.T) {
	servo := sim.New(168)
	c, rec, _ := newTestController(t, testConfig(), servo)
	ctx := context.Background()

	_, err := c.ReadGear(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Shift(ctx, gearshift.IntentUp))
	assert.Empty(t, servo.Commands())
	assert.Equal(t, "A", rec.Types())
}

func TestShiftFromUnknownGear(t *testing.T) {
	// 93 is between gears but nearest to gear 2
	servo := sim.New(93)
	c, _, _ := newTestController(t, testConfig(), servo)

	require.NoError(t, c.Shift(context.Background(), gearshift.IntentDown))
	gear, known := c.CurrentGear()
	assert.True(t, known)
	assert.Equal(t, 1, gear)
}

func TestShiftNotAligned(t *testing.T) {
	servo := sim.New(84, sim.Dual(30))
	c, rec, _ := newTestController(t, testConfig(), servo)

	err := c.Shift(context.Background(), gearshift.IntentUp)
	require.ErrorIs(t, err, shifter.ErrNotAligned)
	assert.Empty(t, servo.Commands())
	assert.Equal(t, "E", rec.Types())
}

func TestDebug(t *testing.T) {
	servo := sim.New(85)
	c, rec, _ := newTestController(t, testConfig(), servo)

	require.NoError(t, c.Shift(context.Background(), gearshift.IntentDebug))
	assert.Equal(t, gearshift.Debug("angles=[85] position=gear 2 at 85 current=unknown"), rec.Last())
	assert.Empty(t, servo.Commands())
}

func TestStartAndStop(t *testing.T) {
	servo := sim.New(80)
	c, rec, _ := newTestController(t, testConfig(), servo)

	got, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 84, servo.Angle())

	require.NoError(t, c.Stop())
	assert.True(t, servo.Stopped())
	assert.Equal(t, "SCGX", rec.Types())
	assert.False(t, c.State().AngleKnown)
}

func TestRun(t *testing.T) {
	servo := sim.New(0)
	c, _, _ := newTestController(t, testConfig(), servo)

	intents := make(chan gearshift.Intent, 4)
	intents <- gearshift.IntentUp
	intents <- gearshift.IntentUp
	intents <- gearshift.IntentNone
	intents <- gearshift.IntentUp
	close(intents)

	require.NoError(t, c.Run(context.Background(), intents))
	gear, _ := c.CurrentGear()
	assert.Equal(t, 3, gear)
}

func TestRunStopsOnCancel(t *testing.T) {
	servo := sim.New(0)
	c, _, _ := newTestController(t, testConfig(), servo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, make(chan gearshift.Intent))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesConfig(t *testing.T) {
	servo := sim.New(0)

	cfg := testConfig()
	cfg.Gears = nil
	_, err := shifter.New(cfg, servo, servo, nil)
	assert.Error(t, err)

	_, err = shifter.New(testConfig(), nil, servo, nil)
	assert.Error(t, err)

	_, err = shifter.New(testConfig(), servo, servo, nil)
	assert.NoError(t, err)
}
