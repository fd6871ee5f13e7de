package shifter

import (
	"context"
	"time"

	"github.com/calvinmclean/gearshift"
)

// Actuator moves the gear selector to an angle in degrees (0-180)
type Actuator interface {
	SetAngle(ctx context.Context, angle int) error
}

// Stopper is implemented by actuators that can release the servo when shutting down
type Stopper interface {
	Stop() error
}

// Feedback reads the selector position. It returns one sample, or two when the
// mechanism has redundant sensors. Alignment is only checked with two samples
type Feedback interface {
	Sample(ctx context.Context) ([]int, error)
}

// Reporter sends status messages to whatever is listening on the communication channel
type Reporter interface {
	Report(gearshift.Message) error
}

// Sleeper blocks for the rate limiting and settle delays
type Sleeper interface {
	Sleep(time.Duration)
}

// RealSleeper uses time.Sleep
type RealSleeper struct{}

func (RealSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

// ReporterFunc adapts a function to a Reporter
type ReporterFunc func(gearshift.Message) error

func (f ReporterFunc) Report(m gearshift.Message) error {
	return f(m)
}

type noopReporter struct{}

var _ Reporter = noopReporter{}

// Report implements Reporter.
func (noopReporter) Report(gearshift.Message) error {
	return nil
}
