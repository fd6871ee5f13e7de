package shifter

import (
	"fmt"

	"github.com/calvinmclean/gearshift/gear"
)

// ErrorKind classifies why a move or a read failed
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// InvalidGear is a request for a gear that is not in the table. Nothing was moved
	InvalidGear
	// NoPosition means the feedback is not within the threshold of any gear
	NoPosition
	// NotAligned means the two feedback channels disagree. It is a mechanical fault
	NotAligned
	// UnexpectedGear means a move ended in a valid gear that was not the target
	UnexpectedGear
	// Busy is a request made while a move is in progress
	Busy
	// Hardware is an I/O failure talking to the actuator or the feedback
	Hardware
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidGear:
		return "InvalidGear"
	case NoPosition:
		return "NoPosition"
	case NotAligned:
		return "NotAligned"
	case UnexpectedGear:
		return "UnexpectedGear"
	case Busy:
		return "Busy"
	case Hardware:
		return "Hardware"
	default:
		return "Unknown"
	}
}

const (
	msgNoPosition = "Gear not in correct position"
	msgNotAligned = "Servo motors not aligned (different positions)"
)

// MotionError is returned by every Controller operation that fails.
// Use errors.Is with the Err* sentinels to check the Kind
type MotionError struct {
	Kind ErrorKind
	// Target is the requested gear, when there was one
	Target int
	// Position is what the feedback resolved to, when it was read
	Position gear.Position
	// Err is the underlying I/O error for Hardware failures
	Err error
}

var (
	ErrInvalidGear    = &MotionError{Kind: InvalidGear}
	ErrNoPosition     = &MotionError{Kind: NoPosition}
	ErrNotAligned     = &MotionError{Kind: NotAligned}
	ErrUnexpectedGear = &MotionError{Kind: UnexpectedGear}
	ErrBusy           = &MotionError{Kind: Busy}
	ErrHardware       = &MotionError{Kind: Hardware}
)

func (e *MotionError) Error() string {
	switch e.Kind {
	case InvalidGear:
		return fmt.Sprintf("invalid gear %d", e.Target)
	case NoPosition:
		return msgNoPosition
	case NotAligned:
		return msgNotAligned
	case UnexpectedGear:
		return fmt.Sprintf("expected gear %d, got gear %d", e.Target, e.Position.Gear)
	case Busy:
		return "gear change already in progress"
	case Hardware:
		return fmt.Sprintf("hardware error: %v", e.Err)
	default:
		return "unknown motion error"
	}
}

// Is matches any MotionError of the same Kind
func (e *MotionError) Is(target error) bool {
	t, ok := target.(*MotionError)
	return ok && t.Kind == e.Kind
}

func (e *MotionError) Unwrap() error {
	return e.Err
}

func hardwareError(op string, err error) *MotionError {
	return &MotionError{Kind: Hardware, Err: fmt.Errorf("%s: %w", op, err)}
}
