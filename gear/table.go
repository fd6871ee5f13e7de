// Package gear maps raw feedback angles to discrete gear positions.
package gear

import (
	"errors"
	"fmt"
)

const (
	MinAngle = 0
	MaxAngle = 180
)

var (
	ErrEmptyTable   = errors.New("gear table is empty")
	ErrAngleRange   = errors.New("gear angle out of range")
	ErrNotMonotonic = errors.New("gear angles must be strictly increasing or strictly decreasing")
)

// Table is the ordered list of expected feedback angles, one per gear. It is immutable once created
type Table struct {
	angles []int
}

// NewTable validates the angles and returns a Table. The input slice is copied
func NewTable(angles ...int) (Table, error) {
	if len(angles) == 0 {
		return Table{}, ErrEmptyTable
	}

	for i, a := range angles {
		if a < MinAngle || a > MaxAngle {
			return Table{}, fmt.Errorf("%w: gear %d at %d", ErrAngleRange, i, a)
		}
	}

	if len(angles) > 1 {
		increasing := angles[1] > angles[0]
		for i := 1; i < len(angles); i++ {
			if (increasing && angles[i] <= angles[i-1]) || (!increasing && angles[i] >= angles[i-1]) {
				return Table{}, fmt.Errorf("%w: gear %d at %d follows %d", ErrNotMonotonic, i, angles[i], angles[i-1])
			}
		}
	}

	return Table{angles: append([]int(nil), angles...)}, nil
}

// MustTable is NewTable for tables that are known to be valid at build time
func MustTable(angles ...int) Table {
	t, err := NewTable(angles...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of gears
func (t Table) Len() int {
	return len(t.angles)
}

// Valid reports whether gear is an index into the table
func (t Table) Valid(gear int) bool {
	return gear >= 0 && gear < len(t.angles)
}

// Angle returns the expected angle for gear. It panics if gear is not Valid
func (t Table) Angle(gear int) int {
	return t.angles[gear]
}

// Angles returns a copy of the table
func (t Table) Angles() []int {
	return append([]int(nil), t.angles...)
}

// ClampGear limits gear to the first and last index of the table
func (t Table) ClampGear(gear int) int {
	switch {
	case gear < 0:
		return 0
	case gear >= len(t.angles):
		return len(t.angles) - 1
	default:
		return gear
	}
}

// Nearest returns the gear whose angle is closest to angle, regardless of any threshold.
// Equal distances resolve to the lower gear index
func (t Table) Nearest(angle int) int {
	best := 0
	bestDiff := abs(angle - t.angles[0])
	for i := 1; i < len(t.angles); i++ {
		if d := abs(angle - t.angles[i]); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

// Clamp limits an actuator command to the 0-180 degree range
func Clamp(angle int) int {
	switch {
	case angle < MinAngle:
		return MinAngle
	case angle > MaxAngle:
		return MaxAngle
	default:
		return angle
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
