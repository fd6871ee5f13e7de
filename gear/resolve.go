package gear

import (
	"errors"
	"strconv"
)

// NoAlignment disables the sensor alignment check when passed as the alignment threshold
const NoAlignment = -1

var ErrSampleCount = errors.New("resolve needs one or two samples")

// Kind tags the outcome of a resolution
type Kind int

const (
	Matched Kind = iota
	NoMatch
	NotAligned
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "Matched"
	case NoMatch:
		return "NoMatch"
	case NotAligned:
		return "NotAligned"
	default:
		return "Unknown"
	}
}

// Position is the result of matching feedback samples against a Table.
// Gear is only meaningful when Kind is Matched. Angle is the representative
// angle that was matched, and is zero for NotAligned
type Position struct {
	Kind  Kind
	Gear  int
	Angle int
}

// Is reports whether p is a match for gear
func (p Position) Is(gear int) bool {
	return p.Kind == Matched && p.Gear == gear
}

func (p Position) String() string {
	switch p.Kind {
	case Matched:
		return "gear " + strconv.Itoa(p.Gear) + " at " + strconv.Itoa(p.Angle)
	case NoMatch:
		return "no position at " + strconv.Itoa(p.Angle)
	default:
		return p.Kind.String()
	}
}

// Representative reduces one or two samples to the single angle used for matching.
// Two samples are averaged, rounding down
func Representative(samples []int) (int, error) {
	switch len(samples) {
	case 1:
		return samples[0], nil
	case 2:
		return floorDiv(samples[0]+samples[1], 2), nil
	default:
		return 0, ErrSampleCount
	}
}

// Aligned reports whether two samples agree within alignThreshold. A single
// sample, or a negative threshold, is always aligned
func Aligned(samples []int, alignThreshold int) bool {
	if len(samples) != 2 || alignThreshold < 0 {
		return true
	}
	return abs(samples[0]-samples[1]) <= alignThreshold
}

// Resolve matches samples against the table.
//
// When two samples disagree by more than alignThreshold the result is NotAligned,
// regardless of how close either one is to a gear. Otherwise the closest gear within
// posThreshold degrees of the representative angle wins; ties go to the lower index.
// If no gear is close enough the result is NoMatch.
func (t Table) Resolve(samples []int, posThreshold, alignThreshold int) (Position, error) {
	if len(samples) == 0 || len(samples) > 2 {
		return Position{}, ErrSampleCount
	}

	if !Aligned(samples, alignThreshold) {
		return Position{Kind: NotAligned}, nil
	}

	angle, err := Representative(samples)
	if err != nil {
		return Position{}, err
	}

	nearest := t.Nearest(angle)
	if abs(angle-t.angles[nearest]) > posThreshold {
		return Position{Kind: NoMatch, Angle: angle}, nil
	}

	return Position{Kind: Matched, Gear: nearest, Angle: angle}, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
