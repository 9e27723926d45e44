package value

import "strconv"

// Number is an IEEE-754 double-precision floating point value.
type Number float64

var _ Value = Number(0)

// String formats n the way Print renders numbers: Go's default floating
// formatting ('g' verb, shortest round-trippable representation).
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (Number) Type() string { return "number" }
