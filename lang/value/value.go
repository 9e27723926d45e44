// Package value implements the tagged runtime value representation shared by
// the compiler and the virtual machine. Unlike the teacher's machine package,
// the variant set here is closed (spec.md §3): Nil, Bool, Number, StringObj,
// Identifier and Function, each its own concrete type implementing Value.
package value

import "math"

// Value is the interface implemented by every runtime value.
type Value interface {
	// String returns the value's textual form, used by the Print opcode.
	String() string
	// Type returns a short string describing the value's type, used in runtime
	// error messages.
	Type() string
}

// Equal reports whether a and b are considered equal. Numbers compare with an
// epsilon tolerance; every other variant compares structurally; values of
// different concrete types are never equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && numberEqual(av, bv)
	case StringObj:
		bv, ok := b.(StringObj)
		return ok && av == bv
	case Identifier:
		bv, ok := b.(Identifier)
		return ok && av == bv
	case Function:
		bv, ok := b.(Function)
		return ok && av == bv
	default:
		return false
	}
}

// numberEqual compares two numbers with a machine-epsilon tolerance, per
// spec.md §3: "|a-b| < machine epsilon of f64".
func numberEqual(a, b Number) bool {
	if a == b {
		return true
	}
	return math.Abs(float64(a)-float64(b)) < epsilon
}

// epsilon is the machine epsilon for float64: the smallest value such that
// 1.0+epsilon != 1.0.
const epsilon = 2.220446049250313e-16

// IsFalsey reports whether v is falsey: nil and false are falsey, every other
// value (including Number(0) and the empty string) is truthy.
func IsFalsey(v Value) bool {
	switch vv := v.(type) {
	case Nil:
		return true
	case Bool:
		return !bool(vv)
	default:
		return false
	}
}
