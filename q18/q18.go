// Package q18 implements the Q18 fixed-point scalar: a signed 64-bit
// integer interpreted as a real value scaled by SCALE = 2^18.
//
// Every operation is exact: it either returns a representable Q or fails
// with a typed error. There is no silent saturation and no default
// rounding mode — callers choose UP or DOWN at every call site that can
// round (CANONICAL spec §4.1).
package q18

import (
	"errors"
	"math/big"
)

// Scale is the fixed-point scale factor, 2^18.
const Scale = 1 << 18

// Q is a signed fixed-point scalar: the real value is int64(Q) / Scale.
type Q int64

// Mode selects a rounding direction for mul and div. There is no default;
// every call site must pick one.
type Mode int

const (
	// Down truncates toward zero for non-negative intermediates, and is
	// the mandated mode for refunds and credits.
	Down Mode = iota
	// Up adds 1 to the truncated result when any remainder bit is non-zero,
	// whatever the sign (so it never yields less than Down), and is the
	// mandated mode for debits (consumption).
	Up
)

// ErrOverflow is returned when a result falls outside the signed 64-bit
// range representable by Q.
var ErrOverflow = errors.New("q18: overflow")

// ErrDivByZero is returned by Div when the divisor is zero.
var ErrDivByZero = errors.New("q18: division by zero")

const (
	minQ = Q(-1 << 63)
	maxQ = Q((1 << 63) - 1)
)

// Add returns a + b, or ErrOverflow if the mathematical sum falls outside
// the representable range.
func Add(a, b Q) (Q, error) {
	sum := a + b
	// Overflow occurs iff the operands share a sign and the result's sign
	// differs from theirs.
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum > 0) {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a - b, or ErrOverflow if the mathematical difference falls
// outside the representable range.
func Sub(a, b Q) (Q, error) {
	diff := new(big.Int).Sub(big.NewInt(int64(a)), big.NewInt(int64(b)))
	return bigToQ(diff)
}

// Neg returns -a, or ErrOverflow when a is minQ (whose negation is not
// representable in a signed 64-bit value).
func Neg(a Q) (Q, error) {
	if a == minQ {
		return 0, ErrOverflow
	}
	return -a, nil
}

// Eq reports whether a and b are the same scaled value.
func Eq(a, b Q) bool {
	return a == b
}

// Mul computes a * b / Scale using a 128-bit intermediate product, rounding
// per mode. It fails with ErrOverflow if the final 64-bit result does not
// fit in Q.
func Mul(a, b Q, mode Mode) (Q, error) {
	prod := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(int64(b)))
	scale := big.NewInt(Scale)

	quot, rem := new(big.Int), new(big.Int)
	quot.QuoRem(prod, scale, rem)
	// big.Int.QuoRem truncates toward zero, matching the "truncate by
	// shifting" rule the spec mandates as the DOWN baseline. UP then adds 1
	// to that truncated quotient whenever the remainder is non-zero,
	// regardless of sign, so mul(a,b,UP) >= mul(a,b,DOWN) holds universally.
	if mode == Up && rem.Sign() != 0 {
		quot.Add(quot, big.NewInt(1))
	}
	return bigToQ(quot)
}

// Div computes (a * Scale) / b using a 128-bit intermediate, rounding per
// mode. It fails with ErrDivByZero when b is zero, or ErrOverflow when the
// final result does not fit in Q.
func Div(a, b Q, mode Mode) (Q, error) {
	if b == 0 {
		return 0, ErrDivByZero
	}
	num := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(Scale))
	den := big.NewInt(int64(b))

	quot, rem := new(big.Int), new(big.Int)
	quot.QuoRem(num, den, rem)
	// Same sign-independent UP rule as Mul: add 1 to the truncated quotient
	// whenever the remainder is non-zero.
	if mode == Up && rem.Sign() != 0 {
		quot.Add(quot, big.NewInt(1))
	}
	return bigToQ(quot)
}

func bigToQ(v *big.Int) (Q, error) {
	if !v.IsInt64() {
		return 0, ErrOverflow
	}
	n := v.Int64()
	if Q(n) < minQ || Q(n) > maxQ {
		return 0, ErrOverflow
	}
	return Q(n), nil
}
