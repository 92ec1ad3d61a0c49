// Package fixedpoint implements the deterministic, checked fixed-point
// arithmetic shared by every pricing, risk, and accounting component in the
// engine. Two widths are provided: FP64, a Q64.64 value (128 bits of
// storage despite the name, matching the U64F64 convention the original
// Solana program borrowed from the fixed crate) used for prices,
// probabilities, and ratios; and FP128, a Q128.128 value (256 bits of
// storage) used wherever FP64's 2^-64 (~5.4e-20) resolution is not
// enough, chiefly LMSR's running exponent sum and vault coverage ratios
// compounded over many slots.
//
// Both widths are backed by holiman/uint256.Int so that overflow is
// detected with the same carry-checked primitives nhbchain already depends
// on for ray-scaled interest math in native/lending, rather than silently
// wrapping the way a native uint64/uint128 multiply would.
package fixedpoint

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"

	ferrors "flashbets/core/errors"
)

// fp64Scale is 2^64, the fractional scale of FP64.
var fp64Scale = new(uint256.Int).Lsh(uint256.NewInt(1), 64)

// fp64Max is the largest value representable in 128 bits, the storage width
// implied by FP64's Q64.64 layout.
var fp64Max = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// FP64 is an unsigned Q64.64 fixed-point number: v represents v/2^64.
// The zero value is 0.0 and is safe to use directly.
type FP64 struct {
	v uint256.Int
}

// Zero is the additive identity.
func Zero64() FP64 { return FP64{} }

// One is the multiplicative identity (1.0).
func One64() FP64 { return FP64{v: *fp64Scale} }

// Max64 returns the largest representable FP64, used as a sentinel for
// "infinite" ratios such as coverage with zero open interest.
func Max64() FP64 { return FP64{v: *fp64Max} }

// FP64FromUint64 builds an FP64 representing the integer n exactly.
func FP64FromUint64(n uint64) FP64 {
	v := new(uint256.Int).Mul(uint256.NewInt(n), fp64Scale)
	return FP64{v: *v}
}

// FP64FromFloat64 converts a non-negative float64 into an FP64, rounding to
// the nearest representable fraction. Intended for config loading and test
// fixtures, never for on-path arithmetic.
func FP64FromFloat64(f float64) (FP64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return FP64{}, ferrors.Validation(ferrors.ErrInvalidInput)
	}
	scaled := new(big.Float).Mul(big.NewFloat(f), new(big.Float).SetInt(fp64Scale.ToBig()))
	i, _ := scaled.Int(nil)
	u, overflow := uint256.FromBig(i)
	if overflow {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP64{v: *u}, nil
}

// Float64 converts back to a float64, losing precision beyond 53 bits.
func (a FP64) Float64() float64 {
	f := new(big.Float).SetInt(a.v.ToBig())
	f.Quo(f, new(big.Float).SetInt(fp64Scale.ToBig()))
	out, _ := f.Float64()
	return out
}

// Raw exposes the underlying 128-bit mantissa, for codecs and hashing.
func (a FP64) Raw() uint256.Int { return a.v }

// FP64FromRaw reconstructs an FP64 from a previously extracted mantissa,
// validating it fits the 128-bit storage width.
func FP64FromRaw(raw uint256.Int) (FP64, error) {
	if raw.Gt(fp64Max) {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP64{v: raw}, nil
}

func (a FP64) IsZero() bool { return a.v.IsZero() }

func (a FP64) Cmp(b FP64) int { return a.v.Cmp(&b.v) }

func (a FP64) Equal(b FP64) bool { return a.v.Eq(&b.v) }

func (a FP64) LessThan(b FP64) bool { return a.v.Lt(&b.v) }

func (a FP64) GreaterThan(b FP64) bool { return a.v.Gt(&b.v) }

// Add returns a+b, erroring if the 128-bit storage width overflows.
func (a FP64) Add(b FP64) (FP64, error) {
	out, overflow := new(uint256.Int).AddOverflow(&a.v, &b.v)
	if overflow || out.Gt(fp64Max) {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP64{v: *out}, nil
}

// Sub returns a-b, erroring on underflow since FP64 is unsigned.
func (a FP64) Sub(b FP64) (FP64, error) {
	if a.v.Lt(&b.v) {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrUnderflow)
	}
	var out uint256.Int
	out.Sub(&a.v, &b.v)
	return FP64{v: out}, nil
}

// Mul returns a*b rounded down, erroring if the intermediate 256-bit product
// or the rescaled result overflows the 128-bit storage width.
func (a FP64) Mul(b FP64) (FP64, error) {
	// MulDivOverflow computes floor(x*y/d) using a 512-bit intermediate
	// product, which is exactly the rescale-after-multiply fixed-point
	// primitive we need.
	product, overflow := new(uint256.Int).MulDivOverflow(&a.v, &b.v, fp64Scale)
	if overflow || product.Gt(fp64Max) {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP64{v: *product}, nil
}

// Div returns a/b rounded down, erroring on division by zero or overflow.
func (a FP64) Div(b FP64) (FP64, error) {
	if b.v.IsZero() {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrDivisionByZero)
	}
	quotient, overflow := new(uint256.Int).MulDivOverflow(&a.v, fp64Scale, &b.v)
	if overflow || quotient.Gt(fp64Max) {
		return FP64{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP64{v: *quotient}, nil
}

func (a FP64) String() string {
	return a.Float64Text()
}

// Float64Text formats the value with enough decimal digits to round-trip
// through FP64's 64 fractional bits for logs and error messages.
func (a FP64) Float64Text() string {
	return fmt.Sprintf("%.18f", a.Float64())
}

// ToFP128 widens an FP64 into an FP128 with the same logical value.
func (a FP64) ToFP128() FP128 {
	shifted := new(uint256.Int).Lsh(&a.v, 64)
	return FP128{v: *shifted}
}
