package fixedpoint

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	ferrors "flashbets/core/errors"
)

// fp128Scale is 2^128, the fractional scale of FP128.
var fp128Scale = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// FP128 is an unsigned Q128.128 fixed-point number: v represents v/2^128,
// using the full 256 bits a uint256.Int offers. Used wherever FP64's
// precision floor is insufficient: LMSR's running sum of exponentials,
// compounded vault coverage, and anywhere squared terms would otherwise
// lose significant bits.
type FP128 struct {
	v uint256.Int
}

func Zero128() FP128 { return FP128{} }

func One128() FP128 { return FP128{v: *fp128Scale} }

func FP128FromUint64(n uint64) FP128 {
	v := new(uint256.Int).Mul(uint256.NewInt(n), fp128Scale)
	return FP128{v: *v}
}

func FP128FromFloat64(f float64) (FP128, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return FP128{}, ferrors.Validation(ferrors.ErrInvalidInput)
	}
	scaled := new(big.Float).SetPrec(256).Mul(big.NewFloat(f), new(big.Float).SetInt(fp128Scale.ToBig()))
	i, _ := scaled.Int(nil)
	u, overflow := uint256.FromBig(i)
	if overflow {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP128{v: *u}, nil
}

func (a FP128) Float64() float64 {
	f := new(big.Float).SetPrec(256).SetInt(a.v.ToBig())
	f.Quo(f, new(big.Float).SetPrec(256).SetInt(fp128Scale.ToBig()))
	out, _ := f.Float64()
	return out
}

func (a FP128) Raw() uint256.Int { return a.v }

func FP128FromRaw(raw uint256.Int) FP128 { return FP128{v: raw} }

func (a FP128) IsZero() bool { return a.v.IsZero() }

func (a FP128) Cmp(b FP128) int { return a.v.Cmp(&b.v) }

func (a FP128) Equal(b FP128) bool { return a.v.Eq(&b.v) }

func (a FP128) LessThan(b FP128) bool { return a.v.Lt(&b.v) }

func (a FP128) GreaterThan(b FP128) bool { return a.v.Gt(&b.v) }

func (a FP128) Add(b FP128) (FP128, error) {
	out, overflow := new(uint256.Int).AddOverflow(&a.v, &b.v)
	if overflow {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP128{v: *out}, nil
}

func (a FP128) Sub(b FP128) (FP128, error) {
	if a.v.Lt(&b.v) {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrUnderflow)
	}
	var out uint256.Int
	out.Sub(&a.v, &b.v)
	return FP128{v: out}, nil
}

// Mul returns a*b rounded down. Because the 256-bit storage width is also
// the scale, the rescale-after-multiply primitive must use a 512-bit
// intermediate (MulDivOverflow) to avoid truncating the high word of the
// product before dividing back down by the scale.
func (a FP128) Mul(b FP128) (FP128, error) {
	product, overflow := new(uint256.Int).MulDivOverflow(&a.v, &b.v, fp128Scale)
	if overflow {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP128{v: *product}, nil
}

func (a FP128) Div(b FP128) (FP128, error) {
	if b.v.IsZero() {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrDivisionByZero)
	}
	quotient, overflow := new(uint256.Int).MulDivOverflow(&a.v, fp128Scale, &b.v)
	if overflow {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP128{v: *quotient}, nil
}

// Narrow truncates an FP128 down to FP64, erroring if the integer part no
// longer fits FP64's 128-bit storage width.
func (a FP128) Narrow() (FP64, error) {
	shifted := new(uint256.Int).Rsh(&a.v, 64)
	return FP64FromRaw(*shifted)
}

func (a FP128) String() string {
	return a.Float64Text()
}

func (a FP128) Float64Text() string {
	return big.NewFloat(a.Float64()).Text('f', 18)
}
