package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"

	ferrors "flashbets/core/errors"
)

// Sqrt computes floor(sqrt(x)) exactly using math/big's arbitrary-precision
// integer square root (no iteration count, no convergence tolerance), then
// rescales back into FP128. Grounded on the volatility and L2-engine square
// root impact terms in math.rs, but made exact rather than float64-based so
// liquidation volatility bands and L2 impact factors are bit-reproducible.
func Sqrt(x FP128) (FP128, error) {
	v := x.Raw().ToBig()
	if v.Sign() == 0 {
		return FP128{}, nil
	}
	product := new(big.Int).Mul(v, fp128Scale.ToBig())
	root := new(big.Int).Sqrt(product)
	raw, overflow := uint256.FromBig(root)
	if overflow {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}
	return FP128{v: *raw}, nil
}

// Pow computes base^exponent for base > 0 via exp(exponent * ln(base)).
// exponentNegative carries the exponent's sign, so base can be raised to
// powers both above and below 1.
func Pow(base FP128, exponent FP128, exponentNegative bool) (FP128, error) {
	lnBase, baseNeg, err := Ln(base)
	if err != nil {
		return FP128{}, err
	}
	productMag, err := lnBase.Mul(exponent)
	if err != nil {
		return FP128{}, err
	}
	productNeg := baseNeg != exponentNegative
	if productNeg {
		return ExpNeg(productMag)
	}
	return Exp(productMag)
}
