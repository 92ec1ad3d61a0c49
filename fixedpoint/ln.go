package fixedpoint

import (
	"math"

	ferrors "flashbets/core/errors"
)

// Ln computes the natural logarithm of x > 0, returning the magnitude and
// whether the true result is negative (x < 1). FP128 is unsigned, so a
// signed quantity like ln(x) for x < 1 is returned as (magnitude, negative)
// rather than forcing a separate signed fixed-point type through the one
// call site that needs it.
//
// The seed comes from math.Log on the float64 approximation of x, which
// IEEE-754 guarantees is bit-reproducible for identical inputs across
// conforming platforms; three fixed-point Newton-Raphson corrections then
// sharpen that seed using Exp, so the residual error is bounded by FP128's
// own arithmetic precision rather than float64's ~15 significant digits.
// Grounded on the same Taylor/Newton machinery calculate_exp_positive uses,
// applied in reverse since the original source never needed ln directly.
func Ln(x FP128) (magnitude FP128, negative bool, err error) {
	if x.IsZero() {
		return FP128{}, false, ferrors.Arithmetic(ferrors.ErrDivisionByZero)
	}
	if x.Equal(One128()) {
		return FP128{}, false, nil
	}

	seed := math.Log(x.Float64())
	neg := seed < 0
	if neg {
		seed = -seed
	}
	y, err := FP128FromFloat64(seed)
	if err != nil {
		return FP128{}, false, err
	}

	for i := 0; i < 3; i++ {
		var ey FP128
		if neg {
			ey, err = ExpNeg(y)
		} else {
			ey, err = Exp(y)
		}
		if err != nil {
			return FP128{}, false, err
		}
		// Newton step on f(y) = e^y - x: y_{n+1} = y_n + x*e^(-y_n) - 1.
		xOverEy, err := x.Div(ey)
		if err != nil {
			return FP128{}, false, err
		}
		correction, err := xOverEy.Sub(One128())
		residualNeg := false
		if err != nil {
			// xOverEy < 1: subtract the other way and flag the sign.
			correction, err = One128().Sub(xOverEy)
			if err != nil {
				return FP128{}, false, err
			}
			residualNeg = true
		}
		y, neg, err = addSigned(y, neg, correction, residualNeg)
		if err != nil {
			return FP128{}, false, err
		}
	}
	return y, neg, nil
}

// addSigned adds two magnitude/sign pairs, used by Ln's Newton iteration
// where both the running estimate and the correction term may be negative.
func addSigned(aMag FP128, aNeg bool, bMag FP128, bNeg bool) (FP128, bool, error) {
	if aNeg == bNeg {
		sum, err := aMag.Add(bMag)
		return sum, aNeg, err
	}
	if aMag.GreaterThan(bMag) || aMag.Equal(bMag) {
		diff, err := aMag.Sub(bMag)
		return diff, aNeg, err
	}
	diff, err := bMag.Sub(aMag)
	return diff, bNeg, err
}
