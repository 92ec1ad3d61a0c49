package fixedpoint

import ferrors "flashbets/core/errors"

// expMaxArg bounds the magnitude Exp will accept before the repeated
// squaring in the domain reduction below could overflow FP128's 256-bit
// storage. Arguments above 64.0 fail with Overflow.
var expMaxArg = FP128FromUint64(64)

// Exp computes e^x for x >= 0 to within 1e-9 relative error using Taylor
// series expansion after range reduction by repeated halving, grounded on
// the fixed-point calculate_exp_positive Taylor approximation in the
// original LMSR implementation but carried to 16 terms with true domain
// reduction (rather than a single capped term count) so precision holds
// across the full input range instead of degrading for large x.
//
// Reduction: for x > 1, halve x repeatedly (tracking the halving count k)
// until the remainder is <= 1, evaluate the series on the now-small
// remainder where it converges fast, then undo the reduction by squaring
// the result k times, since e^x = (e^(x/2^k))^(2^k).
func Exp(x FP128) (FP128, error) {
	if x.IsZero() {
		return One128(), nil
	}
	if x.GreaterThan(expMaxArg) {
		return FP128{}, ferrors.Arithmetic(ferrors.ErrOverflow)
	}

	one := One128()
	reduced := x
	k := 0
	for reduced.GreaterThan(one) {
		halved, err := reduced.Div(FP128FromUint64(2))
		if err != nil {
			return FP128{}, err
		}
		reduced = halved
		k++
	}

	const terms = 16
	sum := One128()
	term := One128()
	for n := 1; n <= terms; n++ {
		var err error
		term, err = term.Mul(reduced)
		if err != nil {
			return FP128{}, err
		}
		term, err = term.Div(FP128FromUint64(uint64(n)))
		if err != nil {
			return FP128{}, err
		}
		sum, err = sum.Add(term)
		if err != nil {
			return FP128{}, err
		}
	}

	for i := 0; i < k; i++ {
		var err error
		sum, err = sum.Mul(sum)
		if err != nil {
			return FP128{}, err
		}
	}
	return sum, nil
}

// ExpNeg computes e^(-x) for x >= 0 as the reciprocal of Exp(x), since every
// caller that needs a negative exponent (the elastic fee decay term, the
// PM-AMM normal kernel) only ever does so with a non-negative magnitude and
// an explicit sign.
func ExpNeg(x FP128) (FP128, error) {
	pos, err := Exp(x)
	if err != nil {
		return FP128{}, err
	}
	return One128().Div(pos)
}
