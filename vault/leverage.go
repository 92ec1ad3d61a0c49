package vault

import "flashbets/fixedpoint"

// GlobalLeverageCeiling is the hard ceiling no position may exceed
// regardless of coverage, depth, or outcome cardinality.
const GlobalLeverageCeiling = 500

// MaxLeverage computes the maximum leverage a new position may use as the
// minimum of four independent gates: the coverage tier, the chain-depth
// multiplier, the outcome-cardinality tier, and the global ceiling.
func (v *Vault) MaxLeverage(depth int, outcomeCount int) (int, error) {
	coverage, err := v.Coverage()
	if err != nil {
		return 0, err
	}
	base := coverageTierCap(coverage)
	depthCap, err := depthMultiplierCap(depth)
	if err != nil {
		return 0, err
	}
	outcomeCap := outcomeTierCap(outcomeCount)

	max := base
	if depthCap < max {
		max = depthCap
	}
	if outcomeCap < max {
		max = outcomeCap
	}
	if GlobalLeverageCeiling < max {
		max = GlobalLeverageCeiling
	}
	return max, nil
}

// coverageTierCap maps the coverage scalar to a base leverage cap.
// Zero open interest reports Max64 as "infinite" coverage, which is its own
// bootstrap-only bucket (0), distinct from the >10 bucket below it.
func coverageTierCap(coverage fixedpoint.FP64) int {
	if coverage.Equal(fixedpoint.Max64()) {
		return 0
	}
	thresholds := []struct {
		above float64
		cap   int
	}{
		{10, 100},
		{5, 50},
		{2, 20},
		{1, 10},
	}
	for _, t := range thresholds {
		bound, err := fixedpoint.FP64FromFloat64(t.above)
		if err != nil {
			continue
		}
		if coverage.GreaterThan(bound) {
			return t.cap
		}
	}
	return 5
}

// depthMultiplierCap grows the base leverage cap modestly with chain depth:
// 100*(1+0.1*depth), floored to an integer. depth is the number of chained
// primitive operations below the current frame, bounded to [0,4] by the
// chain executor's own depth guard before this is ever called.
func depthMultiplierCap(depth int) (int, error) {
	if depth < 0 {
		depth = 0
	}
	base, err := fixedpoint.FP64FromFloat64(100)
	if err != nil {
		return 0, err
	}
	factor, err := fixedpoint.FP64FromFloat64(1 + 0.1*float64(depth))
	if err != nil {
		return 0, err
	}
	cap, err := base.Mul(factor)
	if err != nil {
		return 0, err
	}
	return int(cap.Float64()), nil
}

// outcomeTierCap maps a market's outcome count to its cardinality tier cap.
func outcomeTierCap(n int) int {
	switch {
	case n == 1:
		return 100
	case n == 2:
		return 70
	case n >= 3 && n <= 4:
		return 25
	case n >= 5 && n <= 8:
		return 15
	case n >= 9 && n <= 16:
		return 12
	case n >= 17 && n <= 64:
		return 10
	default:
		return 5
	}
}
