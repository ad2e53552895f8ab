package tranche

import "math/big"

// CoverProfitResult reports how junior-side profit was split between the
// junior tranche and the first-loss covers. JuniorProfit plus the sum of
// CoverProfits always equals the allocated pool exactly: each cover share is
// truncated and the junior tranche absorbs the remainder.
type CoverProfitResult struct {
	JuniorProfit *big.Int
	CoverProfits []*big.Int
}

// AllocateJuniorProfit splits the junior profit pool across the junior
// tranche and each cover by risk-weighted asset share. A cover with a zero
// risk yield multiplier participates with zero weight: it earns nothing here
// but still stands in the loss waterfall.
func AllocateJuniorProfit(juniorProfit *big.Int, juniorAssets *big.Int, covers []*FirstLossCoverState) CoverProfitResult {
	pool := cloneAmount(juniorProfit)
	result := CoverProfitResult{
		JuniorProfit: cloneAmount(pool),
		CoverProfits: make([]*big.Int, len(covers)),
	}

	weights := make([]*big.Int, len(covers))
	totalWeight := cloneAmount(juniorAssets)
	for i, cover := range covers {
		weight := big.NewInt(0)
		if cover != nil {
			weight = bpsShare(cover.Asset, cover.Config.RiskYieldMultiplierBps)
		}
		weights[i] = weight
		totalWeight.Add(totalWeight, weight)
	}

	if totalWeight.Sign() == 0 || pool.Sign() <= 0 {
		for i := range result.CoverProfits {
			result.CoverProfits[i] = big.NewInt(0)
		}
		return result
	}

	allocated := big.NewInt(0)
	for i, weight := range weights {
		share := mulDiv(pool, weight, totalWeight)
		result.CoverProfits[i] = share
		allocated.Add(allocated, share)
	}
	result.JuniorProfit = new(big.Int).Sub(pool, allocated)
	return result
}
