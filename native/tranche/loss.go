package tranche

import "math/big"

// LossResult reports how a loss event was absorbed across the capital stack.
// SeniorLoss + JuniorLoss + sum(CoverLosses) + Residual always equals the
// input loss exactly; no value is created or destroyed.
type LossResult struct {
	// Assets is the tranche state after absorption.
	Assets TrancheAssets
	// Losses is the outstanding loss per tranche after this event, including
	// any loss carried in from earlier events.
	Losses TrancheLosses
	// Covers is the updated cover stack.
	Covers []*FirstLossCoverState
	// SeniorLoss and JuniorLoss are this event's contribution only.
	SeniorLoss *big.Int
	JuniorLoss *big.Int
	// CoverLosses records this event's absorption per cover, in stack order.
	CoverLosses []*big.Int
	// Residual is loss the entire capital stack could not absorb. A non-zero
	// residual signals the pool is exhausted; it is reported, never clamped.
	Residual *big.Int
}

// DistributeLoss absorbs a loss across the capital stack in strict seniority
// order: first-loss covers in stack order (index zero is most subordinate),
// then the junior tranche, then the senior tranche. Each cover absorbs at
// most min(loss*coverRate, capPerLoss, its assets, remaining loss).
func DistributeLoss(loss *big.Int, assets TrancheAssets, losses TrancheLosses, covers []*FirstLossCoverState) LossResult {
	remaining := cloneAmount(loss)
	result := LossResult{
		Assets:      assets.Clone(),
		Losses:      losses.Clone(),
		Covers:      cloneCovers(covers),
		SeniorLoss:  big.NewInt(0),
		JuniorLoss:  big.NewInt(0),
		CoverLosses: make([]*big.Int, len(covers)),
	}

	for i, cover := range result.Covers {
		covered := big.NewInt(0)
		if remaining.Sign() > 0 {
			rated := bpsShare(remaining, cover.Config.CoverRateBps)
			covered = minAmount(rated, cover.Asset, remaining)
			// A zero cap means the cover is uncapped per loss event.
			if cap := cover.Config.CoverCapPerLoss; cap != nil && cap.Sign() > 0 && covered.Cmp(cap) > 0 {
				covered.Set(cap)
			}
		}
		cover.Asset.Sub(cover.Asset, covered)
		cover.CoveredLoss.Add(cover.CoveredLoss, covered)
		remaining.Sub(remaining, covered)
		result.CoverLosses[i] = covered
	}

	result.JuniorLoss = minAmount(remaining, result.Assets.Junior)
	remaining.Sub(remaining, result.JuniorLoss)
	result.Assets.Junior.Sub(result.Assets.Junior, result.JuniorLoss)
	result.Losses.Junior.Add(result.Losses.Junior, result.JuniorLoss)

	result.SeniorLoss = minAmount(remaining, result.Assets.Senior)
	remaining.Sub(remaining, result.SeniorLoss)
	result.Assets.Senior.Sub(result.Assets.Senior, result.SeniorLoss)
	result.Losses.Senior.Add(result.Losses.Senior, result.SeniorLoss)

	result.Residual = remaining
	return result
}
