package tranche

import "math/big"

// RecoveryResult reports how a recovery event was applied across the capital
// stack. Remaining carries any amount left after every outstanding loss has
// been repaid; it is returned to the caller, never discarded.
type RecoveryResult struct {
	// Assets is the tranche state after recovery.
	Assets TrancheAssets
	// Losses is the outstanding loss per tranche after recovery.
	Losses TrancheLosses
	// Covers is the updated cover stack.
	Covers []*FirstLossCoverState
	// SeniorRecovery and JuniorRecovery are this event's repayments.
	SeniorRecovery *big.Int
	JuniorRecovery *big.Int
	// CoverRecoveries records repayments per cover, indexed in stack order
	// even though recovery walks the stack in reverse.
	CoverRecoveries []*big.Int
	// Remaining is recovery in excess of all outstanding losses.
	Remaining *big.Int
}

// DistributeRecovery reverses prior loss absorption in the exact opposite
// order of DistributeLoss: the senior tranche recovers first, then junior,
// then the covers in reverse stack order (the last cover to absorb is the
// first repaid). Each leg is capped by its outstanding loss, so recovery can
// never push a loss tracker negative or restore more than was absorbed.
func DistributeRecovery(recovery *big.Int, assets TrancheAssets, losses TrancheLosses, covers []*FirstLossCoverState) RecoveryResult {
	remaining := cloneAmount(recovery)
	result := RecoveryResult{
		Assets:          assets.Clone(),
		Losses:          losses.Clone(),
		Covers:          cloneCovers(covers),
		CoverRecoveries: make([]*big.Int, len(covers)),
	}
	for i := range result.CoverRecoveries {
		result.CoverRecoveries[i] = big.NewInt(0)
	}

	result.SeniorRecovery = minAmount(remaining, result.Losses.Senior)
	remaining.Sub(remaining, result.SeniorRecovery)
	result.Losses.Senior.Sub(result.Losses.Senior, result.SeniorRecovery)
	result.Assets.Senior.Add(result.Assets.Senior, result.SeniorRecovery)

	result.JuniorRecovery = minAmount(remaining, result.Losses.Junior)
	remaining.Sub(remaining, result.JuniorRecovery)
	result.Losses.Junior.Sub(result.Losses.Junior, result.JuniorRecovery)
	result.Assets.Junior.Add(result.Assets.Junior, result.JuniorRecovery)

	for i := len(result.Covers) - 1; i >= 0; i-- {
		if remaining.Sign() == 0 {
			break
		}
		cover := result.Covers[i]
		recovered := minAmount(remaining, cover.CoveredLoss)
		cover.CoveredLoss.Sub(cover.CoveredLoss, recovered)
		cover.Asset.Add(cover.Asset, recovered)
		remaining.Sub(remaining, recovered)
		result.CoverRecoveries[i] = recovered
	}

	result.Remaining = remaining
	return result
}
