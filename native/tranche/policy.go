package tranche

import (
	"errors"
	"math/big"
	"time"
)

// ErrEmptyTranches is returned when a proportional profit split is requested
// against a pool with zero total tranche assets. Callers must guard empty
// pools before invoking the waterfall.
var ErrEmptyTranches = errors.New("tranche: profit split requires non-zero tranche assets")

// ProfitInput carries the context for one period's profit distribution.
type ProfitInput struct {
	// Profit is the period profit net of fees.
	Profit *big.Int
	// Assets is the tranche state before distribution.
	Assets TrancheAssets
	// Tracker is the senior yield accrual state. The fixed senior yield
	// policy requires it; the risk adjusted policy passes it through.
	Tracker *YieldTracker
	// AsOf is the settlement timestamp used for accrual.
	AsOf time.Time
}

// ProfitResult reports how a period's profit was split between the tranches.
// SeniorProfit plus JuniorProfit always equals the input profit exactly.
type ProfitResult struct {
	Assets       TrancheAssets
	SeniorProfit *big.Int
	JuniorProfit *big.Int
	Tracker      *YieldTracker
}

// TranchePolicy is the profit-distribution strategy of a pool. The loss and
// recovery waterfalls are shared by all policies; only profit differs.
type TranchePolicy interface {
	DistributeProfit(input ProfitInput) (ProfitResult, error)
}

// FixedSeniorYieldPolicy pays the senior tranche a contractually fixed annual
// yield that accrues daily via the yield tracker regardless of when profit
// actually arrives. Profit first services the accrued unpaid yield; the rest
// goes to the junior side. Yield the period's profit cannot service carries
// forward as unpaid yield.
type FixedSeniorYieldPolicy struct {
	YieldBps uint64
	Calendar Calendar
}

// DistributeProfit implements TranchePolicy. Accrual runs even when the
// period profit is zero so yield keeps growing between profitable periods.
func (p FixedSeniorYieldPolicy) DistributeProfit(input ProfitInput) (ProfitResult, error) {
	assets := input.Assets.Clone()
	tracker, err := input.Tracker.Refresh(input.AsOf, p.YieldBps, p.Calendar)
	if err != nil {
		return ProfitResult{}, err
	}

	profit := cloneAmount(input.Profit)
	seniorProfit := minAmount(profit, tracker.UnpaidYield)
	juniorProfit := new(big.Int).Sub(profit, seniorProfit)

	tracker.UnpaidYield.Sub(tracker.UnpaidYield, seniorProfit)
	assets.Senior.Add(assets.Senior, seniorProfit)
	assets.Junior.Add(assets.Junior, juniorProfit)
	tracker.SeniorDebt = new(big.Int).Set(assets.Senior)

	return ProfitResult{
		Assets:       assets,
		SeniorProfit: seniorProfit,
		JuniorProfit: juniorProfit,
		Tracker:      tracker,
	}, nil
}

// AccrueYield refreshes the tracker without distributing profit. The engine
// uses it around senior tranche flows so deposits and withdrawals settle
// against fully accrued yield.
func (p FixedSeniorYieldPolicy) AccrueYield(tracker *YieldTracker, asOf time.Time) (*YieldTracker, error) {
	return tracker.Refresh(asOf, p.YieldBps, p.Calendar)
}

// RiskAdjustedPolicy splits profit pro rata by tranche assets and then moves
// a configured fraction of the senior share to the junior tranche as
// compensation for carrying subordination risk.
type RiskAdjustedPolicy struct {
	AdjustmentBps uint64
}

// DistributeProfit implements TranchePolicy. It fails with ErrEmptyTranches
// when both tranches are empty since the pro-rata split is undefined.
func (p RiskAdjustedPolicy) DistributeProfit(input ProfitInput) (ProfitResult, error) {
	assets := input.Assets.Clone()
	total := assets.Total()
	if total.Sign() == 0 {
		return ProfitResult{}, ErrEmptyTranches
	}

	profit := cloneAmount(input.Profit)
	seniorShare := mulDiv(profit, assets.Senior, total)
	adjustment := uint64(0)
	if p.AdjustmentBps < 10_000 {
		adjustment = 10_000 - p.AdjustmentBps
	}
	seniorProfit := bpsShare(seniorShare, adjustment)
	juniorProfit := new(big.Int).Sub(profit, seniorProfit)

	assets.Senior.Add(assets.Senior, seniorProfit)
	assets.Junior.Add(assets.Junior, juniorProfit)

	return ProfitResult{
		Assets:       assets,
		SeniorProfit: seniorProfit,
		JuniorProfit: juniorProfit,
		Tracker:      input.Tracker.Clone(),
	}, nil
}
