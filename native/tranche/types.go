package tranche

import (
	"math/big"
	"time"
)

// Calendar abstracts the day-count convention the yield tracker accrues
// against. The standard implementation lives in native/calendar.
type Calendar interface {
	// DaysDiff returns the whole number of convention days between two dates.
	DaysDiff(start, end time.Time) (int, error)
	// StartOfNextDay returns the day boundary strictly after the timestamp.
	StartOfNextDay(ts time.Time) time.Time
	// DaysInYear reports the convention year length.
	DaysInYear() int
}

// TrancheAssets captures the current net asset value of both tranches. Amount
// values are expressed as big integers at a single fixed scale to match the
// on-ledger precision.
type TrancheAssets struct {
	// Senior is the senior tranche net asset value.
	Senior *big.Int
	// Junior is the junior tranche net asset value.
	Junior *big.Int
}

// Clone returns a deep copy with nil amounts normalised to zero.
func (a TrancheAssets) Clone() TrancheAssets {
	return TrancheAssets{
		Senior: cloneAmount(a.Senior),
		Junior: cloneAmount(a.Junior),
	}
}

// Total returns senior plus junior assets.
func (a TrancheAssets) Total() *big.Int {
	total := cloneAmount(a.Senior)
	if a.Junior != nil {
		total.Add(total, a.Junior)
	}
	return total
}

// TrancheLosses tracks the outstanding, not yet recovered loss carried by
// each tranche. Recovery can repay at most these amounts.
type TrancheLosses struct {
	Senior *big.Int
	Junior *big.Int
}

// Clone returns a deep copy with nil amounts normalised to zero.
func (l TrancheLosses) Clone() TrancheLosses {
	return TrancheLosses{
		Senior: cloneAmount(l.Senior),
		Junior: cloneAmount(l.Junior),
	}
}

// FirstLossCoverConfig groups the pool-configuration parameters of a single
// first-loss cover reserve. All rates are expressed in basis points.
type FirstLossCoverConfig struct {
	// CoverRateBps bounds the share of a single loss event this cover absorbs.
	CoverRateBps uint64
	// CoverCapPerLoss bounds the absolute amount absorbed per loss event.
	CoverCapPerLoss *big.Int
	// RiskYieldMultiplierBps weights the cover's assets when junior-side
	// profit is allocated. Zero weight excludes the cover from profit while
	// keeping it in the loss waterfall.
	RiskYieldMultiplierBps uint64
	// LiquidityCap bounds the total assets providers may deposit.
	LiquidityCap *big.Int
}

// Clone returns a deep copy of the configuration.
func (c FirstLossCoverConfig) Clone() FirstLossCoverConfig {
	clone := c
	if c.CoverCapPerLoss != nil {
		clone.CoverCapPerLoss = new(big.Int).Set(c.CoverCapPerLoss)
	}
	if c.LiquidityCap != nil {
		clone.LiquidityCap = new(big.Int).Set(c.LiquidityCap)
	}
	return clone
}

// FirstLossCoverState is the mutable state of one cover reserve. Covers live
// in an ordered slice where index zero is the most subordinate; the order is
// fixed at pool configuration time and is load-bearing for both waterfalls.
type FirstLossCoverState struct {
	// Asset is the cover's current asset balance.
	Asset *big.Int
	// CoveredLoss accumulates loss currently outstanding against this cover.
	// It is the ceiling for how much a later recovery may repay.
	CoveredLoss *big.Int
	// Config holds the immutable cover parameters.
	Config FirstLossCoverConfig
}

// Clone returns a deep copy with nil amounts normalised to zero.
func (c *FirstLossCoverState) Clone() *FirstLossCoverState {
	if c == nil {
		return &FirstLossCoverState{Asset: big.NewInt(0), CoveredLoss: big.NewInt(0)}
	}
	return &FirstLossCoverState{
		Asset:       cloneAmount(c.Asset),
		CoveredLoss: cloneAmount(c.CoveredLoss),
		Config:      c.Config.Clone(),
	}
}

func cloneCovers(covers []*FirstLossCoverState) []*FirstLossCoverState {
	if len(covers) == 0 {
		return nil
	}
	out := make([]*FirstLossCoverState, len(covers))
	for i, cover := range covers {
		out[i] = cover.Clone()
	}
	return out
}

// YieldTracker is the senior fixed-yield accrual state machine. SeniorDebt is
// kept in lockstep with TrancheAssets.Senior; UnpaidYield is yield accrued
// but not yet paid out of profit. LastUpdated is always a day boundary.
type YieldTracker struct {
	SeniorDebt  *big.Int
	UnpaidYield *big.Int
	LastUpdated time.Time
}

// Clone returns a deep copy with nil amounts normalised to zero.
func (t *YieldTracker) Clone() *YieldTracker {
	if t == nil {
		return &YieldTracker{SeniorDebt: big.NewInt(0), UnpaidYield: big.NewInt(0)}
	}
	return &YieldTracker{
		SeniorDebt:  cloneAmount(t.SeniorDebt),
		UnpaidYield: cloneAmount(t.UnpaidYield),
		LastUpdated: t.LastUpdated,
	}
}

// PoolState aggregates the long-lived settlement state persisted per pool.
type PoolState struct {
	Assets  TrancheAssets
	Losses  TrancheLosses
	Tracker *YieldTracker
	Covers  []*FirstLossCoverState
}

// Clone returns a deep copy of the pool state.
func (p *PoolState) Clone() *PoolState {
	if p == nil {
		return nil
	}
	return &PoolState{
		Assets:  p.Assets.Clone(),
		Losses:  p.Losses.Clone(),
		Tracker: p.Tracker.Clone(),
		Covers:  cloneCovers(p.Covers),
	}
}
