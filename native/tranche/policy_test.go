package tranche

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/00labs/huma-contracts-v2-sub003/native/calendar"
)

func settledTracker(debt, unpaid int64, asOf time.Time) *YieldTracker {
	// LastUpdated sits on the boundary after asOf so Refresh is a no-op and
	// test amounts stay hand-checkable.
	return &YieldTracker{
		SeniorDebt:  big.NewInt(debt),
		UnpaidYield: big.NewInt(unpaid),
		LastUpdated: calendar.StartOfNextDay(asOf),
	}
}

func TestFixedSeniorYieldServicesUnpaidYieldFirst(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	policy := FixedSeniorYieldPolicy{YieldBps: 800, Calendar: calendar.Thirty360{}}
	assets := TrancheAssets{Senior: big.NewInt(300_000), Junior: big.NewInt(100_000)}

	result, err := policy.DistributeProfit(ProfitInput{
		Profit:  big.NewInt(20_000),
		Assets:  assets,
		Tracker: settledTracker(300_000, 5_000, asOf),
		AsOf:    asOf,
	})
	if err != nil {
		t.Fatalf("distribute profit: %v", err)
	}
	if result.SeniorProfit.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected senior profit: %s", result.SeniorProfit)
	}
	if result.JuniorProfit.Cmp(big.NewInt(15_000)) != 0 {
		t.Fatalf("unexpected junior profit: %s", result.JuniorProfit)
	}
	if result.Assets.Senior.Cmp(big.NewInt(305_000)) != 0 {
		t.Fatalf("unexpected senior assets: %s", result.Assets.Senior)
	}
	if result.Tracker.UnpaidYield.Sign() != 0 {
		t.Fatalf("unpaid yield not serviced: %s", result.Tracker.UnpaidYield)
	}
	if result.Tracker.SeniorDebt.Cmp(result.Assets.Senior) != 0 {
		t.Fatalf("tracker debt %s drifted from senior assets %s", result.Tracker.SeniorDebt, result.Assets.Senior)
	}
}

func TestFixedSeniorYieldCarriesShortfallForward(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	policy := FixedSeniorYieldPolicy{YieldBps: 800, Calendar: calendar.Thirty360{}}
	assets := TrancheAssets{Senior: big.NewInt(300_000), Junior: big.NewInt(100_000)}

	result, err := policy.DistributeProfit(ProfitInput{
		Profit:  big.NewInt(3_000),
		Assets:  assets,
		Tracker: settledTracker(300_000, 5_000, asOf),
		AsOf:    asOf,
	})
	if err != nil {
		t.Fatalf("distribute profit: %v", err)
	}
	if result.SeniorProfit.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("senior must never receive more than the period profit: %s", result.SeniorProfit)
	}
	if result.JuniorProfit.Sign() != 0 {
		t.Fatalf("unexpected junior profit: %s", result.JuniorProfit)
	}
	if result.Tracker.UnpaidYield.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("shortfall not carried forward: %s", result.Tracker.UnpaidYield)
	}
}

func TestFixedSeniorYieldZeroProfitStillAccrues(t *testing.T) {
	asOf := time.Date(2024, time.July, 1, 6, 0, 0, 0, time.UTC)
	policy := FixedSeniorYieldPolicy{YieldBps: 1000, Calendar: calendar.Thirty360{}}
	assets := TrancheAssets{Senior: big.NewInt(360_000), Junior: big.NewInt(100_000)}
	tracker := &YieldTracker{
		SeniorDebt:  big.NewInt(360_000),
		UnpaidYield: big.NewInt(0),
		LastUpdated: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}

	result, err := policy.DistributeProfit(ProfitInput{
		Profit:  big.NewInt(0),
		Assets:  assets,
		Tracker: tracker,
		AsOf:    asOf,
	})
	if err != nil {
		t.Fatalf("distribute profit: %v", err)
	}
	if result.Assets.Senior.Cmp(assets.Senior) != 0 || result.Assets.Junior.Cmp(assets.Junior) != 0 {
		t.Fatalf("zero profit changed assets: %+v", result.Assets)
	}
	// One convention day at 1000 bps on 360k debt.
	if result.Tracker.UnpaidYield.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected accrual on zero profit: %s", result.Tracker.UnpaidYield)
	}
}

func TestFixedSeniorYieldProfitConservation(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	policy := FixedSeniorYieldPolicy{YieldBps: 800, Calendar: calendar.Thirty360{}}
	for _, profit := range []int64{0, 1, 999, 5_000, 123_457} {
		assets := TrancheAssets{Senior: big.NewInt(300_000), Junior: big.NewInt(100_000)}
		result, err := policy.DistributeProfit(ProfitInput{
			Profit:  big.NewInt(profit),
			Assets:  assets,
			Tracker: settledTracker(300_000, 5_000, asOf),
			AsOf:    asOf,
		})
		if err != nil {
			t.Fatalf("profit %d: %v", profit, err)
		}
		want := big.NewInt(400_000 + profit)
		if result.Assets.Total().Cmp(want) != 0 {
			t.Fatalf("profit %d: total %s, want %s", profit, result.Assets.Total(), want)
		}
	}
}

func TestRiskAdjustedSplit(t *testing.T) {
	policy := RiskAdjustedPolicy{AdjustmentBps: 2_000}
	assets := TrancheAssets{Senior: big.NewInt(300_000), Junior: big.NewInt(100_000)}

	result, err := policy.DistributeProfit(ProfitInput{Profit: big.NewInt(10_000), Assets: assets})
	if err != nil {
		t.Fatalf("distribute profit: %v", err)
	}
	// Pro-rata senior share 7500, minus the 20% risk adjustment.
	if result.SeniorProfit.Cmp(big.NewInt(6_000)) != 0 {
		t.Fatalf("unexpected senior profit: %s", result.SeniorProfit)
	}
	if result.JuniorProfit.Cmp(big.NewInt(4_000)) != 0 {
		t.Fatalf("unexpected junior profit: %s", result.JuniorProfit)
	}
	total := new(big.Int).Add(result.SeniorProfit, result.JuniorProfit)
	if total.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("profit not conserved: %s", total)
	}
}

func TestRiskAdjustedFullAdjustment(t *testing.T) {
	policy := RiskAdjustedPolicy{AdjustmentBps: 10_000}
	assets := TrancheAssets{Senior: big.NewInt(300_000), Junior: big.NewInt(100_000)}

	result, err := policy.DistributeProfit(ProfitInput{Profit: big.NewInt(10_000), Assets: assets})
	if err != nil {
		t.Fatalf("distribute profit: %v", err)
	}
	if result.SeniorProfit.Sign() != 0 {
		t.Fatalf("full adjustment must route everything junior: %s", result.SeniorProfit)
	}
	if result.JuniorProfit.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected junior profit: %s", result.JuniorProfit)
	}
}

func TestRiskAdjustedEmptyPool(t *testing.T) {
	policy := RiskAdjustedPolicy{AdjustmentBps: 2_000}
	_, err := policy.DistributeProfit(ProfitInput{Profit: big.NewInt(10_000), Assets: TrancheAssets{}})
	if !errors.Is(err, ErrEmptyTranches) {
		t.Fatalf("expected ErrEmptyTranches, got %v", err)
	}
}
