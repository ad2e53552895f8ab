package tranche

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/00labs/huma-contracts-v2-sub003/native/calendar"
)

type mockEngineState struct {
	pools map[string]*PoolState
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{pools: make(map[string]*PoolState)}
}

func (m *mockEngineState) GetPool(poolID string) (*PoolState, error) {
	return m.pools[poolID], nil
}

func (m *mockEngineState) PutPool(poolID string, pool *PoolState) error {
	m.pools[poolID] = pool
	return nil
}

func newTestEngine(state *mockEngineState, fees FeePolicy) *Engine {
	engine := NewEngine(FixedSeniorYieldPolicy{YieldBps: 800, Calendar: calendar.Thirty360{}}, fees)
	engine.SetState(state)
	engine.SetPoolID("default")
	return engine
}

func testPool(asOf time.Time) *PoolState {
	return &PoolState{
		Assets:  TrancheAssets{Senior: big.NewInt(300_000), Junior: big.NewInt(100_000)},
		Losses:  TrancheLosses{Senior: big.NewInt(0), Junior: big.NewInt(0)},
		Tracker: settledTracker(300_000, 5_000, asOf),
		Covers: []*FirstLossCoverState{
			testCover(10_000, 5_000, 30_000, 20_000),
		},
	}
}

func TestProcessProfitEndToEnd(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	state.pools["default"] = testPool(asOf)
	engine := newTestEngine(state, FeePolicy{ProtocolFeeBps: 1_000})

	receipt, err := engine.ProcessProfit(big.NewInt(10_000), asOf)
	if err != nil {
		t.Fatalf("process profit: %v", err)
	}

	if receipt.Fees.Protocol.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("unexpected protocol fee: %s", receipt.Fees.Protocol)
	}
	if receipt.SeniorProfit.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected senior profit: %s", receipt.SeniorProfit)
	}
	// net 9000 - senior 5000 = 4000 junior side, split over weight
	// junior 100000 + cover 10000*2x = 120000.
	if receipt.CoverProfits[0].Cmp(big.NewInt(666)) != 0 {
		t.Fatalf("unexpected cover profit: %s", receipt.CoverProfits[0])
	}
	if receipt.JuniorProfit.Cmp(big.NewInt(3_334)) != 0 {
		t.Fatalf("unexpected junior profit: %s", receipt.JuniorProfit)
	}

	pool := state.pools["default"]
	if pool.Assets.Senior.Cmp(big.NewInt(305_000)) != 0 {
		t.Fatalf("persisted senior assets: %s", pool.Assets.Senior)
	}
	if pool.Assets.Junior.Cmp(big.NewInt(103_334)) != 0 {
		t.Fatalf("persisted junior assets: %s", pool.Assets.Junior)
	}
	if pool.Covers[0].Asset.Cmp(big.NewInt(10_666)) != 0 {
		t.Fatalf("persisted cover assets: %s", pool.Covers[0].Asset)
	}
	if pool.Tracker.SeniorDebt.Cmp(pool.Assets.Senior) != 0 {
		t.Fatalf("tracker debt %s drifted from senior assets %s", pool.Tracker.SeniorDebt, pool.Assets.Senior)
	}
}

func TestProcessProfitRequiresInitialisedPool(t *testing.T) {
	engine := newTestEngine(newMockEngineState(), FeePolicy{})
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	if _, err := engine.ProcessProfit(big.NewInt(1), asOf); !errors.Is(err, errNilPool) {
		t.Fatalf("expected errNilPool, got %v", err)
	}
}

func TestProcessProfitRejectsNegative(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	state.pools["default"] = testPool(asOf)
	engine := newTestEngine(state, FeePolicy{})

	if _, err := engine.ProcessProfit(big.NewInt(-1), asOf); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("expected errInvalidAmount, got %v", err)
	}
	if _, err := engine.ProcessProfit(nil, asOf); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("expected errInvalidAmount for nil, got %v", err)
	}
}

func TestProcessLossThenRecoveryThroughEngine(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	state.pools["default"] = testPool(asOf)
	engine := newTestEngine(state, FeePolicy{})

	lossReceipt, err := engine.ProcessLoss(big.NewInt(120_000), asOf)
	if err != nil {
		t.Fatalf("process loss: %v", err)
	}
	// cover: min(120000*50%, cap 30000, assets 10000) = 10000
	if lossReceipt.CoverLosses[0].Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected cover loss: %s", lossReceipt.CoverLosses[0])
	}
	if lossReceipt.JuniorLoss.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("unexpected junior loss: %s", lossReceipt.JuniorLoss)
	}
	if lossReceipt.SeniorLoss.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected senior loss: %s", lossReceipt.SeniorLoss)
	}
	if lossReceipt.UncoveredLoss.Sign() != 0 {
		t.Fatalf("unexpected uncovered loss: %s", lossReceipt.UncoveredLoss)
	}

	pool := state.pools["default"]
	if pool.Tracker.SeniorDebt.Cmp(pool.Assets.Senior) != 0 {
		t.Fatalf("tracker debt not resynced after loss")
	}

	recoveryReceipt, err := engine.ProcessRecovery(big.NewInt(120_000), asOf)
	if err != nil {
		t.Fatalf("process recovery: %v", err)
	}
	if recoveryReceipt.SeniorRecovery.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected senior recovery: %s", recoveryReceipt.SeniorRecovery)
	}
	if recoveryReceipt.JuniorRecovery.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("unexpected junior recovery: %s", recoveryReceipt.JuniorRecovery)
	}
	if recoveryReceipt.RemainingRecovery.Sign() != 0 {
		t.Fatalf("unexpected remaining recovery: %s", recoveryReceipt.RemainingRecovery)
	}

	pool = state.pools["default"]
	if pool.Assets.Senior.Cmp(big.NewInt(300_000)) != 0 || pool.Assets.Junior.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("round trip did not restore assets: %+v", pool.Assets)
	}
	if pool.Covers[0].Asset.Cmp(big.NewInt(10_000)) != 0 || pool.Covers[0].CoveredLoss.Sign() != 0 {
		t.Fatalf("round trip did not restore cover: %+v", pool.Covers[0])
	}
}

func TestProcessLossReportsUncovered(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	state.pools["default"] = testPool(asOf)
	engine := newTestEngine(state, FeePolicy{})

	receipt, err := engine.ProcessLoss(big.NewInt(1_000_000), asOf)
	if err != nil {
		t.Fatalf("process loss: %v", err)
	}
	// Stack: 10000 cover + 100000 junior + 300000 senior = 410000.
	if receipt.UncoveredLoss.Cmp(big.NewInt(590_000)) != 0 {
		t.Fatalf("unexpected uncovered loss: %s", receipt.UncoveredLoss)
	}
}

func TestDepositSeniorRatioGuard(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	pool := testPool(asOf)
	pool.Assets = TrancheAssets{Senior: big.NewInt(0), Junior: big.NewInt(100)}
	pool.Tracker = settledTracker(0, 0, asOf)
	state.pools["default"] = pool
	engine := newTestEngine(state, FeePolicy{})
	engine.SetMaxSeniorJuniorRatio(4)

	if err := engine.DepositSenior(big.NewInt(401), asOf); !errors.Is(err, errSeniorRatio) {
		t.Fatalf("expected errSeniorRatio, got %v", err)
	}
	if err := engine.DepositSenior(big.NewInt(400), asOf); err != nil {
		t.Fatalf("deposit at ratio limit: %v", err)
	}
	updated := state.pools["default"]
	if updated.Assets.Senior.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("senior deposit not applied: %s", updated.Assets.Senior)
	}
	if updated.Tracker.SeniorDebt.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("tracker debt not updated: %s", updated.Tracker.SeniorDebt)
	}
}

func TestWithdrawJuniorRatioGuard(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	pool := testPool(asOf)
	pool.Assets = TrancheAssets{Senior: big.NewInt(400), Junior: big.NewInt(200)}
	state.pools["default"] = pool
	engine := newTestEngine(state, FeePolicy{})
	engine.SetMaxSeniorJuniorRatio(4)

	if err := engine.WithdrawJunior(big.NewInt(150)); !errors.Is(err, errSeniorRatio) {
		t.Fatalf("expected errSeniorRatio, got %v", err)
	}
	if err := engine.WithdrawJunior(big.NewInt(100)); err != nil {
		t.Fatalf("withdraw within ratio: %v", err)
	}
}

func TestDepositCoverLiquidityCap(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	pool := testPool(asOf)
	pool.Covers[0].Config.LiquidityCap = big.NewInt(15_000)
	state.pools["default"] = pool
	engine := newTestEngine(state, FeePolicy{})

	if err := engine.DepositCover(0, big.NewInt(5_001)); !errors.Is(err, errLiquidityCap) {
		t.Fatalf("expected errLiquidityCap, got %v", err)
	}
	if err := engine.DepositCover(0, big.NewInt(5_000)); err != nil {
		t.Fatalf("deposit at cap: %v", err)
	}
	if err := engine.DepositCover(2, big.NewInt(1)); !errors.Is(err, errUnknownCover) {
		t.Fatalf("expected errUnknownCover, got %v", err)
	}
}

func TestWithdrawCoverExposureGuard(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 10, 0, 0, 0, time.UTC)
	state := newMockEngineState()
	pool := testPool(asOf)
	pool.Covers[0].Asset = big.NewInt(100)
	pool.Covers[0].CoveredLoss = big.NewInt(40)
	state.pools["default"] = pool
	engine := newTestEngine(state, FeePolicy{})

	if err := engine.WithdrawCover(0, big.NewInt(70)); !errors.Is(err, errCoverExposure) {
		t.Fatalf("expected errCoverExposure, got %v", err)
	}
	if err := engine.WithdrawCover(0, big.NewInt(101)); !errors.Is(err, errInsufficientAssets) {
		t.Fatalf("expected errInsufficientAssets, got %v", err)
	}
	if err := engine.WithdrawCover(0, big.NewInt(60)); err != nil {
		t.Fatalf("withdraw above exposure: %v", err)
	}
	if state.pools["default"].Covers[0].Asset.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("cover assets after withdraw: %s", state.pools["default"].Covers[0].Asset)
	}
}
