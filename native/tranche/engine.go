package tranche

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/00labs/huma-contracts-v2-sub003/observability"
)

var (
	errNilState           = errors.New("tranche engine: state not configured")
	errNilPool            = errors.New("tranche engine: pool not initialised")
	errPoolNotConfigured  = errors.New("tranche engine: pool identifier not configured")
	errNoPolicy           = errors.New("tranche engine: tranche policy not configured")
	errInvalidAmount      = errors.New("tranche engine: amount must be non-negative")
	errUnknownCover       = errors.New("tranche engine: cover index out of range")
	errLiquidityCap       = errors.New("tranche engine: cover liquidity cap exceeded")
	errCoverExposure      = errors.New("tranche engine: withdrawal below outstanding covered loss")
	errSeniorRatio        = errors.New("tranche engine: senior to junior ratio exceeded")
	errInsufficientAssets = errors.New("tranche engine: insufficient tranche assets")
)

// SettlementKind labels the event applied by a settlement call.
type SettlementKind string

const (
	SettlementProfit   SettlementKind = "profit"
	SettlementLoss     SettlementKind = "loss"
	SettlementRecovery SettlementKind = "recovery"
)

// SettlementReceipt records the full breakdown of one settlement call so the
// surrounding bookkeeping can persist or surface it. Only the fields for the
// receipt's Kind are populated.
type SettlementReceipt struct {
	ID     string
	Pool   string
	Kind   SettlementKind
	AsOf   time.Time
	Amount *big.Int

	Fees         *FeeResult
	SeniorProfit *big.Int
	JuniorProfit *big.Int
	CoverProfits []*big.Int

	SeniorLoss    *big.Int
	JuniorLoss    *big.Int
	CoverLosses   []*big.Int
	UncoveredLoss *big.Int

	SeniorRecovery    *big.Int
	JuniorRecovery    *big.Int
	CoverRecoveries   []*big.Int
	RemainingRecovery *big.Int
}

type engineState interface {
	GetPool(poolID string) (*PoolState, error)
	PutPool(poolID string, pool *PoolState) error
}

// yieldAccruer is implemented by policies that maintain time-based accrual
// state. The engine refreshes such policies on senior tranche flows so the
// tracked debt never drifts from the senior assets.
type yieldAccruer interface {
	AccrueYield(tracker *YieldTracker, asOf time.Time) (*YieldTracker, error)
}

// Engine orchestrates the settlement state transitions for a tranched pool:
// profit, loss, and recovery events plus the tranche and cover liquidity
// flows around them. Every operation loads the pool, applies the pure
// waterfall functions, and persists the result; calls against the same pool
// must be serialised by the caller.
type Engine struct {
	state   engineState
	poolID  string
	policy  TranchePolicy
	fees    FeePolicy
	ratio   uint64
	metrics *observability.SettlementMetrics
}

// NewEngine constructs an engine with the supplied profit policy and fee
// configuration.
func NewEngine(policy TranchePolicy, fees FeePolicy) *Engine {
	return &Engine{
		policy:  policy,
		fees:    fees,
		metrics: observability.Settlements(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetPoolID assigns the pool identifier that subsequent operations will
// operate against.
func (e *Engine) SetPoolID(poolID string) {
	if e == nil {
		return
	}
	e.poolID = strings.TrimSpace(poolID)
}

// PoolID returns the currently configured pool identifier.
func (e *Engine) PoolID() string {
	if e == nil {
		return ""
	}
	return e.poolID
}

// SetPolicy swaps the profit distribution policy.
func (e *Engine) SetPolicy(policy TranchePolicy) {
	if e == nil {
		return
	}
	e.policy = policy
}

// SetMaxSeniorJuniorRatio bounds the senior tranche at ratio times the junior
// tranche on senior deposits and junior withdrawals. Zero disables the guard.
func (e *Engine) SetMaxSeniorJuniorRatio(ratio uint64) {
	if e == nil {
		return
	}
	e.ratio = ratio
}

// Pool returns a deep copy of the configured pool's current state.
func (e *Engine) Pool() (*PoolState, error) {
	return e.ensurePool()
}

// ProcessProfit settles one period's gross profit: fees come off the top,
// the tranche policy splits the remainder, and the junior side is then shared
// with the first-loss covers by risk-weighted assets. A zero profit is valid
// and still advances yield accrual.
func (e *Engine) ProcessProfit(gross *big.Int, asOf time.Time) (*SettlementReceipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.policy == nil {
		return nil, errNoPolicy
	}
	if gross == nil || gross.Sign() < 0 {
		return nil, errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return nil, err
	}

	feeResult := e.fees.ApplyFees(gross)
	profitResult, err := e.policy.DistributeProfit(ProfitInput{
		Profit:  feeResult.Net,
		Assets:  pool.Assets,
		Tracker: pool.Tracker,
		AsOf:    asOf,
	})
	if err != nil {
		e.metrics.RecordSettlement(e.poolID, string(SettlementProfit), "error", nil)
		return nil, err
	}

	coverResult := AllocateJuniorProfit(profitResult.JuniorProfit, pool.Assets.Junior, pool.Covers)

	pool.Assets = profitResult.Assets
	pool.Tracker = profitResult.Tracker
	pool.Covers = cloneCovers(pool.Covers)
	for i, share := range coverResult.CoverProfits {
		if share.Sign() == 0 {
			continue
		}
		pool.Assets.Junior.Sub(pool.Assets.Junior, share)
		pool.Covers[i].Asset.Add(pool.Covers[i].Asset, share)
	}

	if err := e.state.PutPool(e.poolID, pool); err != nil {
		return nil, err
	}

	e.metrics.RecordSettlement(e.poolID, string(SettlementProfit), "ok", gross)
	return &SettlementReceipt{
		ID:           uuid.NewString(),
		Pool:         e.poolID,
		Kind:         SettlementProfit,
		AsOf:         asOf,
		Amount:       cloneAmount(gross),
		Fees:         &feeResult,
		SeniorProfit: profitResult.SeniorProfit,
		JuniorProfit: coverResult.JuniorProfit,
		CoverProfits: coverResult.CoverProfits,
	}, nil
}

// ProcessLoss absorbs a loss event across the capital stack. Loss the stack
// cannot absorb is reported in the receipt's UncoveredLoss; it is a terminal
// pool condition the caller must surface, never an error.
func (e *Engine) ProcessLoss(loss *big.Int, asOf time.Time) (*SettlementReceipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if loss == nil || loss.Sign() < 0 {
		return nil, errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return nil, err
	}

	result := DistributeLoss(loss, pool.Assets, pool.Losses, pool.Covers)
	pool.Assets = result.Assets
	pool.Losses = result.Losses
	pool.Covers = result.Covers
	pool.Tracker.SeniorDebt = new(big.Int).Set(pool.Assets.Senior)

	if err := e.state.PutPool(e.poolID, pool); err != nil {
		return nil, err
	}

	e.metrics.RecordSettlement(e.poolID, string(SettlementLoss), "ok", loss)
	if result.Residual.Sign() > 0 {
		e.metrics.RecordUncoveredLoss(e.poolID, result.Residual)
	}
	return &SettlementReceipt{
		ID:            uuid.NewString(),
		Pool:          e.poolID,
		Kind:          SettlementLoss,
		AsOf:          asOf,
		Amount:        cloneAmount(loss),
		SeniorLoss:    result.SeniorLoss,
		JuniorLoss:    result.JuniorLoss,
		CoverLosses:   result.CoverLosses,
		UncoveredLoss: result.Residual,
	}, nil
}

// ProcessRecovery reverses previously absorbed loss across the stack in the
// opposite order of ProcessLoss. Recovery in excess of all outstanding losses
// is reported in RemainingRecovery for the caller to redirect.
func (e *Engine) ProcessRecovery(recovery *big.Int, asOf time.Time) (*SettlementReceipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if recovery == nil || recovery.Sign() < 0 {
		return nil, errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return nil, err
	}

	result := DistributeRecovery(recovery, pool.Assets, pool.Losses, pool.Covers)
	pool.Assets = result.Assets
	pool.Losses = result.Losses
	pool.Covers = result.Covers
	pool.Tracker.SeniorDebt = new(big.Int).Set(pool.Assets.Senior)

	if err := e.state.PutPool(e.poolID, pool); err != nil {
		return nil, err
	}

	e.metrics.RecordSettlement(e.poolID, string(SettlementRecovery), "ok", recovery)
	if result.Remaining.Sign() > 0 {
		e.metrics.RecordExcessRecovery(e.poolID, result.Remaining)
	}
	return &SettlementReceipt{
		ID:                uuid.NewString(),
		Pool:              e.poolID,
		Kind:              SettlementRecovery,
		AsOf:              asOf,
		Amount:            cloneAmount(recovery),
		SeniorRecovery:    result.SeniorRecovery,
		JuniorRecovery:    result.JuniorRecovery,
		CoverRecoveries:   result.CoverRecoveries,
		RemainingRecovery: result.Remaining,
	}, nil
}

// DepositSenior adds liquidity to the senior tranche, refreshing yield
// accrual first so the new principal only earns from the next day.
func (e *Engine) DepositSenior(amount *big.Int, asOf time.Time) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return err
	}

	if e.ratio > 0 {
		projected := new(big.Int).Add(pool.Assets.Senior, amount)
		limit := new(big.Int).Mul(pool.Assets.Junior, new(big.Int).SetUint64(e.ratio))
		if projected.Cmp(limit) > 0 {
			return errSeniorRatio
		}
	}

	if err := e.refreshTracker(pool, asOf); err != nil {
		return err
	}
	pool.Assets.Senior.Add(pool.Assets.Senior, amount)
	pool.Tracker.AddSeniorDebt(amount)

	return e.state.PutPool(e.poolID, pool)
}

// WithdrawSenior removes liquidity from the senior tranche.
func (e *Engine) WithdrawSenior(amount *big.Int, asOf time.Time) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	if pool.Assets.Senior.Cmp(amount) < 0 {
		return errInsufficientAssets
	}

	if err := e.refreshTracker(pool, asOf); err != nil {
		return err
	}
	pool.Assets.Senior.Sub(pool.Assets.Senior, amount)
	pool.Tracker.SubSeniorDebt(amount)

	return e.state.PutPool(e.poolID, pool)
}

// DepositJunior adds liquidity to the junior tranche.
func (e *Engine) DepositJunior(amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	pool.Assets.Junior.Add(pool.Assets.Junior, amount)
	return e.state.PutPool(e.poolID, pool)
}

// WithdrawJunior removes liquidity from the junior tranche, keeping the
// senior tranche within the configured ratio of the remaining junior assets.
func (e *Engine) WithdrawJunior(amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	if pool.Assets.Junior.Cmp(amount) < 0 {
		return errInsufficientAssets
	}

	if e.ratio > 0 {
		remaining := new(big.Int).Sub(pool.Assets.Junior, amount)
		limit := new(big.Int).Mul(remaining, new(big.Int).SetUint64(e.ratio))
		if pool.Assets.Senior.Cmp(limit) > 0 {
			return errSeniorRatio
		}
	}

	pool.Assets.Junior.Sub(pool.Assets.Junior, amount)
	return e.state.PutPool(e.poolID, pool)
}

// DepositCover adds assets to the cover at the given stack index, bounded by
// the cover's liquidity cap when one is configured.
func (e *Engine) DepositCover(index int, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(pool.Covers) {
		return errUnknownCover
	}

	cover := pool.Covers[index]
	projected := new(big.Int).Add(cover.Asset, amount)
	if cap := cover.Config.LiquidityCap; cap != nil && cap.Sign() > 0 && projected.Cmp(cap) > 0 {
		return errLiquidityCap
	}
	cover.Asset = projected

	return e.state.PutPool(e.poolID, pool)
}

// WithdrawCover removes assets from the cover at the given stack index. While
// the cover carries outstanding covered loss, enough assets must remain to
// match that exposure.
func (e *Engine) WithdrawCover(index int, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(pool.Covers) {
		return errUnknownCover
	}

	cover := pool.Covers[index]
	if cover.Asset.Cmp(amount) < 0 {
		return errInsufficientAssets
	}
	remaining := new(big.Int).Sub(cover.Asset, amount)
	if cover.CoveredLoss.Sign() > 0 && remaining.Cmp(cover.CoveredLoss) < 0 {
		return errCoverExposure
	}
	cover.Asset = remaining

	return e.state.PutPool(e.poolID, pool)
}

func (e *Engine) refreshTracker(pool *PoolState, asOf time.Time) error {
	accruer, ok := e.policy.(yieldAccruer)
	if !ok {
		return nil
	}
	tracker, err := accruer.AccrueYield(pool.Tracker, asOf)
	if err != nil {
		return err
	}
	pool.Tracker = tracker
	return nil
}

func (e *Engine) ensurePool() (*PoolState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if strings.TrimSpace(e.poolID) == "" {
		return nil, errPoolNotConfigured
	}
	pool, err := e.state.GetPool(e.poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errNilPool
	}
	return pool.Clone(), nil
}
