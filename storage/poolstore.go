package storage

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/00labs/huma-contracts-v2-sub003/native/tranche"
)

const poolKeyPrefix = "tranche/pool/"

// PoolStore persists per-pool settlement state as RLP blobs so every amount
// is stored as a fixed-width integer at the ledger scale; no floating point
// representation ever touches disk.
type PoolStore struct {
	db Database
}

// NewPoolStore wraps a Database with the pool state codec.
func NewPoolStore(db Database) *PoolStore {
	return &PoolStore{db: db}
}

type storedCover struct {
	Asset                  *big.Int
	CoveredLoss            *big.Int
	CoverRateBps           uint64
	CoverCapPerLoss        *big.Int
	RiskYieldMultiplierBps uint64
	LiquidityCap           *big.Int
}

type storedPool struct {
	SeniorAssets *big.Int
	JuniorAssets *big.Int
	SeniorLoss   *big.Int
	JuniorLoss   *big.Int
	SeniorDebt   *big.Int
	UnpaidYield  *big.Int
	LastUpdated  uint64
	Covers       []storedCover
}

func poolKey(poolID string) []byte {
	return []byte(poolKeyPrefix + poolID)
}

// GetPool loads the pool state for the identifier. A missing pool returns
// (nil, nil) so the engine can report its own uninitialised-pool error.
func (s *PoolStore) GetPool(poolID string) (*tranche.PoolState, error) {
	raw, err := s.db.Get(poolKey(poolID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedPool
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("storage: decode pool %s: %w", poolID, err)
	}

	pool := &tranche.PoolState{
		Assets: tranche.TrancheAssets{Senior: stored.SeniorAssets, Junior: stored.JuniorAssets},
		Losses: tranche.TrancheLosses{Senior: stored.SeniorLoss, Junior: stored.JuniorLoss},
		Tracker: &tranche.YieldTracker{
			SeniorDebt:  stored.SeniorDebt,
			UnpaidYield: stored.UnpaidYield,
		},
	}
	if stored.LastUpdated > 0 {
		pool.Tracker.LastUpdated = time.Unix(int64(stored.LastUpdated), 0).UTC()
	}
	for _, cover := range stored.Covers {
		pool.Covers = append(pool.Covers, &tranche.FirstLossCoverState{
			Asset:       cover.Asset,
			CoveredLoss: cover.CoveredLoss,
			Config: tranche.FirstLossCoverConfig{
				CoverRateBps:           cover.CoverRateBps,
				CoverCapPerLoss:        cover.CoverCapPerLoss,
				RiskYieldMultiplierBps: cover.RiskYieldMultiplierBps,
				LiquidityCap:           cover.LiquidityCap,
			},
		})
	}
	return pool, nil
}

// PutPool writes the pool state for the identifier.
func (s *PoolStore) PutPool(poolID string, pool *tranche.PoolState) error {
	if pool == nil {
		return fmt.Errorf("storage: nil pool state for %s", poolID)
	}
	snapshot := pool.Clone()
	stored := storedPool{
		SeniorAssets: snapshot.Assets.Senior,
		JuniorAssets: snapshot.Assets.Junior,
		SeniorLoss:   snapshot.Losses.Senior,
		JuniorLoss:   snapshot.Losses.Junior,
		SeniorDebt:   snapshot.Tracker.SeniorDebt,
		UnpaidYield:  snapshot.Tracker.UnpaidYield,
	}
	if !snapshot.Tracker.LastUpdated.IsZero() {
		stored.LastUpdated = uint64(snapshot.Tracker.LastUpdated.Unix())
	}
	for _, cover := range snapshot.Covers {
		stored.Covers = append(stored.Covers, storedCover{
			Asset:                  cover.Asset,
			CoveredLoss:            cover.CoveredLoss,
			CoverRateBps:           cover.Config.CoverRateBps,
			CoverCapPerLoss:        zeroIfNil(cover.Config.CoverCapPerLoss),
			RiskYieldMultiplierBps: cover.Config.RiskYieldMultiplierBps,
			LiquidityCap:           zeroIfNil(cover.Config.LiquidityCap),
		})
	}

	raw, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("storage: encode pool %s: %w", poolID, err)
	}
	return s.db.Put(poolKey(poolID), raw)
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
