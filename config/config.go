package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/00labs/huma-contracts-v2-sub003/native/tranche"
)

// maxCovers bounds the first-loss cover stack; the waterfall iterates the
// stack per loss event so the size is capped at configuration time.
const maxCovers = 16

// PolicyFixed and PolicyRiskAdjusted are the accepted TranchePolicy labels.
const (
	PolicyFixed        = "fixed"
	PolicyRiskAdjusted = "riskadjusted"
)

// Cover configures one first-loss cover reserve. Stack order in the config
// file is priority order: the first entry absorbs loss first.
type Cover struct {
	CoverRateBps           uint64 `toml:"CoverRateBps"`
	CoverCapPerLoss        string `toml:"CoverCapPerLoss"`
	RiskYieldMultiplierBps uint64 `toml:"RiskYieldMultiplierBps"`
	LiquidityCap           string `toml:"LiquidityCap"`
}

// Pool is the on-disk pool configuration.
type Pool struct {
	PoolID               string  `toml:"PoolID"`
	TranchePolicy        string  `toml:"TranchePolicy"`
	FixedSeniorYieldBps  uint64  `toml:"FixedSeniorYieldBps"`
	RiskAdjustmentBps    uint64  `toml:"RiskAdjustmentBps"`
	MaxSeniorJuniorRatio uint64  `toml:"MaxSeniorJuniorRatio"`
	ProtocolFeeBps       uint64  `toml:"ProtocolFeeBps"`
	OwnerRewardBps       uint64  `toml:"OwnerRewardBps"`
	AgentRewardBps       uint64  `toml:"AgentRewardBps"`
	DataDir              string  `toml:"DataDir"`
	Covers               []Cover `toml:"cover"`
}

// Load reads the pool configuration from the given path, creating a default
// file when none exists.
func Load(path string) (*Pool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Pool{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the rate and stack bounds the engine assumes.
func (cfg *Pool) Validate() error {
	if cfg.PoolID == "" {
		return fmt.Errorf("config: PoolID is required")
	}
	switch cfg.TranchePolicy {
	case PolicyFixed, PolicyRiskAdjusted:
	default:
		return fmt.Errorf("config: unknown TranchePolicy %q", cfg.TranchePolicy)
	}
	if cfg.FixedSeniorYieldBps > 10_000 {
		return fmt.Errorf("config: FixedSeniorYieldBps %d exceeds 10000", cfg.FixedSeniorYieldBps)
	}
	if cfg.RiskAdjustmentBps > 10_000 {
		return fmt.Errorf("config: RiskAdjustmentBps %d exceeds 10000", cfg.RiskAdjustmentBps)
	}
	if err := cfg.FeePolicy().Validate(); err != nil {
		return err
	}
	if len(cfg.Covers) > maxCovers {
		return fmt.Errorf("config: %d covers exceeds the maximum of %d", len(cfg.Covers), maxCovers)
	}
	for i, cover := range cfg.Covers {
		if cover.CoverRateBps > 10_000 {
			return fmt.Errorf("config: cover %d CoverRateBps %d exceeds 10000", i, cover.CoverRateBps)
		}
		if _, err := parseAmount(cover.CoverCapPerLoss); err != nil {
			return fmt.Errorf("config: cover %d CoverCapPerLoss: %w", i, err)
		}
		if _, err := parseAmount(cover.LiquidityCap); err != nil {
			return fmt.Errorf("config: cover %d LiquidityCap: %w", i, err)
		}
	}
	return nil
}

// FeePolicy returns the configured fee distribution policy.
func (cfg *Pool) FeePolicy() tranche.FeePolicy {
	return tranche.FeePolicy{
		ProtocolFeeBps: cfg.ProtocolFeeBps,
		OwnerRewardBps: cfg.OwnerRewardBps,
		AgentRewardBps: cfg.AgentRewardBps,
	}
}

// CoverConfigs converts the configured cover stack into engine state configs,
// preserving order.
func (cfg *Pool) CoverConfigs() ([]tranche.FirstLossCoverConfig, error) {
	out := make([]tranche.FirstLossCoverConfig, 0, len(cfg.Covers))
	for i, cover := range cfg.Covers {
		capPerLoss, err := parseAmount(cover.CoverCapPerLoss)
		if err != nil {
			return nil, fmt.Errorf("config: cover %d CoverCapPerLoss: %w", i, err)
		}
		liquidityCap, err := parseAmount(cover.LiquidityCap)
		if err != nil {
			return nil, fmt.Errorf("config: cover %d LiquidityCap: %w", i, err)
		}
		out = append(out, tranche.FirstLossCoverConfig{
			CoverRateBps:           cover.CoverRateBps,
			CoverCapPerLoss:        capPerLoss,
			RiskYieldMultiplierBps: cover.RiskYieldMultiplierBps,
			LiquidityCap:           liquidityCap,
		})
	}
	return out, nil
}

// parseAmount parses a decimal amount string; the empty string means zero,
// which the engine treats as an unset bound.
func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", value)
	}
	return amount, nil
}

func createDefault(path string) (*Pool, error) {
	cfg := &Pool{
		PoolID:               "default",
		TranchePolicy:        PolicyFixed,
		FixedSeniorYieldBps:  800,
		MaxSeniorJuniorRatio: 4,
		ProtocolFeeBps:       1000,
		OwnerRewardBps:       200,
		AgentRewardBps:       300,
		DataDir:              "./tranche-data",
		Covers: []Cover{
			{
				CoverRateBps:           5000,
				CoverCapPerLoss:        "1000000000000",
				RiskYieldMultiplierBps: 20000,
				LiquidityCap:           "5000000000000",
			},
		},
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
