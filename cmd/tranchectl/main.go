package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/00labs/huma-contracts-v2-sub003/config"
	"github.com/00labs/huma-contracts-v2-sub003/native/calendar"
	"github.com/00labs/huma-contracts-v2-sub003/native/tranche"
	"github.com/00labs/huma-contracts-v2-sub003/observability/logging"
	"github.com/00labs/huma-contracts-v2-sub003/storage"
)

const usage = `Usage: tranchectl [flags] <command> [amount]

Commands:
  init                      create the pool state from the configuration
  show                      print the current pool state
  settle-profit <amount>    apply one period's gross profit
  settle-loss <amount>      apply a loss event
  settle-recovery <amount>  apply a loss recovery event
  deposit-senior <amount>   add senior tranche liquidity
  deposit-junior <amount>   add junior tranche liquidity
  deposit-cover <amount>    add cover liquidity (use -cover for the index)
  withdraw-senior <amount>  remove senior tranche liquidity
  withdraw-junior <amount>  remove junior tranche liquidity
  withdraw-cover <amount>   remove cover liquidity (use -cover for the index)
`

func main() {
	configPath := flag.String("config", "pool.toml", "path to the pool configuration file")
	coverIndex := flag.Int("cover", 0, "cover stack index for deposit-cover")
	asOfFlag := flag.String("asof", "", "settlement timestamp (RFC 3339, defaults to now)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := logging.Setup("tranchectl", os.Getenv("TRANCHE_ENV"))

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			logger.Error("invalid -asof timestamp", "value", *asOfFlag, "error", err)
			os.Exit(1)
		}
		asOf = parsed.UTC()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open pool database", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := storage.NewPoolStore(db)

	engine, err := buildEngine(cfg, store)
	if err != nil {
		logger.Error("configure engine", "error", err)
		os.Exit(1)
	}

	if err := run(engine, store, cfg, command, flag.Args()[1:], *coverIndex, asOf); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func buildEngine(cfg *config.Pool, store *storage.PoolStore) (*tranche.Engine, error) {
	var policy tranche.TranchePolicy
	switch cfg.TranchePolicy {
	case config.PolicyFixed:
		policy = tranche.FixedSeniorYieldPolicy{
			YieldBps: cfg.FixedSeniorYieldBps,
			Calendar: calendar.Thirty360{},
		}
	case config.PolicyRiskAdjusted:
		policy = tranche.RiskAdjustedPolicy{AdjustmentBps: cfg.RiskAdjustmentBps}
	default:
		return nil, fmt.Errorf("unknown tranche policy %q", cfg.TranchePolicy)
	}

	engine := tranche.NewEngine(policy, cfg.FeePolicy())
	engine.SetState(store)
	engine.SetPoolID(cfg.PoolID)
	engine.SetMaxSeniorJuniorRatio(cfg.MaxSeniorJuniorRatio)
	return engine, nil
}

func run(engine *tranche.Engine, store *storage.PoolStore, cfg *config.Pool, command string, args []string, coverIndex int, asOf time.Time) error {
	switch command {
	case "init":
		return initPool(store, cfg)
	case "show":
		return showPool(engine)
	case "settle-profit":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		receipt, err := engine.ProcessProfit(amount, asOf)
		if err != nil {
			return err
		}
		printReceipt(receipt)
		return nil
	case "settle-loss":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		receipt, err := engine.ProcessLoss(amount, asOf)
		if err != nil {
			return err
		}
		printReceipt(receipt)
		return nil
	case "settle-recovery":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		receipt, err := engine.ProcessRecovery(amount, asOf)
		if err != nil {
			return err
		}
		printReceipt(receipt)
		return nil
	case "deposit-senior":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		return engine.DepositSenior(amount, asOf)
	case "deposit-junior":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		return engine.DepositJunior(amount)
	case "deposit-cover":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		return engine.DepositCover(coverIndex, amount)
	case "withdraw-senior":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		return engine.WithdrawSenior(amount, asOf)
	case "withdraw-junior":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		return engine.WithdrawJunior(amount)
	case "withdraw-cover":
		amount, err := argAmount(args)
		if err != nil {
			return err
		}
		return engine.WithdrawCover(coverIndex, amount)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func initPool(store *storage.PoolStore, cfg *config.Pool) error {
	existing, err := store.GetPool(cfg.PoolID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("pool %q already initialised", cfg.PoolID)
	}
	coverConfigs, err := cfg.CoverConfigs()
	if err != nil {
		return err
	}
	pool := &tranche.PoolState{
		Assets:  tranche.TrancheAssets{Senior: big.NewInt(0), Junior: big.NewInt(0)},
		Losses:  tranche.TrancheLosses{Senior: big.NewInt(0), Junior: big.NewInt(0)},
		Tracker: &tranche.YieldTracker{SeniorDebt: big.NewInt(0), UnpaidYield: big.NewInt(0)},
	}
	for _, coverCfg := range coverConfigs {
		pool.Covers = append(pool.Covers, &tranche.FirstLossCoverState{
			Asset:       big.NewInt(0),
			CoveredLoss: big.NewInt(0),
			Config:      coverCfg,
		})
	}
	return store.PutPool(cfg.PoolID, pool)
}

func showPool(engine *tranche.Engine) error {
	pool, err := engine.Pool()
	if err != nil {
		return err
	}
	fmt.Printf("senior assets:   %s\n", pool.Assets.Senior)
	fmt.Printf("junior assets:   %s\n", pool.Assets.Junior)
	fmt.Printf("senior loss:     %s\n", pool.Losses.Senior)
	fmt.Printf("junior loss:     %s\n", pool.Losses.Junior)
	fmt.Printf("senior debt:     %s\n", pool.Tracker.SeniorDebt)
	fmt.Printf("unpaid yield:    %s\n", pool.Tracker.UnpaidYield)
	if !pool.Tracker.LastUpdated.IsZero() {
		fmt.Printf("last updated:    %s\n", pool.Tracker.LastUpdated.Format(time.RFC3339))
	}
	for i, cover := range pool.Covers {
		fmt.Printf("cover[%d] asset=%s coveredLoss=%s\n", i, cover.Asset, cover.CoveredLoss)
	}
	return nil
}

func printReceipt(receipt *tranche.SettlementReceipt) {
	fmt.Printf("receipt %s (%s, pool %s)\n", receipt.ID, receipt.Kind, receipt.Pool)
	switch receipt.Kind {
	case tranche.SettlementProfit:
		fmt.Printf("  gross:   %s\n", receipt.Amount)
		fmt.Printf("  fees:    protocol=%s owner=%s agent=%s\n", receipt.Fees.Protocol, receipt.Fees.Owner, receipt.Fees.Agent)
		fmt.Printf("  senior:  %s\n", receipt.SeniorProfit)
		fmt.Printf("  junior:  %s\n", receipt.JuniorProfit)
		for i, share := range receipt.CoverProfits {
			fmt.Printf("  cover[%d]: %s\n", i, share)
		}
	case tranche.SettlementLoss:
		fmt.Printf("  loss:    %s\n", receipt.Amount)
		fmt.Printf("  senior:  %s\n", receipt.SeniorLoss)
		fmt.Printf("  junior:  %s\n", receipt.JuniorLoss)
		for i, share := range receipt.CoverLosses {
			fmt.Printf("  cover[%d]: %s\n", i, share)
		}
		if receipt.UncoveredLoss.Sign() > 0 {
			fmt.Printf("  UNCOVERED: %s\n", receipt.UncoveredLoss)
		}
	case tranche.SettlementRecovery:
		fmt.Printf("  recovery: %s\n", receipt.Amount)
		fmt.Printf("  senior:   %s\n", receipt.SeniorRecovery)
		fmt.Printf("  junior:   %s\n", receipt.JuniorRecovery)
		for i, share := range receipt.CoverRecoveries {
			fmt.Printf("  cover[%d]:  %s\n", i, share)
		}
		if receipt.RemainingRecovery.Sign() > 0 {
			fmt.Printf("  excess:   %s\n", receipt.RemainingRecovery)
		}
	}
}

func argAmount(args []string) (*big.Int, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("exactly one amount argument is required")
	}
	amount, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", args[0])
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", args[0])
	}
	return amount, nil
}
