package tranche

import (
	"fmt"
	"math/big"
)

// FeePolicy configures the cuts extracted from gross profit before the
// remainder reaches the tranche waterfall. All rates are basis points and
// must sum to at most 10000.
type FeePolicy struct {
	ProtocolFeeBps uint64
	OwnerRewardBps uint64
	AgentRewardBps uint64
}

// Validate rejects fee policies that would consume more than the gross.
func (p FeePolicy) Validate() error {
	total := p.ProtocolFeeBps + p.OwnerRewardBps + p.AgentRewardBps
	if total > 10_000 {
		return fmt.Errorf("tranche: fee policy totals %d bps, exceeds 10000", total)
	}
	return nil
}

// FeeResult reports the fee cuts taken from a gross profit figure. Net plus
// the three cuts equals the gross exactly: each cut truncates and the
// remainder stays in Net.
type FeeResult struct {
	Net      *big.Int
	Protocol *big.Int
	Owner    *big.Int
	Agent    *big.Int
}

// ApplyFees extracts the protocol, pool owner, and evaluation agent cuts from
// the gross profit of a settlement period and returns the profit net of fees
// that the tranche policy will distribute.
func (p FeePolicy) ApplyFees(gross *big.Int) FeeResult {
	total := cloneAmount(gross)
	result := FeeResult{
		Protocol: bpsShare(total, p.ProtocolFeeBps),
		Owner:    bpsShare(total, p.OwnerRewardBps),
		Agent:    bpsShare(total, p.AgentRewardBps),
	}
	net := new(big.Int).Set(total)
	net.Sub(net, result.Protocol)
	net.Sub(net, result.Owner)
	net.Sub(net, result.Agent)
	result.Net = net
	return result
}
