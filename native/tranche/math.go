package tranche

import "math/big"

var basisPoints = big.NewInt(10_000)

// cloneAmount copies an amount, normalising nil to zero.
func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// bpsShare computes amount * bps / 10000 with truncation toward zero. The
// waterfalls only ever round down so that no step allocates more than is
// available.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Quo(share, basisPoints)
}

// mulDiv computes amount * num / den with truncation toward zero. The caller
// guarantees den is non-zero.
func mulDiv(amount, num, den *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 || num == nil || num.Sign() <= 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, num)
	return out.Quo(out, den)
}

// minAmount returns a copy of the smallest of the supplied amounts, skipping
// nil entries. At least one non-nil amount must be supplied.
func minAmount(values ...*big.Int) *big.Int {
	var min *big.Int
	for _, v := range values {
		if v == nil {
			continue
		}
		if min == nil || v.Cmp(min) < 0 {
			min = v
		}
	}
	return cloneAmount(min)
}
