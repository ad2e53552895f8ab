package tranche

import (
	"math/big"
	"time"
)

// Refresh accrues the yield owed to the senior tranche for the whole days
// elapsed since the tracker was last updated and advances LastUpdated to the
// day boundary after asOf. Calling Refresh again within the same day is a
// no-op, so accrual is idempotent per day regardless of how many settlement
// calls land on it. A zero yield rate is valid and accrues nothing.
func (t *YieldTracker) Refresh(asOf time.Time, yieldBps uint64, cal Calendar) (*YieldTracker, error) {
	updated := t.Clone()
	boundary := cal.StartOfNextDay(asOf)
	if updated.LastUpdated.IsZero() {
		updated.LastUpdated = boundary
		return updated, nil
	}
	days, err := cal.DaysDiff(updated.LastUpdated, boundary)
	if err != nil {
		return nil, err
	}
	if days == 0 {
		return updated, nil
	}
	if yieldBps > 0 && updated.SeniorDebt.Sign() > 0 {
		accrued := new(big.Int).Mul(updated.SeniorDebt, big.NewInt(int64(days)))
		accrued.Mul(accrued, new(big.Int).SetUint64(yieldBps))
		denom := new(big.Int).Mul(big.NewInt(int64(cal.DaysInYear())), basisPoints)
		accrued.Quo(accrued, denom)
		updated.UnpaidYield.Add(updated.UnpaidYield, accrued)
	}
	updated.LastUpdated = boundary
	return updated, nil
}

// AddSeniorDebt records a senior tranche deposit against the tracked debt.
func (t *YieldTracker) AddSeniorDebt(amount *big.Int) {
	if t == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	t.SeniorDebt.Add(t.SeniorDebt, amount)
}

// SubSeniorDebt records a senior tranche withdrawal against the tracked debt,
// flooring at zero.
func (t *YieldTracker) SubSeniorDebt(amount *big.Int) {
	if t == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	t.SeniorDebt.Sub(t.SeniorDebt, amount)
	if t.SeniorDebt.Sign() < 0 {
		t.SeniorDebt.SetInt64(0)
	}
}
