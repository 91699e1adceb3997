package escrow

import (
	"math/big"
	"time"
)

// BasisPointsTotal is the required sum of milestone percentages, 100%
const BasisPointsTotal = 10000

// Milestone is one step of a vesting plan. Present only when the parent
// agreement has vesting enabled
type Milestone struct {
	Index           int
	PercentBP       int64 // share of the agreement amount in basis points
	UnlockAt        time.Time
	HeldByRecipient bool
	Claimed         bool
	Amount          *big.Int // ledger-reported, cross-checked against PercentBP
}

// Ready reports whether the unlock time has elapsed
func (m *Milestone) Ready(now time.Time) bool {
	return DeadlinePassed(m.UnlockAt, now)
}

// Claimable reports whether the milestone itself permits a claim. The
// caller-side checks (role, agreement flags) live in the guard engine
func (m *Milestone) Claimable(now time.Time) bool {
	return m.Ready(now) && !m.Claimed && !m.HeldByRecipient
}

// MilestoneAmount derives the payout of a milestone from its share and
// the agreement total: percentBP/10000 * total, truncated like the
// ledger's integer division
func MilestoneAmount(percentBP int64, total *big.Int) *big.Int {
	if total == nil {
		return new(big.Int)
	}
	amount := new(big.Int).Mul(total, big.NewInt(percentBP))
	return amount.Div(amount, big.NewInt(BasisPointsTotal))
}
