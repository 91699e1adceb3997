package escrow

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidatePlan(t *testing.T) {
	deadline := 30 * 24 * time.Hour

	plan, err := ValidatePlan(
		[]string{"25", "25", "50"},
		[]time.Duration{0, 7 * 24 * time.Hour, 30 * 24 * time.Hour},
		deadline,
	)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	require.Equal(t, int64(2500), plan[0].PercentBP)
	require.Equal(t, int64(2500), plan[1].PercentBP)
	require.Equal(t, int64(5000), plan[2].PercentBP)
}

func TestValidatePlanFractionalPercentages(t *testing.T) {
	// 33.33 + 33.33 + 33.34 rounds to exactly 10000 bps
	plan, err := ValidatePlan(
		[]string{"33.33", "33.33", "33.34"},
		[]time.Duration{0, time.Hour, 2 * time.Hour},
		24*time.Hour,
	)
	require.NoError(t, err)
	require.Equal(t, int64(3333), plan[0].PercentBP)
	require.Equal(t, int64(3334), plan[2].PercentBP)
}

func TestValidatePlanSumMismatch(t *testing.T) {
	_, err := ValidatePlan(
		[]string{"33.33", "33.33", "33.33"},
		[]time.Duration{0, time.Hour, 2 * time.Hour},
		24*time.Hour,
	)
	require.ErrorIs(t, err, ErrPlanSum)
}

func TestValidatePlanRejectsMalformedInput(t *testing.T) {
	deadline := 24 * time.Hour

	_, err := ValidatePlan([]string{"50", "50"}, []time.Duration{0}, deadline)
	require.ErrorIs(t, err, ErrPlanLengthMismatch)

	_, err = ValidatePlan([]string{}, []time.Duration{}, deadline)
	require.ErrorIs(t, err, ErrPlanEmpty)

	_, err = ValidatePlan([]string{"0", "100"}, []time.Duration{0, time.Hour}, deadline)
	require.ErrorIs(t, err, ErrPlanPercentage)

	_, err = ValidatePlan([]string{"101"}, []time.Duration{0}, deadline)
	require.ErrorIs(t, err, ErrPlanPercentage)

	_, err = ValidatePlan([]string{"banana"}, []time.Duration{0}, deadline)
	require.ErrorIs(t, err, ErrPlanPercentage)

	_, err = ValidatePlan([]string{"100"}, []time.Duration{-time.Hour}, deadline)
	require.ErrorIs(t, err, ErrPlanOffset)

	_, err = ValidatePlan([]string{"100"}, []time.Duration{48 * time.Hour}, deadline)
	require.ErrorIs(t, err, ErrPlanOffset)
}

func TestPercentToBasisPoints(t *testing.T) {
	bp, err := PercentToBasisPoints("12.345")
	require.NoError(t, err)
	require.Equal(t, int64(1235), bp) // rounds half up

	bp, err = PercentToBasisPoints("100")
	require.NoError(t, err)
	require.Equal(t, int64(10000), bp)

	_, err = PercentToBasisPoints("-1")
	require.ErrorIs(t, err, ErrPlanPercentage)
}

func TestMilestoneAmount(t *testing.T) {
	total := big.NewInt(1000)

	require.Equal(t, int64(250), MilestoneAmount(2500, total).Int64())
	require.Equal(t, int64(1000), MilestoneAmount(10000, total).Int64())

	// integer division truncates like the ledger does
	require.Equal(t, int64(333), MilestoneAmount(3333, total).Int64())
}

func TestMilestoneClaimable(t *testing.T) {
	now := time.Now()

	m := &Milestone{UnlockAt: now.Add(-time.Minute)}
	require.True(t, m.Claimable(now))

	require.False(t, (&Milestone{UnlockAt: now.Add(time.Minute)}).Claimable(now))
	require.False(t, (&Milestone{UnlockAt: now.Add(-time.Minute), Claimed: true}).Claimable(now))
	require.False(t, (&Milestone{UnlockAt: now.Add(-time.Minute), HeldByRecipient: true}).Claimable(now))
}
