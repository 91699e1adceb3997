package escrow

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReleaseAnchors(t *testing.T) {
	deliveredAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := activeAgreement()
	a.DeliverySubmitted = true
	a.GracePeriod2End = deliveredAt.Add(PartialReleaseGrace)

	require.Equal(t, deliveredAt, a.DeliveredAt())
	require.Equal(t, deliveredAt.Add(24*time.Hour), a.PartialReleaseAt())
	require.Equal(t, deliveredAt.Add(48*time.Hour), a.FinalReleaseAt())
}

func TestReleaseAnchorsWithoutDelivery(t *testing.T) {
	a := activeAgreement()

	require.True(t, a.DeliveredAt().IsZero())
	require.True(t, a.PartialReleaseAt().IsZero())
	require.True(t, a.FinalReleaseAt().IsZero())
}

func TestCancelGraceElapsed(t *testing.T) {
	now := time.Now()

	a := activeAgreement()
	require.False(t, a.CancelGraceElapsed(now))

	a.PendingCancellation = true
	a.GracePeriod1End = now.Add(time.Hour)
	require.False(t, a.CancelGraceElapsed(now))

	a.GracePeriod1End = now.Add(-time.Second)
	require.True(t, a.CancelGraceElapsed(now))
}

func TestAgreementCopyIsDeep(t *testing.T) {
	a := activeAgreement()
	c := a.Copy()

	c.Amount.SetInt64(5)
	c.Funded = false

	require.Equal(t, int64(1000), a.Amount.Int64())
	require.True(t, a.Funded)
	require.Equal(t, a.ID, c.ID)
}

func TestHasAccepted(t *testing.T) {
	a := activeAgreement()
	a.AcceptedByRecipient = false

	require.True(t, a.HasAccepted(providerAddr))
	require.False(t, a.HasAccepted(recipientAddr))
	require.False(t, a.HasAccepted(strangerAddr))
}

func TestSnapshotFresh(t *testing.T) {
	now := time.Now()

	snap := &Snapshot{Agreement: activeAgreement(), FetchedAt: now.Add(-10 * time.Second)}
	require.True(t, snap.Fresh(now, 15*time.Second))
	require.False(t, snap.Fresh(now, 5*time.Second))
}

func TestIsNativeAsset(t *testing.T) {
	a := activeAgreement()
	require.True(t, a.IsNativeAsset())

	a.Asset = tokenAddr
	require.False(t, a.IsNativeAsset())
}

func TestRemainingAmountNeverExceedsTotal(t *testing.T) {
	a := activeAgreement()
	a.RemainingAmount = new(big.Int).Add(a.Amount, big.NewInt(1))
	require.Equal(t, StateInconsistent, DeriveState(a))
}
