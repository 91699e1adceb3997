package contracts

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

var (
	testCreator   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testProvider  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testRecipient = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	testToken     = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
)

func v1Tuple() []interface{} {
	createdAt := int64(1767225600) // 2026-01-01 00:00:00 UTC
	return []interface{}{
		big.NewInt(42),  // id
		testCreator,     // creator
		testProvider,    // provider
		testRecipient,   // recipient
		testToken,       // token
		big.NewInt(1e6), // amount
		big.NewInt(5e5), // remainingAmount
		big.NewInt(createdAt),
		big.NewInt(createdAt + 30*24*3600), // deadline
		big.NewInt(30 * 24 * 3600),         // deadlineDuration
		big.NewInt(0),                      // gracePeriod1End
		common.Address{},                   // gracePeriod1By
		big.NewInt(0),                      // gracePeriod2End
		common.Address{},                   // gracePeriod2By
		true,                               // funded
		true,                               // signed
		true,                               // acceptedByProvider
		true,                               // acceptedByRecipient
		false,                              // completed
		false,                              // disputed
		false,                              // privateMode
		false,                              // frozen
		false,                              // pendingCancellation
		false,                              // orderCancelled
		false,                              // vestingEnabled
		false,                              // deliverySubmitted
	}
}

func v2Tuple() []interface{} {
	return append(v1Tuple(),
		big.NewInt(9),          // voteSessionId
		big.NewInt(1767312000), // voteStartTime
		testRecipient,          // plaintiff
		testProvider,           // defendant
	)
}

func TestDecodeAgreementV1(t *testing.T) {
	a, version, warnings, err := DecodeAgreement(v1Tuple())
	require.NoError(t, err)
	require.Equal(t, SchemaV1, version)
	require.Empty(t, warnings)

	require.Equal(t, int64(42), a.ID.Int64())
	require.Equal(t, testProvider, a.Provider)
	require.Equal(t, testRecipient, a.Recipient)
	require.Equal(t, testToken, a.Asset)
	require.False(t, a.IsNativeAsset())
	require.Equal(t, int64(1e6), a.Amount.Int64())
	require.Equal(t, int64(5e5), a.RemainingAmount.Int64())
	require.Equal(t, time.Unix(1767225600, 0), a.CreatedAt)
	require.Equal(t, 30*24*time.Hour, a.DeadlineDuration)
	require.True(t, a.Funded)
	require.True(t, a.Signed)
	require.Equal(t, escrow.StateActive, a.State())

	// schema V2 fields zeroed under V1
	require.Equal(t, int64(0), a.VoteSessionID.Int64())
	require.True(t, a.VoteStartTime.IsZero())
}

func TestDecodeAgreementV2(t *testing.T) {
	a, version, warnings, err := DecodeAgreement(v2Tuple())
	require.NoError(t, err)
	require.Equal(t, SchemaV2, version)
	require.Empty(t, warnings)

	require.Equal(t, int64(9), a.VoteSessionID.Int64())
	require.Equal(t, time.Unix(1767312000, 0), a.VoteStartTime)
	require.Equal(t, testRecipient, a.Plaintiff)
	require.Equal(t, testProvider, a.Defendant)
}

func TestDecodeAgreementUnknownLength(t *testing.T) {
	_, _, _, err := DecodeAgreement(v1Tuple()[:20])
	require.ErrorIs(t, err, escrow.ErrUnknownSchema)

	_, _, _, err = DecodeAgreement(append(v2Tuple(), big.NewInt(1)))
	require.ErrorIs(t, err, escrow.ErrUnknownSchema)
}

func TestDecodeAgreementLenientCoercion(t *testing.T) {
	fields := v1Tuple()
	fields[5] = "not a number" // amount
	fields[14] = big.NewInt(1) // funded, wrong type
	fields[15] = false         // unsign so the flags stay consistent

	a, version, warnings, err := DecodeAgreement(fields)
	require.NoError(t, err)
	require.Equal(t, SchemaV1, version)
	require.Len(t, warnings, 2)

	// degraded fields read as zero values
	require.Equal(t, int64(0), a.Amount.Int64())
	require.False(t, a.Funded)
}

func TestDecodeAgreementNegativeValueWarns(t *testing.T) {
	fields := v1Tuple()
	fields[6] = big.NewInt(-1)

	a, _, warnings, err := DecodeAgreement(fields)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, int64(0), a.RemainingAmount.Int64())
}

func TestDecodeAgreementZeroTimestamps(t *testing.T) {
	a, _, warnings, err := DecodeAgreement(v1Tuple())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.True(t, a.GracePeriod1End.IsZero())
	require.True(t, a.GracePeriod2End.IsZero())
}

func TestDecodeMilestone(t *testing.T) {
	m, warnings, err := DecodeMilestone(2, []interface{}{
		big.NewInt(2500),
		big.NewInt(1767225600),
		false,
		true,
		big.NewInt(250),
	})
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, 2, m.Index)
	require.Equal(t, int64(2500), m.PercentBP)
	require.Equal(t, time.Unix(1767225600, 0), m.UnlockAt)
	require.False(t, m.HeldByRecipient)
	require.True(t, m.Claimed)
	require.Equal(t, int64(250), m.Amount.Int64())
}

func TestDecodeMilestoneBadShape(t *testing.T) {
	_, _, err := DecodeMilestone(0, []interface{}{big.NewInt(1)})
	require.ErrorIs(t, err, escrow.ErrUnknownSchema)

	m, warnings, err := DecodeMilestone(0, []interface{}{
		big.NewInt(20000), // over 100%
		big.NewInt(0),
		false,
		false,
		big.NewInt(0),
	})
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	require.Equal(t, int64(0), m.PercentBP)
}
