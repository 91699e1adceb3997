package contracts

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

const (
	SchemaV1 = 1
	SchemaV2 = 2

	schemaV1FieldCount = 26
	schemaV2FieldCount = 30

	milestoneFieldCount = 5
)

// decoder turns the positional tuples the ledger returns into the named
// local model. Coercion is lenient on purpose: a field of an unexpected
// shape degrades to its zero value and is recorded as a warning, so a
// partially decodable read never crashes the caller. Only an unknown
// tuple length is a hard error, because mis-indexing a shifted layout
// would silently corrupt every derived guard decision
type decoder struct {
	warnings []string
}

func (d *decoder) warnf(format string, args ...interface{}) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func (d *decoder) bigInt(fields []interface{}, i int, name string) *big.Int {
	v, ok := fields[i].(*big.Int)
	if !ok || v == nil {
		d.warnf("field %d (%s): expected uint256, got %T", i, name, fields[i])
		return new(big.Int)
	}
	if v.Sign() < 0 {
		d.warnf("field %d (%s): negative value %s", i, name, v)
		return new(big.Int)
	}
	return v
}

func (d *decoder) address(fields []interface{}, i int, name string) common.Address {
	v, ok := fields[i].(common.Address)
	if !ok {
		d.warnf("field %d (%s): expected address, got %T", i, name, fields[i])
		return common.Address{}
	}
	return v
}

func (d *decoder) boolean(fields []interface{}, i int, name string) bool {
	v, ok := fields[i].(bool)
	if !ok {
		d.warnf("field %d (%s): expected bool, got %T", i, name, fields[i])
		return false
	}
	return v
}

func (d *decoder) timestamp(fields []interface{}, i int, name string) time.Time {
	v := d.bigInt(fields, i, name)
	if v.Sign() == 0 {
		return time.Time{}
	}
	if !v.IsInt64() {
		d.warnf("field %d (%s): timestamp overflow %s", i, name, v)
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0)
}

func (d *decoder) duration(fields []interface{}, i int, name string) time.Duration {
	v := d.bigInt(fields, i, name)
	if !v.IsInt64() {
		d.warnf("field %d (%s): duration overflow %s", i, name, v)
		return 0
	}
	return time.Duration(v.Int64()) * time.Second
}

// DecodeAgreement maps a positional getAgreement tuple to the named
// model. The schema version is selected by the tuple length; any other
// length fails with ErrUnknownSchema
func DecodeAgreement(fields []interface{}) (*escrow.Agreement, int, []string, error) {
	var version int
	switch len(fields) {
	case schemaV1FieldCount:
		version = SchemaV1
	case schemaV2FieldCount:
		version = SchemaV2
	default:
		return nil, 0, nil, lib.WrapError(escrow.ErrUnknownSchema, fmt.Errorf("%d fields", len(fields)))
	}

	d := &decoder{}
	a := &escrow.Agreement{
		ID:        d.bigInt(fields, 0, "id"),
		Creator:   d.address(fields, 1, "creator"),
		Provider:  d.address(fields, 2, "provider"),
		Recipient: d.address(fields, 3, "recipient"),

		Asset:           d.address(fields, 4, "token"),
		Amount:          d.bigInt(fields, 5, "amount"),
		RemainingAmount: d.bigInt(fields, 6, "remainingAmount"),

		CreatedAt:        d.timestamp(fields, 7, "createdAt"),
		Deadline:         d.timestamp(fields, 8, "deadline"),
		DeadlineDuration: d.duration(fields, 9, "deadlineDuration"),

		GracePeriod1End: d.timestamp(fields, 10, "gracePeriod1End"),
		GracePeriod1By:  d.address(fields, 11, "gracePeriod1By"),
		GracePeriod2End: d.timestamp(fields, 12, "gracePeriod2End"),
		GracePeriod2By:  d.address(fields, 13, "gracePeriod2By"),

		Funded:              d.boolean(fields, 14, "funded"),
		Signed:              d.boolean(fields, 15, "signed"),
		AcceptedByProvider:  d.boolean(fields, 16, "acceptedByProvider"),
		AcceptedByRecipient: d.boolean(fields, 17, "acceptedByRecipient"),
		Completed:           d.boolean(fields, 18, "completed"),
		Disputed:            d.boolean(fields, 19, "disputed"),
		PrivateMode:         d.boolean(fields, 20, "privateMode"),
		Frozen:              d.boolean(fields, 21, "frozen"),
		PendingCancellation: d.boolean(fields, 22, "pendingCancellation"),
		OrderCancelled:      d.boolean(fields, 23, "orderCancelled"),
		VestingEnabled:      d.boolean(fields, 24, "vestingEnabled"),
		DeliverySubmitted:   d.boolean(fields, 25, "deliverySubmitted"),
	}

	if version == SchemaV2 {
		a.VoteSessionID = d.bigInt(fields, 26, "voteSessionId")
		a.VoteStartTime = d.timestamp(fields, 27, "voteStartTime")
		a.Plaintiff = d.address(fields, 28, "plaintiff")
		a.Defendant = d.address(fields, 29, "defendant")
	} else {
		a.VoteSessionID = new(big.Int)
	}

	return a, version, d.warnings, nil
}

// DecodeMilestone maps a positional getMilestone tuple to the model
func DecodeMilestone(index int, fields []interface{}) (*escrow.Milestone, []string, error) {
	if len(fields) != milestoneFieldCount {
		return nil, nil, lib.WrapError(escrow.ErrUnknownSchema, fmt.Errorf("milestone tuple has %d fields", len(fields)))
	}

	d := &decoder{}
	percentBP := d.bigInt(fields, 0, "percentBP")
	if !percentBP.IsInt64() || percentBP.Int64() > escrow.BasisPointsTotal {
		d.warnf("field 0 (percentBP): out of range %s", percentBP)
		percentBP = new(big.Int)
	}

	m := &escrow.Milestone{
		Index:           index,
		PercentBP:       percentBP.Int64(),
		UnlockAt:        d.timestamp(fields, 1, "unlockAt"),
		HeldByRecipient: d.boolean(fields, 2, "heldByRecipient"),
		Claimed:         d.boolean(fields, 3, "claimed"),
		Amount:          d.bigInt(fields, 4, "amount"),
	}
	return m, d.warnings, nil
}
