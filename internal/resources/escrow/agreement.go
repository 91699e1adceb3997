package escrow

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the sentinel token address meaning the chain's native coin
var NativeAsset = common.Address{}

// Agreement is the decoded, point-in-time copy of the on-chain escrow
// record. It is read-only: the ledger is the single source of truth and
// every mutation goes through a transaction
type Agreement struct {
	ID        *big.Int
	Creator   common.Address
	Provider  common.Address
	Recipient common.Address

	Asset           common.Address // NativeAsset means the native coin
	Amount          *big.Int
	RemainingAmount *big.Int

	CreatedAt        time.Time
	Deadline         time.Time
	DeadlineDuration time.Duration

	// GracePeriod1 is the cancellation response window, GracePeriod2 is
	// the delivery response window. Zero time means not started
	GracePeriod1End time.Time
	GracePeriod1By  common.Address
	GracePeriod2End time.Time
	GracePeriod2By  common.Address

	Funded              bool
	Signed              bool
	AcceptedByProvider  bool
	AcceptedByRecipient bool
	Completed           bool
	Disputed            bool
	PrivateMode         bool
	Frozen              bool
	PendingCancellation bool
	OrderCancelled      bool
	VestingEnabled      bool
	DeliverySubmitted   bool

	// schema V2 only, zero values under V1
	VoteSessionID *big.Int
	VoteStartTime time.Time
	Plaintiff     common.Address
	Defendant     common.Address
}

const (
	// CancelGraceWindow is how long the counterparty has to respond to a
	// cancellation request before a forced timeout becomes legal
	CancelGraceWindow = 24 * time.Hour
	// PartialReleaseGrace and FinalReleaseGrace run from delivery submission
	PartialReleaseGrace = 24 * time.Hour
	FinalReleaseGrace   = 48 * time.Hour
)

func (a *Agreement) GetID() string {
	if a.ID == nil {
		return ""
	}
	return a.ID.String()
}

// State returns the lifecycle state derived from the raw status flags
func (a *Agreement) State() State {
	return DeriveState(a)
}

func (a *Agreement) IsParty(addr common.Address) bool {
	return addr == a.Provider || addr == a.Recipient
}

func (a *Agreement) HasAccepted(addr common.Address) bool {
	switch addr {
	case a.Provider:
		return a.AcceptedByProvider
	case a.Recipient:
		return a.AcceptedByRecipient
	default:
		return false
	}
}

func (a *Agreement) IsNativeAsset() bool {
	return a.Asset == NativeAsset
}

// IsTerminal reports whether no further mutation of the record is legal
func (a *Agreement) IsTerminal() bool {
	return a.Completed || a.OrderCancelled
}

// DeliveredAt returns the moment delivery was submitted, derived from the
// delivery response window anchor. Zero time if no delivery is pending
func (a *Agreement) DeliveredAt() time.Time {
	if !a.DeliverySubmitted || a.GracePeriod2End.IsZero() {
		return time.Time{}
	}
	return a.GracePeriod2End.Add(-PartialReleaseGrace)
}

// PartialReleaseAt returns the moment partial auto-release becomes legal
func (a *Agreement) PartialReleaseAt() time.Time {
	d := a.DeliveredAt()
	if d.IsZero() {
		return time.Time{}
	}
	return d.Add(PartialReleaseGrace)
}

// FinalReleaseAt returns the moment final auto-release becomes legal
func (a *Agreement) FinalReleaseAt() time.Time {
	d := a.DeliveredAt()
	if d.IsZero() {
		return time.Time{}
	}
	return d.Add(FinalReleaseGrace)
}

// CancelGraceElapsed reports whether the cancellation response window
// has passed. False when no cancellation is pending
func (a *Agreement) CancelGraceElapsed(now time.Time) bool {
	if !a.PendingCancellation || a.GracePeriod1End.IsZero() {
		return false
	}
	return DeadlinePassed(a.GracePeriod1End, now)
}

// Copy returns a deep copy so a snapshot refresh can replace the local
// record wholesale without sharing big.Int pointers
func (a *Agreement) Copy() *Agreement {
	c := *a
	if a.ID != nil {
		c.ID = new(big.Int).Set(a.ID)
	}
	if a.Amount != nil {
		c.Amount = new(big.Int).Set(a.Amount)
	}
	if a.RemainingAmount != nil {
		c.RemainingAmount = new(big.Int).Set(a.RemainingAmount)
	}
	if a.VoteSessionID != nil {
		c.VoteSessionID = new(big.Int).Set(a.VoteSessionID)
	}
	return &c
}
