package escrow

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Action identifies a write operation the guard engine can vet
type Action string

const (
	ActionDeposit                    Action = "deposit"
	ActionSign                       Action = "sign"
	ActionSubmitDelivery             Action = "submit-delivery"
	ActionApproveDelivery            Action = "approve-delivery"
	ActionRejectDelivery             Action = "reject-delivery"
	ActionCancelOrder                Action = "cancel-order"
	ActionApproveCancellation        Action = "approve-cancellation"
	ActionRejectCancellation         Action = "reject-cancellation"
	ActionEnforceCancellationTimeout Action = "enforce-cancellation-timeout"
	ActionPartialAutoRelease         Action = "partial-auto-release"
	ActionFinalAutoRelease           Action = "final-auto-release"
	ActionClaimMilestone             Action = "claim-milestone"
	ActionSetMilestoneHold           Action = "set-milestone-hold"
)

// ParseAction maps a wire string to a known action
func ParseAction(s string) (Action, bool) {
	action := Action(s)
	_, ok := actionChecks[action]
	return action, ok
}

// Request is a proposed action evaluated against a snapshot
type Request struct {
	Action Action
	Caller common.Address

	// MilestoneIndex applies to claim-milestone and set-milestone-hold
	MilestoneIndex int
	// Final marks the terminal delivery submission override
	Final bool
	// Hold is the desired flag for set-milestone-hold
	Hold bool
}

// Verdict is the guard engine's answer. Denials carry a user-facing
// reason string instead of an error so the UI renders them directly
type Verdict struct {
	Allowed bool
	Reason  string
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// Denial reasons, ordered so the first failing predicate names the most
// actionable problem: existence, then role, then funding/signing, then
// mutual exclusion, then timing
const (
	ReasonNotFound           = "agreement not found"
	ReasonInconsistent       = "agreement record is inconsistent"
	ReasonNotParty           = "caller is not a party to the agreement"
	ReasonNotProvider        = "caller is not the provider"
	ReasonNotRecipient       = "caller is not the recipient"
	ReasonAlreadySigned      = "agreement already signed"
	ReasonCallerSigned       = "caller has already signed"
	ReasonNotFunded          = "agreement is not funded"
	ReasonAlreadyFunded      = "agreement already funded"
	ReasonNotSigned          = "agreement is not signed"
	ReasonCompleted          = "agreement is completed"
	ReasonCancelled          = "agreement is cancelled"
	ReasonFrozen             = "agreement is frozen"
	ReasonDeliveryPending    = "delivery already submitted"
	ReasonNoDeliveryPending  = "no delivery pending"
	ReasonCancelPending      = "cancellation pending"
	ReasonNoCancelPending    = "no cancellation pending"
	ReasonOwnCancelRequest   = "cannot approve own cancellation request"
	ReasonNotOwnCancel       = "caller did not request the cancellation"
	ReasonCancelGraceNotOver = "cancellation grace period has not elapsed"
	ReasonCancelGraceOver    = "cancellation grace period has elapsed"
	ReasonVestingEnabled     = "vesting is enabled, funds are released per milestone"
	ReasonVestingDisabled    = "vesting is not enabled"
	ReasonGraceNotOver       = "grace period has not elapsed"
	ReasonNoFundsRemaining   = "no funds remaining"
	ReasonMilestoneNotFound  = "milestone not found"
	ReasonMilestoneLocked    = "milestone is locked"
	ReasonMilestoneClaimed   = "milestone already claimed"
	ReasonMilestoneHeld      = "milestone is held by recipient"
)

type guardCheck struct {
	reason string
	ok     func(g *guardInput) bool
}

type guardInput struct {
	agreement *Agreement
	milestone *Milestone
	req       Request
	now       time.Time
}

// Evaluate decides whether the requested action is currently legal given
// the snapshot, the caller identity and now. It is pure: the same input
// always yields the same verdict, and nothing is mutated or logged. The
// first failing check determines the denial reason
func Evaluate(snap *Snapshot, req Request, now time.Time) Verdict {
	if snap == nil || snap.Agreement == nil || snap.Agreement.ID == nil || snap.Agreement.ID.Sign() == 0 {
		return deny(ReasonNotFound)
	}

	if DeriveState(snap.Agreement) == StateInconsistent {
		return deny(ReasonInconsistent)
	}

	checks, ok := actionChecks[req.Action]
	if !ok {
		return deny("unknown action: " + string(req.Action))
	}

	in := &guardInput{
		agreement: snap.Agreement,
		milestone: snap.Milestone(req.MilestoneIndex),
		req:       req,
		now:       now,
	}

	for _, check := range checks {
		if !check.ok(in) {
			return deny(check.reason)
		}
	}
	return allow()
}

// predicate helpers shared across rule sets

func isParty(g *guardInput) bool            { return g.agreement.IsParty(g.req.Caller) }
func isProvider(g *guardInput) bool         { return g.req.Caller == g.agreement.Provider }
func isRecipient(g *guardInput) bool        { return g.req.Caller == g.agreement.Recipient }
func funded(g *guardInput) bool             { return g.agreement.Funded }
func signed(g *guardInput) bool             { return g.agreement.Signed }
func notCompleted(g *guardInput) bool       { return !g.agreement.Completed }
func notCancelled(g *guardInput) bool       { return !g.agreement.OrderCancelled }
func notFrozen(g *guardInput) bool          { return !g.agreement.Frozen }
func noDeliveryPending(g *guardInput) bool  { return !g.agreement.DeliverySubmitted }
func deliveryPending(g *guardInput) bool    { return g.agreement.DeliverySubmitted }
func noCancelPending(g *guardInput) bool    { return !g.agreement.PendingCancellation }
func cancelPending(g *guardInput) bool      { return g.agreement.PendingCancellation }
func vestingEnabled(g *guardInput) bool     { return g.agreement.VestingEnabled }
func vestingDisabled(g *guardInput) bool    { return !g.agreement.VestingEnabled }
func milestoneExists(g *guardInput) bool    { return g.milestone != nil }
func notCancelInitiator(g *guardInput) bool { return g.req.Caller != g.agreement.GracePeriod1By }
func cancelInitiator(g *guardInput) bool    { return g.req.Caller == g.agreement.GracePeriod1By }
func cancelGraceElapsed(g *guardInput) bool { return g.agreement.CancelGraceElapsed(g.now) }
func cancelGracePending(g *guardInput) bool { return !g.agreement.CancelGraceElapsed(g.now) }
func fundsRemaining(g *guardInput) bool {
	return g.agreement.RemainingAmount != nil && g.agreement.RemainingAmount.Sign() > 0
}
func partialGraceElapsed(g *guardInput) bool {
	return DeadlinePassed(g.agreement.PartialReleaseAt(), g.now)
}
func finalGraceElapsed(g *guardInput) bool {
	return DeadlinePassed(g.agreement.FinalReleaseAt(), g.now)
}
func milestoneReady(g *guardInput) bool     { return g.milestone.Ready(g.now) }
func milestoneUnclaimed(g *guardInput) bool { return !g.milestone.Claimed }
func milestoneNotHeld(g *guardInput) bool   { return !g.milestone.HeldByRecipient }
func callerNotAccepted(g *guardInput) bool {
	return !g.agreement.HasAccepted(g.req.Caller)
}
func noDeliveryUnlessFinal(g *guardInput) bool {
	return !g.agreement.DeliverySubmitted || g.req.Final
}

var actionChecks = map[Action][]guardCheck{
	ActionSign: {
		{ReasonAlreadySigned, func(g *guardInput) bool { return !g.agreement.Signed }},
		{ReasonNotParty, isParty},
		{ReasonCallerSigned, callerNotAccepted},
		{ReasonNotFunded, funded},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionDeposit: {
		{ReasonNotParty, isParty},
		{ReasonAlreadyFunded, func(g *guardInput) bool { return !g.agreement.Funded }},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionSubmitDelivery: {
		{ReasonNotProvider, isProvider},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonDeliveryPending, noDeliveryUnlessFinal},
		{ReasonCancelPending, noCancelPending},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionApproveDelivery: {
		{ReasonNotRecipient, isRecipient},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonNoDeliveryPending, deliveryPending},
		{ReasonCancelPending, noCancelPending},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionRejectDelivery: {
		{ReasonNotRecipient, isRecipient},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonNoDeliveryPending, deliveryPending},
		{ReasonCancelPending, noCancelPending},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionCancelOrder: {
		{ReasonNotParty, isParty},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonDeliveryPending, noDeliveryPending},
		{ReasonCancelPending, noCancelPending},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionApproveCancellation: {
		{ReasonNotParty, isParty},
		{ReasonOwnCancelRequest, notCancelInitiator},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonNoCancelPending, cancelPending},
		{ReasonCancelGraceNotOver, cancelGraceElapsed},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionRejectCancellation: {
		{ReasonNotParty, isParty},
		{ReasonOwnCancelRequest, notCancelInitiator},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonNoCancelPending, cancelPending},
		{ReasonCancelGraceOver, cancelGracePending},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionEnforceCancellationTimeout: {
		{ReasonNotParty, isParty},
		{ReasonNotOwnCancel, cancelInitiator},
		{ReasonNotSigned, signed},
		{ReasonNotFunded, funded},
		{ReasonNoCancelPending, cancelPending},
		{ReasonCancelGraceNotOver, cancelGraceElapsed},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionPartialAutoRelease: {
		{ReasonNotProvider, isProvider},
		{ReasonVestingEnabled, vestingDisabled},
		{ReasonNoDeliveryPending, deliveryPending},
		{ReasonGraceNotOver, partialGraceElapsed},
		{ReasonNoFundsRemaining, fundsRemaining},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionFinalAutoRelease: {
		{ReasonNotProvider, isProvider},
		{ReasonVestingEnabled, vestingDisabled},
		{ReasonNoDeliveryPending, deliveryPending},
		{ReasonGraceNotOver, finalGraceElapsed},
		{ReasonNoFundsRemaining, fundsRemaining},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
	},
	ActionClaimMilestone: {
		{ReasonMilestoneNotFound, milestoneExists},
		{ReasonNotProvider, isProvider},
		{ReasonVestingDisabled, vestingEnabled},
		{ReasonNotSigned, signed},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
		{ReasonMilestoneClaimed, milestoneUnclaimed},
		{ReasonMilestoneHeld, milestoneNotHeld},
		{ReasonMilestoneLocked, milestoneReady},
	},
	ActionSetMilestoneHold: {
		{ReasonMilestoneNotFound, milestoneExists},
		{ReasonNotRecipient, isRecipient},
		{ReasonVestingDisabled, vestingEnabled},
		{ReasonNotSigned, signed},
		{ReasonCompleted, notCompleted},
		{ReasonCancelled, notCancelled},
		{ReasonFrozen, notFrozen},
		{ReasonMilestoneClaimed, milestoneUnclaimed},
	},
}

// RequiredDeposit returns the value a deposit must carry for the given
// agreement: the full amount for native-asset agreements, zero for token
// agreements where funds move via transferFrom after approval
func RequiredDeposit(a *Agreement) *big.Int {
	if a.IsNativeAsset() {
		return new(big.Int).Set(a.Amount)
	}
	return new(big.Int)
}
