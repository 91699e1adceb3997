package escrow

// State is the closed lifecycle state computed once from the raw status
// flags at decode time. The ledger stores only the flags; the joint
// validity of a flag combination is asserted here so an unrecognized
// combination surfaces as StateInconsistent instead of being silently
// mapped to the nearest legal state
type State uint8

const (
	StateDraft State = iota
	StateAwaitingFunding
	StateAwaitingSignatures
	StateActive
	StateDeliveryPending
	StateCancellationPending
	StateDisputed
	StateFrozen
	StateCompleted
	StateCancelled
	StateInconsistent
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateAwaitingFunding:
		return "awaiting-funding"
	case StateAwaitingSignatures:
		return "awaiting-signatures"
	case StateActive:
		return "active"
	case StateDeliveryPending:
		return "delivery-pending"
	case StateCancellationPending:
		return "cancellation-pending"
	case StateDisputed:
		return "disputed"
	case StateFrozen:
		return "frozen"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "inconsistent"
	}
}

// DeriveState maps the raw flag set to the lifecycle state. Precedence:
// terminal states first, then dispute/freeze overlays, then the ordinary
// funding/signing/delivery progression
func DeriveState(a *Agreement) State {
	if !flagsConsistent(a) {
		return StateInconsistent
	}

	switch {
	case a.OrderCancelled:
		return StateCancelled
	case a.Completed:
		return StateCompleted
	case a.Frozen:
		return StateFrozen
	case a.Disputed:
		return StateDisputed
	case a.PendingCancellation:
		return StateCancellationPending
	case a.DeliverySubmitted:
		return StateDeliveryPending
	case a.Funded && a.Signed:
		return StateActive
	case a.Funded:
		return StateAwaitingSignatures
	case a.ID != nil && a.ID.Sign() > 0:
		return StateAwaitingFunding
	default:
		return StateDraft
	}
}

func flagsConsistent(a *Agreement) bool {
	// signed implies both parties accepted
	if a.Signed && !(a.AcceptedByProvider && a.AcceptedByRecipient) {
		return false
	}
	// remaining never exceeds total
	if a.Amount != nil && a.RemainingAmount != nil && a.RemainingAmount.Cmp(a.Amount) > 0 {
		return false
	}
	// completed and cancelled are mutually exclusive terminal states
	if a.Completed && a.OrderCancelled {
		return false
	}
	// delivery cannot be pending together with an unresolved cancellation
	if a.DeliverySubmitted && a.PendingCancellation {
		return false
	}
	// delivery and signatures require funding
	if (a.Signed || a.DeliverySubmitted) && !a.Funded {
		return false
	}
	return true
}
