package orchestrator

// FlowState is the sub-state of one approve-then-act flow. The happy
// path is Idle → Authorizing → ConfirmingAuthorization → Executing →
// Confirming → Success; flows on native assets or with a sufficient
// existing allowance skip straight to Executing
type FlowState uint8

const (
	FlowStateIdle FlowState = iota
	FlowStateAuthorizing
	FlowStateConfirmingAuthorization
	FlowStateExecuting
	FlowStateConfirming
	FlowStateSuccess
	FlowStateError
)

func (s FlowState) String() string {
	switch s {
	case FlowStateIdle:
		return "idle"
	case FlowStateAuthorizing:
		return "authorizing"
	case FlowStateConfirmingAuthorization:
		return "confirming-authorization"
	case FlowStateExecuting:
		return "executing"
	case FlowStateConfirming:
		return "confirming"
	case FlowStateSuccess:
		return "success"
	case FlowStateError:
		return "error"
	default:
		return "unknown"
	}
}

// terminal reports whether the flow finished, successfully or not
func (s FlowState) terminal() bool {
	return s == FlowStateSuccess || s == FlowStateError
}
