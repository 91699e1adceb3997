package escrow

import "errors"

var (
	// ErrAgreementNotFound is returned by the snapshot reader when the
	// record does not exist on the ledger
	ErrAgreementNotFound = errors.New("agreement not found")
	// ErrUnknownSchema is returned when the positional tuple has a field
	// count no known decoder version matches
	ErrUnknownSchema = errors.New("unknown agreement tuple schema")

	// ErrValidation marks a guard engine denial, resolved locally and
	// never submitted to the ledger
	ErrValidation = errors.New("action not allowed")
	// ErrAuthorizationRejected marks a declined or failed token approval
	ErrAuthorizationRejected = errors.New("token authorization rejected")
	// ErrTransactionReverted marks the ledger rejecting the primary action
	// after submission, usually a race with another party
	ErrTransactionReverted = errors.New("transaction reverted")
	// ErrNetwork marks an unreachable or timed out remote endpoint
	ErrNetwork = errors.New("network error")
	// ErrStaleState marks a decision attempted on a snapshot captured
	// before a relevant deadline expired
	ErrStaleState = errors.New("stale snapshot")
)
