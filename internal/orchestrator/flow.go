package orchestrator

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gammazero/deque"
	"github.com/google/uuid"

	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

const maxJournalEntries = 32

// Transition is one recorded state change of a flow, kept for diagnostics
type Transition struct {
	State  FlowState
	At     time.Time
	TxHash common.Hash
	Err    string
}

// Flow is one resumable approve-then-act saga, keyed by agreement and
// action so a restarted client resumes instead of double-submitting
type Flow struct {
	// identity
	flowID      string
	agreementID *big.Int
	request     escrow.Request

	// state
	mutex   sync.RWMutex
	state   FlowState
	journal *deque.Deque[Transition]
	errMsg  string
}

func NewFlow(agreementID *big.Int, request escrow.Request) *Flow {
	f := &Flow{
		flowID:      uuid.NewString(),
		agreementID: agreementID,
		request:     request,
		state:       FlowStateIdle,
		journal:     deque.New[Transition](),
	}
	f.journal.PushBack(Transition{State: FlowStateIdle, At: time.Now()})
	return f
}

// GetID implements the collection key: one live flow per agreement+action
func (f *Flow) GetID() string {
	return FlowKey(f.agreementID, f.request.Action)
}

func FlowKey(agreementID *big.Int, action escrow.Action) string {
	return fmt.Sprintf("%s/%s", agreementID.String(), action)
}

func (f *Flow) FlowID() string {
	return f.flowID
}

func (f *Flow) AgreementID() *big.Int {
	return f.agreementID
}

func (f *Flow) Request() escrow.Request {
	return f.request
}

func (f *Flow) State() FlowState {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.state
}

// Err returns the verbatim underlying message of a failed flow
func (f *Flow) Err() string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.errMsg
}

// Journal returns a copy of the recorded transitions, oldest first
func (f *Flow) Journal() []Transition {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	entries := make([]Transition, f.journal.Len())
	for i := 0; i < f.journal.Len(); i++ {
		entries[i] = f.journal.At(i)
	}
	return entries
}

func (f *Flow) transition(state FlowState, txHash common.Hash, errMsg string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.state = state
	f.errMsg = errMsg
	if f.journal.Len() == maxJournalEntries {
		f.journal.PopFront()
	}
	f.journal.PushBack(Transition{
		State:  state,
		At:     time.Now(),
		TxHash: txHash,
		Err:    errMsg,
	})
}

// reset returns an errored flow to idle so the user can retry. Flows are
// never retried automatically
func (f *Flow) reset() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.state != FlowStateError {
		return false
	}
	f.state = FlowStateIdle
	f.errMsg = ""
	if f.journal.Len() == maxJournalEntries {
		f.journal.PopFront()
	}
	f.journal.PushBack(Transition{State: FlowStateIdle, At: time.Now()})
	return true
}
