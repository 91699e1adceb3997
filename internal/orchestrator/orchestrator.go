package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/repositories/contracts"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

const (
	// DefaultMaxSnapshotAge bounds how old a snapshot may be for
	// time-sensitive pre-flight checks before it must be refetched
	DefaultMaxSnapshotAge = 15 * time.Second

	recentTxCapacity = 64
)

var (
	ErrFlowInProgress = errors.New("a flow for this agreement and action is already running")
	ErrFlowNotIdle    = errors.New("flow is not idle, reset it before retrying")

	emptyHash = common.Hash{}
)

// Orchestrator sequences dependent ledger writes. For token-denominated
// payments it submits the ERC-20 approval first, waits for its receipt
// and only then submits the primary action, so the caller's funds are
// never pulled without prior authorization and no action is submitted
// that is locally known to fail.
//
// It never retries on its own: any rejection parks the flow in the
// error state with the underlying message verbatim, and only an
// explicit Reset makes it runnable again
type Orchestrator struct {
	// config
	maxSnapshotAge time.Duration

	// state
	flows     *lib.Collection[*Flow]
	recentTxs *lib.BoundStackMap[escrow.Action]

	// deps
	store     EscrowGateway
	token     TokenGateway
	wallet    Wallet
	onUpdated func(agreementID *big.Int)
	log       interfaces.ILogger
}

// NewOrchestrator creates the orchestrator. onUpdated is invoked after a
// confirmed write so the owner can refetch the snapshot and re-anchor
// countdowns; it may be nil
func NewOrchestrator(store EscrowGateway, token TokenGateway, wallet Wallet, onUpdated func(agreementID *big.Int), log interfaces.ILogger) *Orchestrator {
	return &Orchestrator{
		maxSnapshotAge: DefaultMaxSnapshotAge,
		flows:          lib.NewCollection[*Flow](),
		recentTxs:      lib.NewBoundStackMap[escrow.Action](recentTxCapacity),
		store:          store,
		token:          token,
		wallet:         wallet,
		onUpdated:      onUpdated,
		log:            log,
	}
}

// SetMaxSnapshotAge overrides how stale a snapshot may be before a
// guard decision forces a refetch
func (o *Orchestrator) SetMaxSnapshotAge(age time.Duration) {
	if age > 0 {
		o.maxSnapshotAge = age
	}
}

// RecentAction reports which action produced a recently confirmed
// transaction. Only the last confirmed writes are remembered
func (o *Orchestrator) RecentAction(txHash common.Hash) (escrow.Action, bool) {
	return o.recentTxs.Get(txHash.Hex())
}

// GetFlow returns the tracked flow for the agreement and action, if any
func (o *Orchestrator) GetFlow(agreementID *big.Int, action escrow.Action) (*Flow, bool) {
	return o.flows.Load(FlowKey(agreementID, action))
}

// Reset returns an errored flow to idle. Returns false when there is no
// flow or it is not in the error state
func (o *Orchestrator) Reset(agreementID *big.Int, action escrow.Action) bool {
	flow, ok := o.flows.Load(FlowKey(agreementID, action))
	if !ok {
		return false
	}
	return flow.reset()
}

// Check is the pre-flight validation UI forms use. It never mutates
// anything. A snapshot older than the freshness bound yields
// ErrStaleState; a guard denial yields ErrValidation with the reason
func (o *Orchestrator) Check(snap *escrow.Snapshot, req escrow.Request, now time.Time) error {
	if !snap.Fresh(now, o.maxSnapshotAge) {
		return lib.WrapError(escrow.ErrStaleState, errors.New("snapshot is older than "+o.maxSnapshotAge.String()))
	}
	verdict := escrow.Evaluate(snap, req, now)
	if !verdict.Allowed {
		return lib.WrapError(escrow.ErrValidation, errors.New(verdict.Reason))
	}
	return nil
}

// Execute runs one action flow to completion. The guard engine is
// re-evaluated against a freshly fetched snapshot immediately before
// each submission; a snapshot captured when the user opened a form is
// never trusted. Blocks until success or error
func (o *Orchestrator) Execute(ctx context.Context, agreementID *big.Int, req escrow.Request) (*Flow, error) {
	flow := NewFlow(agreementID, req)
	if existing, ok := o.flows.Load(flow.GetID()); ok {
		state := existing.State()
		if !state.terminal() && state != FlowStateIdle {
			return existing, ErrFlowInProgress
		}
		if state == FlowStateError {
			return existing, ErrFlowNotIdle
		}
		flow = existing
	} else {
		o.flows.Store(flow)
	}

	err := o.run(ctx, flow)
	if err != nil {
		return flow, err
	}
	return flow, nil
}

func (o *Orchestrator) run(ctx context.Context, flow *Flow) error {
	req := flow.Request()

	snap, err := o.store.GetSnapshot(ctx, flow.AgreementID())
	if err != nil {
		return err
	}

	verdict := escrow.Evaluate(snap, req, time.Now())
	if !verdict.Allowed {
		// never left idle: a guard denial is corrected locally, not retried
		return lib.WrapError(escrow.ErrValidation, errors.New(verdict.Reason))
	}

	if o.needsAuthorization(snap, req) {
		confirmed, err := o.authorize(ctx, flow, snap.Agreement)
		if err != nil {
			return err
		}
		if confirmed {
			// the allowance check and the action below race against other
			// tabs; the ledger is the final arbiter either way
			snap, err = o.store.GetSnapshot(ctx, flow.AgreementID())
			if err != nil {
				flow.transition(FlowStateError, emptyHash, err.Error())
				return err
			}
			verdict = escrow.Evaluate(snap, req, time.Now())
			if !verdict.Allowed {
				flow.transition(FlowStateError, emptyHash, verdict.Reason)
				return lib.WrapError(escrow.ErrValidation, errors.New(verdict.Reason))
			}
		}
	}

	flow.transition(FlowStateExecuting, emptyHash, "")

	tx, err := o.submit(ctx, snap, req)
	if err != nil {
		flow.transition(FlowStateError, emptyHash, err.Error())
		return lib.WrapError(escrow.ErrTransactionReverted, err)
	}

	flow.transition(FlowStateConfirming, tx.Hash(), "")

	err = o.store.WaitConfirmation(ctx, tx)
	if err != nil {
		flow.transition(FlowStateError, tx.Hash(), err.Error())
		return err
	}

	flow.transition(FlowStateSuccess, tx.Hash(), "")
	o.recentTxs.Push(tx.Hash().Hex(), req.Action)
	o.log.Infof("%s confirmed for agreement %s, tx %s", req.Action, flow.AgreementID(), tx.Hash())

	if o.onUpdated != nil {
		o.onUpdated(flow.AgreementID())
	}
	return nil
}

// needsAuthorization reports whether the flow must grant an ERC-20
// allowance first: only payments of non-native assets by the caller
func (o *Orchestrator) needsAuthorization(snap *escrow.Snapshot, req escrow.Request) bool {
	if req.Action != escrow.ActionDeposit {
		return false
	}
	return !snap.Agreement.IsNativeAsset()
}

// authorize runs the approval leg. Returns true when an approval
// transaction was actually submitted and confirmed; false when the
// existing allowance already covers the amount, which happens when a
// previous run of this flow died between approval and action
func (o *Orchestrator) authorize(ctx context.Context, flow *Flow, agreement *escrow.Agreement) (bool, error) {
	owner := o.wallet.GetAccountAddress()
	spender := o.store.Address()

	balance, err := o.token.BalanceOf(ctx, agreement.Asset, owner)
	if err != nil {
		flow.transition(FlowStateError, emptyHash, err.Error())
		return false, err
	}
	if balance.Cmp(agreement.Amount) < 0 {
		// transferFrom would revert regardless of allowance, so nothing
		// is submitted and the flow stays idle
		return false, lib.WrapError(escrow.ErrValidation, errors.New("token balance does not cover the amount"))
	}

	allowance, err := o.token.Allowance(ctx, agreement.Asset, owner, spender)
	if err != nil {
		flow.transition(FlowStateError, emptyHash, err.Error())
		return false, err
	}

	if allowance.Cmp(agreement.Amount) >= 0 {
		o.log.Infof("allowance %s already covers amount %s, resuming at execution", allowance, agreement.Amount)
		return false, nil
	}

	flow.transition(FlowStateAuthorizing, emptyHash, "")

	tx, err := o.token.Approve(ctx, agreement.Asset, spender, agreement.Amount, o.wallet.GetPrivateKey())
	if err != nil {
		flow.transition(FlowStateError, emptyHash, err.Error())
		return false, lib.WrapError(escrow.ErrAuthorizationRejected, err)
	}

	flow.transition(FlowStateConfirmingAuthorization, tx.Hash(), "")

	err = o.store.WaitConfirmation(ctx, tx)
	if err != nil {
		flow.transition(FlowStateError, tx.Hash(), err.Error())
		return false, lib.WrapError(escrow.ErrAuthorizationRejected, err)
	}

	return true, nil
}

func (o *Orchestrator) submit(ctx context.Context, snap *escrow.Snapshot, req escrow.Request) (*types.Transaction, error) {
	id := snap.Agreement.ID
	privKey := o.wallet.GetPrivateKey()

	switch req.Action {
	case escrow.ActionDeposit:
		// token deposits carry zero value, funds move via transferFrom
		return o.store.DepositFunds(ctx, id, escrow.RequiredDeposit(snap.Agreement), privKey)
	case escrow.ActionSign:
		return o.store.SignAgreement(ctx, id, privKey)
	case escrow.ActionSubmitDelivery:
		return o.store.SubmitDelivery(ctx, id, req.Final, privKey)
	case escrow.ActionApproveDelivery:
		return o.store.ApproveDelivery(ctx, id, true, privKey)
	case escrow.ActionRejectDelivery:
		return o.store.ApproveDelivery(ctx, id, false, privKey)
	case escrow.ActionCancelOrder:
		return o.store.CancelOrder(ctx, id, privKey)
	case escrow.ActionApproveCancellation:
		return o.store.ApproveCancellation(ctx, id, true, privKey)
	case escrow.ActionRejectCancellation:
		return o.store.ApproveCancellation(ctx, id, false, privKey)
	case escrow.ActionEnforceCancellationTimeout:
		return o.store.EnforceCancellationTimeout(ctx, id, privKey)
	case escrow.ActionPartialAutoRelease:
		return o.store.PartialAutoRelease(ctx, id, privKey)
	case escrow.ActionFinalAutoRelease:
		return o.store.FinalAutoRelease(ctx, id, privKey)
	case escrow.ActionClaimMilestone:
		return o.store.ClaimMilestone(ctx, id, req.MilestoneIndex, privKey)
	case escrow.ActionSetMilestoneHold:
		return o.store.SetMilestoneHold(ctx, id, req.MilestoneIndex, req.Hold, privKey)
	default:
		return nil, errors.New("unknown action: " + string(req.Action))
	}
}

// CreateAgreement validates the vesting plan locally, runs the approval
// leg when the creator funds a token agreement upfront, then submits the
// creation. The payer here is the creator, unlike the deposit flow where
// it is whichever party calls
func (o *Orchestrator) CreateAgreement(ctx context.Context, params contracts.CreateAgreementParams, percents []string, offsets []time.Duration) (*types.Transaction, error) {
	if len(percents) > 0 {
		plan, err := escrow.ValidatePlan(percents, offsets, params.DeadlineDuration)
		if err != nil {
			return nil, lib.WrapError(escrow.ErrValidation, err)
		}
		params.Plan = plan
	}

	if params.FundUpfront && params.Token != escrow.NativeAsset {
		owner := o.wallet.GetAccountAddress()
		spender := o.store.Address()

		allowance, err := o.token.Allowance(ctx, params.Token, owner, spender)
		if err != nil {
			return nil, err
		}
		if allowance.Cmp(params.Amount) < 0 {
			tx, err := o.token.Approve(ctx, params.Token, spender, params.Amount, o.wallet.GetPrivateKey())
			if err != nil {
				return nil, lib.WrapError(escrow.ErrAuthorizationRejected, err)
			}
			err = o.store.WaitConfirmation(ctx, tx)
			if err != nil {
				return nil, lib.WrapError(escrow.ErrAuthorizationRejected, err)
			}
		}
	}

	tx, err := o.store.CreateAgreement(ctx, params, o.wallet.GetPrivateKey())
	if err != nil {
		return nil, lib.WrapError(escrow.ErrTransactionReverted, err)
	}

	err = o.store.WaitConfirmation(ctx, tx)
	if err != nil {
		return nil, err
	}

	o.recentTxs.Push(tx.Hash().Hex(), "create")
	return tx, nil
}
