package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/repositories/contracts"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

var (
	providerAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipientAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenAddr     = common.HexToAddress("0x4444444444444444444444444444444444444444")
	escrowAddr    = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func newTx(nonce uint64) *types.Transaction {
	return types.NewTx(&types.LegacyTx{Nonce: nonce})
}

type gatewayMock struct {
	agreement *escrow.Agreement

	calls        []string
	depositValue *big.Int
	waitErr      error
	nonce        uint64
}

func (g *gatewayMock) Address() common.Address { return escrowAddr }

func (g *gatewayMock) GetSnapshot(ctx context.Context, id *big.Int) (*escrow.Snapshot, error) {
	g.calls = append(g.calls, "snapshot")
	return &escrow.Snapshot{Agreement: g.agreement.Copy(), FetchedAt: time.Now()}, nil
}

func (g *gatewayMock) WaitConfirmation(ctx context.Context, tx *types.Transaction) error {
	g.calls = append(g.calls, "wait")
	return g.waitErr
}

func (g *gatewayMock) tx(name string) (*types.Transaction, error) {
	g.calls = append(g.calls, name)
	g.nonce++
	return newTx(g.nonce), nil
}

func (g *gatewayMock) CreateAgreement(ctx context.Context, params contracts.CreateAgreementParams, privKey string) (*types.Transaction, error) {
	return g.tx("create")
}

func (g *gatewayMock) DepositFunds(ctx context.Context, id *big.Int, value *big.Int, privKey string) (*types.Transaction, error) {
	g.depositValue = value
	return g.tx("deposit")
}

func (g *gatewayMock) SignAgreement(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.tx("sign")
}

func (g *gatewayMock) SubmitDelivery(ctx context.Context, id *big.Int, finalDelivery bool, privKey string) (*types.Transaction, error) {
	return g.tx("submit-delivery")
}

func (g *gatewayMock) ApproveDelivery(ctx context.Context, id *big.Int, approve bool, privKey string) (*types.Transaction, error) {
	return g.tx("approve-delivery")
}

func (g *gatewayMock) CancelOrder(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.tx("cancel-order")
}

func (g *gatewayMock) ApproveCancellation(ctx context.Context, id *big.Int, approve bool, privKey string) (*types.Transaction, error) {
	return g.tx("approve-cancellation")
}

func (g *gatewayMock) EnforceCancellationTimeout(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.tx("enforce-cancellation-timeout")
}

func (g *gatewayMock) PartialAutoRelease(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.tx("partial-auto-release")
}

func (g *gatewayMock) FinalAutoRelease(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.tx("final-auto-release")
}

func (g *gatewayMock) ClaimMilestone(ctx context.Context, id *big.Int, index int, privKey string) (*types.Transaction, error) {
	return g.tx("claim-milestone")
}

func (g *gatewayMock) SetMilestoneHold(ctx context.Context, id *big.Int, index int, hold bool, privKey string) (*types.Transaction, error) {
	return g.tx("set-milestone-hold")
}

type tokenMock struct {
	allowance *big.Int
	balance   *big.Int

	approveCalls int
	approveErr   error
}

func (t *tokenMock) Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	return t.allowance, nil
}

func (t *tokenMock) BalanceOf(ctx context.Context, token common.Address, account common.Address) (*big.Int, error) {
	if t.balance == nil {
		return big.NewInt(1_000_000), nil
	}
	return t.balance, nil
}

func (t *tokenMock) Approve(ctx context.Context, token common.Address, spender common.Address, amount *big.Int, privKey string) (*types.Transaction, error) {
	t.approveCalls++
	if t.approveErr != nil {
		return nil, t.approveErr
	}
	return newTx(1000), nil
}

type walletMock struct{}

func (w *walletMock) GetAccountAddress() common.Address { return providerAddr }
func (w *walletMock) GetPrivateKey() string             { return "dead" }

func unfundedAgreement(asset common.Address) *escrow.Agreement {
	return &escrow.Agreement{
		ID:              big.NewInt(7),
		Creator:         providerAddr,
		Provider:        providerAddr,
		Recipient:       recipientAddr,
		Asset:           asset,
		Amount:          big.NewInt(1000),
		RemainingAmount: big.NewInt(1000),
	}
}

func newTestOrchestrator(gateway *gatewayMock, token *tokenMock) *Orchestrator {
	return NewOrchestrator(gateway, token, &walletMock{}, nil, &lib.LoggerMock{})
}

func TestExecuteNativeDepositSkipsApproval(t *testing.T) {
	gateway := &gatewayMock{agreement: unfundedAgreement(escrow.NativeAsset)}
	token := &tokenMock{allowance: big.NewInt(0)}
	orch := newTestOrchestrator(gateway, token)

	flow, err := orch.Execute(context.Background(), big.NewInt(7), escrow.Request{
		Action: escrow.ActionDeposit,
		Caller: providerAddr,
	})
	require.NoError(t, err)
	require.Equal(t, FlowStateSuccess, flow.State())

	require.Zero(t, token.approveCalls)
	require.Equal(t, []string{"snapshot", "deposit", "wait"}, gateway.calls)
	// native deposits carry the full amount as transaction value
	require.Equal(t, int64(1000), gateway.depositValue.Int64())

	// the confirmed hash resolves back to its action
	var txHash common.Hash
	for _, entry := range flow.Journal() {
		if entry.TxHash != (common.Hash{}) {
			txHash = entry.TxHash
		}
	}
	action, ok := orch.RecentAction(txHash)
	require.True(t, ok)
	require.Equal(t, escrow.ActionDeposit, action)
}

func TestExecuteTokenDepositApprovesFirst(t *testing.T) {
	gateway := &gatewayMock{agreement: unfundedAgreement(tokenAddr)}
	token := &tokenMock{allowance: big.NewInt(0)}
	orch := newTestOrchestrator(gateway, token)

	flow, err := orch.Execute(context.Background(), big.NewInt(7), escrow.Request{
		Action: escrow.ActionDeposit,
		Caller: providerAddr,
	})
	require.NoError(t, err)
	require.Equal(t, FlowStateSuccess, flow.State())

	require.Equal(t, 1, token.approveCalls)
	// approval confirmed, guard re-checked, then the deposit itself
	require.Equal(t, []string{"snapshot", "wait", "snapshot", "deposit", "wait"}, gateway.calls)
	// token deposits carry zero value, funds move via transferFrom
	require.Equal(t, int64(0), gateway.depositValue.Int64())

	states := []FlowState{}
	for _, entry := range flow.Journal() {
		states = append(states, entry.State)
	}
	require.Equal(t, []FlowState{
		FlowStateIdle,
		FlowStateAuthorizing,
		FlowStateConfirmingAuthorization,
		FlowStateExecuting,
		FlowStateConfirming,
		FlowStateSuccess,
	}, states)
}

func TestExecuteResumesWhenAllowanceCovers(t *testing.T) {
	gateway := &gatewayMock{agreement: unfundedAgreement(tokenAddr)}
	token := &tokenMock{allowance: big.NewInt(1000)}
	orch := newTestOrchestrator(gateway, token)

	flow, err := orch.Execute(context.Background(), big.NewInt(7), escrow.Request{
		Action: escrow.ActionDeposit,
		Caller: providerAddr,
	})
	require.NoError(t, err)
	require.Equal(t, FlowStateSuccess, flow.State())

	// a prior run already granted the allowance: no second approval
	require.Zero(t, token.approveCalls)
	require.Equal(t, []string{"snapshot", "deposit", "wait"}, gateway.calls)
}

func TestExecuteGuardDenialLeavesFlowIdle(t *testing.T) {
	funded := unfundedAgreement(escrow.NativeAsset)
	funded.Funded = true
	gateway := &gatewayMock{agreement: funded}
	orch := newTestOrchestrator(gateway, &tokenMock{allowance: big.NewInt(0)})

	flow, err := orch.Execute(context.Background(), big.NewInt(7), escrow.Request{
		Action: escrow.ActionDeposit,
		Caller: providerAddr,
	})
	require.ErrorIs(t, err, escrow.ErrValidation)
	require.Contains(t, err.Error(), escrow.ReasonAlreadyFunded)

	require.Equal(t, FlowStateIdle, flow.State())
	require.Equal(t, []string{"snapshot"}, gateway.calls)
}

func TestExecuteRevertParksFlowUntilReset(t *testing.T) {
	gateway := &gatewayMock{
		agreement: unfundedAgreement(escrow.NativeAsset),
		waitErr:   errors.New("execution reverted"),
	}
	orch := newTestOrchestrator(gateway, &tokenMock{allowance: big.NewInt(0)})
	req := escrow.Request{Action: escrow.ActionDeposit, Caller: providerAddr}

	flow, err := orch.Execute(context.Background(), big.NewInt(7), req)
	require.Error(t, err)
	require.Equal(t, FlowStateError, flow.State())
	require.Equal(t, "execution reverted", flow.Err())

	submissions := len(gateway.calls)

	// no automatic retry: the parked flow refuses to run again
	_, err = orch.Execute(context.Background(), big.NewInt(7), req)
	require.ErrorIs(t, err, ErrFlowNotIdle)
	require.Len(t, gateway.calls, submissions)

	// an explicit reset makes it runnable again
	require.True(t, orch.Reset(big.NewInt(7), escrow.ActionDeposit))
	require.Equal(t, FlowStateIdle, flow.State())

	gateway.waitErr = nil
	flow2, err := orch.Execute(context.Background(), big.NewInt(7), req)
	require.NoError(t, err)
	require.Equal(t, FlowStateSuccess, flow2.State())
	require.Equal(t, flow.FlowID(), flow2.FlowID())
}

func TestExecuteTokenDepositInsufficientBalance(t *testing.T) {
	gateway := &gatewayMock{agreement: unfundedAgreement(tokenAddr)}
	token := &tokenMock{allowance: big.NewInt(0), balance: big.NewInt(999)}
	orch := newTestOrchestrator(gateway, token)

	flow, err := orch.Execute(context.Background(), big.NewInt(7), escrow.Request{
		Action: escrow.ActionDeposit,
		Caller: providerAddr,
	})
	require.ErrorIs(t, err, escrow.ErrValidation)

	// nothing submitted, the flow stays runnable once funds arrive
	require.Equal(t, FlowStateIdle, flow.State())
	require.Zero(t, token.approveCalls)
	require.Equal(t, []string{"snapshot"}, gateway.calls)
}

func TestExecuteAuthorizationRejected(t *testing.T) {
	gateway := &gatewayMock{agreement: unfundedAgreement(tokenAddr)}
	token := &tokenMock{allowance: big.NewInt(0), approveErr: errors.New("user rejected signature")}
	orch := newTestOrchestrator(gateway, token)

	flow, err := orch.Execute(context.Background(), big.NewInt(7), escrow.Request{
		Action: escrow.ActionDeposit,
		Caller: providerAddr,
	})
	require.ErrorIs(t, err, escrow.ErrAuthorizationRejected)
	require.Equal(t, FlowStateError, flow.State())
	require.Equal(t, "user rejected signature", flow.Err())

	// the deposit was never submitted
	require.Equal(t, []string{"snapshot"}, gateway.calls)
}

func TestCheck(t *testing.T) {
	orch := newTestOrchestrator(&gatewayMock{}, &tokenMock{})
	now := time.Now()

	agreement := unfundedAgreement(escrow.NativeAsset)
	req := escrow.Request{Action: escrow.ActionDeposit, Caller: providerAddr}

	fresh := &escrow.Snapshot{Agreement: agreement, FetchedAt: now}
	require.NoError(t, orch.Check(fresh, req, now))

	stale := &escrow.Snapshot{Agreement: agreement, FetchedAt: now.Add(-time.Minute)}
	require.ErrorIs(t, orch.Check(stale, req, now), escrow.ErrStaleState)

	denied := escrow.Request{Action: escrow.ActionDeposit, Caller: common.Address{}}
	err := orch.Check(fresh, denied, now)
	require.ErrorIs(t, err, escrow.ErrValidation)
	require.Contains(t, err.Error(), escrow.ReasonNotParty)
}

func TestCreateAgreementValidatesPlanLocally(t *testing.T) {
	gateway := &gatewayMock{}
	orch := newTestOrchestrator(gateway, &tokenMock{})

	params := contracts.CreateAgreementParams{
		Provider:         providerAddr,
		Recipient:        recipientAddr,
		Token:            escrow.NativeAsset,
		Amount:           big.NewInt(1000),
		DeadlineDuration: 24 * time.Hour,
	}

	_, err := orch.CreateAgreement(context.Background(), params, []string{"60", "60"}, []time.Duration{0, time.Hour})
	require.ErrorIs(t, err, escrow.ErrValidation)
	require.Empty(t, gateway.calls)

	tx, err := orch.CreateAgreement(context.Background(), params, []string{"40", "60"}, []time.Duration{0, time.Hour})
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, []string{"create", "wait"}, gateway.calls)
}

func TestFlowJournalBounded(t *testing.T) {
	flow := NewFlow(big.NewInt(1), escrow.Request{Action: escrow.ActionSign})

	for i := 0; i < 3*maxJournalEntries; i++ {
		flow.transition(FlowStateExecuting, common.Hash{}, "")
	}
	require.Len(t, flow.Journal(), maxJournalEntries)
}

func TestFlowKeyIsPerAgreementAndAction(t *testing.T) {
	require.Equal(t, "7/deposit", FlowKey(big.NewInt(7), escrow.ActionDeposit))
	require.NotEqual(t,
		FlowKey(big.NewInt(7), escrow.ActionDeposit),
		FlowKey(big.NewInt(7), escrow.ActionSign),
	)
}
