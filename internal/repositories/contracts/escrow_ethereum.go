package contracts

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

// EscrowEthereum is the gateway to the on-chain escrow contract. Reads
// decode the positional tuples into the local model; writes build the
// transaction and return it unconfirmed, confirmation is a separate step
// so the orchestrator can drive multi-transaction flows
type EscrowEthereum struct {
	// config
	legacyTx   bool // use legacy transaction fee, for local node testing
	escrowAddr common.Address

	// state
	nonce uint64
	mutex lib.Mutex

	// deps
	boundV2    *bind.BoundContract
	boundV1    *bind.BoundContract
	client     EthereumClient
	fallback   EthereumClient // optional read-only fallback endpoint
	logWatcher LogWatcher
	log        interfaces.ILogger
}

func EscrowEthereumFactory(escrowAddr common.Address, client EthereumClient, forcePolling bool, maxReconnects int, pollingInterval time.Duration, log interfaces.ILogger) *EscrowEthereum {
	if client.SupportsSubscriptions() && !forcePolling {
		return NewEscrowEthereum(escrowAddr, client, NewLogWatcherSubscription(client, maxReconnects, log), log)
	}
	return NewEscrowEthereum(escrowAddr, client, NewLogWatcherPolling(client, pollingInterval, maxReconnects, log), log)
}

func NewEscrowEthereum(escrowAddr common.Address, client EthereumClient, logWatcher LogWatcher, log interfaces.ILogger) *EscrowEthereum {
	return &EscrowEthereum{
		escrowAddr: escrowAddr,
		boundV2:    bind.NewBoundContract(escrowAddr, escrowABIV2, client, client, client),
		boundV1:    bind.NewBoundContract(escrowAddr, escrowABIV1, client, client, client),
		client:     client,
		mutex:      lib.NewMutex(),
		logWatcher: logWatcher,
		log:        log,
	}
}

func (g *EscrowEthereum) SetLegacyTx(legacyTx bool) {
	g.legacyTx = legacyTx
}

// SetFallbackClient configures an alternate read endpoint used when the
// primary node is unreachable. Writes always go through the primary
func (g *EscrowEthereum) SetFallbackClient(client EthereumClient) {
	g.fallback = client
}

func (g *EscrowEthereum) GetClient() EthereumClient {
	return g.client
}

func (g *EscrowEthereum) Address() common.Address {
	return g.escrowAddr
}

// GetSnapshot fetches the agreement record and, when vesting is enabled,
// the milestone array, and decodes both into a fresh snapshot. The
// returned snapshot replaces any previous one wholesale
func (g *EscrowEthereum) GetSnapshot(ctx context.Context, id *big.Int) (*escrow.Snapshot, error) {
	agreement, version, warnings, err := g.GetAgreement(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := &escrow.Snapshot{
		Agreement:      agreement,
		SchemaVersion:  version,
		FetchedAt:      time.Now(),
		DecodeWarnings: warnings,
	}

	if !agreement.VestingEnabled {
		return snap, nil
	}

	count, err := g.GetMilestoneCount(ctx, id)
	if err != nil {
		return nil, err
	}

	milestones := make([]*escrow.Milestone, 0, count)
	for i := 0; i < count; i++ {
		m, mWarnings, err := g.GetMilestone(ctx, id, i)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
		snap.DecodeWarnings = append(snap.DecodeWarnings, mWarnings...)
	}
	snap.Milestones = milestones

	return snap, nil
}

// GetAgreement reads and decodes one agreement record. The current
// 30-field layout is tried first, the legacy 26-field one second
func (g *EscrowEthereum) GetAgreement(ctx context.Context, id *big.Int) (*escrow.Agreement, int, []string, error) {
	fields, err := g.callAgreement(ctx, g.boundV2, id)
	if err != nil {
		fields, err = g.callAgreement(ctx, g.boundV1, id)
	}
	if err != nil {
		return nil, 0, nil, lib.WrapError(escrow.ErrNetwork, err)
	}

	agreement, version, warnings, err := DecodeAgreement(fields)
	if err != nil {
		return nil, 0, nil, err
	}
	if agreement.ID.Sign() == 0 {
		return nil, 0, nil, escrow.ErrAgreementNotFound
	}
	for _, w := range warnings {
		g.log.Warnf("agreement %s decode: %s", id, w)
	}
	return agreement, version, warnings, nil
}

func (g *EscrowEthereum) callAgreement(ctx context.Context, bound *bind.BoundContract, id *big.Int) ([]interface{}, error) {
	var out []interface{}
	err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "getAgreement", id)
	if err != nil && g.fallback != nil {
		g.log.Warnf("primary endpoint read failed, trying fallback: %s", err)
		fallbackBound := bind.NewBoundContract(g.escrowAddr, escrowABIV2, g.fallback, g.fallback, g.fallback)
		out = out[:0]
		err = fallbackBound.Call(&bind.CallOpts{Context: ctx}, &out, "getAgreement", id)
	}
	return out, err
}

func (g *EscrowEthereum) GetMilestone(ctx context.Context, id *big.Int, index int) (*escrow.Milestone, []string, error) {
	var out []interface{}
	err := g.boundV2.Call(&bind.CallOpts{Context: ctx}, &out, "getMilestone", id, big.NewInt(int64(index)))
	if err != nil {
		return nil, nil, lib.WrapError(escrow.ErrNetwork, err)
	}
	return DecodeMilestone(index, out)
}

func (g *EscrowEthereum) GetMilestoneCount(ctx context.Context, id *big.Int) (int, error) {
	var out []interface{}
	err := g.boundV2.Call(&bind.CallOpts{Context: ctx}, &out, "getMilestoneCount", id)
	if err != nil {
		return 0, lib.WrapError(escrow.ErrNetwork, err)
	}
	d := &decoder{}
	count := d.bigInt(out, 0, "count")
	return int(count.Int64()), nil
}

// CreateAgreementParams carries the draft agreement. The vesting plan
// must already have passed escrow.ValidatePlan
type CreateAgreementParams struct {
	Provider         common.Address
	Recipient        common.Address
	Token            common.Address // escrow.NativeAsset for the native coin
	Amount           *big.Int
	DeadlineDuration time.Duration
	PrivateMode      bool
	Plan             []escrow.PlanMilestone // empty disables vesting
	FundUpfront      bool                   // creator deposits in the same transaction
}

func (g *EscrowEthereum) CreateAgreement(ctx context.Context, params CreateAgreementParams, privKey string) (*types.Transaction, error) {
	percents := make([]*big.Int, len(params.Plan))
	offsets := make([]*big.Int, len(params.Plan))
	for i, m := range params.Plan {
		percents[i] = big.NewInt(m.PercentBP)
		offsets[i] = big.NewInt(int64(m.Offset / time.Second))
	}

	value := new(big.Int)
	if params.FundUpfront && params.Token == escrow.NativeAsset {
		value.Set(params.Amount)
	}

	return g.transact(ctx, privKey, value, "createAgreement",
		params.Provider, params.Recipient, params.Token, params.Amount,
		big.NewInt(int64(params.DeadlineDuration/time.Second)), params.PrivateMode,
		percents, offsets)
}

// DepositFunds carries the full amount as native value for native-asset
// agreements; token agreements send zero value and move funds through
// the token's transferFrom, which requires a prior approval
func (g *EscrowEthereum) DepositFunds(ctx context.Context, id *big.Int, value *big.Int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, value, "depositFunds", id)
}

func (g *EscrowEthereum) SignAgreement(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "signAgreement", id)
}

func (g *EscrowEthereum) SubmitDelivery(ctx context.Context, id *big.Int, finalDelivery bool, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "submitDelivery", id, finalDelivery)
}

func (g *EscrowEthereum) ApproveDelivery(ctx context.Context, id *big.Int, approve bool, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "approveDelivery", id, approve)
}

func (g *EscrowEthereum) CancelOrder(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "cancelOrder", id)
}

func (g *EscrowEthereum) ApproveCancellation(ctx context.Context, id *big.Int, approve bool, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "approveCancellation", id, approve)
}

func (g *EscrowEthereum) EnforceCancellationTimeout(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "enforceCancellationTimeout", id)
}

func (g *EscrowEthereum) PartialAutoRelease(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "partialAutoRelease", id)
}

func (g *EscrowEthereum) FinalAutoRelease(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "finalAutoRelease", id)
}

func (g *EscrowEthereum) ClaimMilestone(ctx context.Context, id *big.Int, index int, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "claimMilestone", id, big.NewInt(int64(index)))
}

func (g *EscrowEthereum) SetMilestoneHold(ctx context.Context, id *big.Int, index int, hold bool, privKey string) (*types.Transaction, error) {
	return g.transact(ctx, privKey, nil, "setMilestoneHold", id, big.NewInt(int64(index)), hold)
}

// WaitConfirmation blocks until the transaction is mined. A receipt with
// a failed status becomes ErrTransactionReverted
func (g *EscrowEthereum) WaitConfirmation(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return lib.WrapError(escrow.ErrNetwork, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return escrow.ErrTransactionReverted
	}
	return nil
}

func (g *EscrowEthereum) CreateEscrowSubscription(ctx context.Context) (*lib.Subscription, error) {
	return g.logWatcher.Watch(ctx, g.escrowAddr, CreateEventMapper(escrowEventFactory, &escrowABIV2), nil)
}

func (g *EscrowEthereum) transact(ctx context.Context, privKey string, value *big.Int, method string, args ...interface{}) (*types.Transaction, error) {
	opts, err := g.getTransactOpts(ctx, privKey)
	if err != nil {
		return nil, err
	}
	if value != nil {
		opts.Value = value
	}

	tx, err := g.boundV2.Transact(opts, method, args...)
	if err != nil {
		g.log.Errorf("%s: %s", method, err)
		return nil, err
	}

	g.log.Debugf("%s submitted, tx %s", method, tx.Hash())
	return tx, nil
}

func (g *EscrowEthereum) getTransactOpts(ctx context.Context, privKey string) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(privKey)
	if err != nil {
		return nil, err
	}

	chainID, err := g.client.ChainID(ctx)
	if err != nil {
		return nil, lib.WrapError(escrow.ErrNetwork, err)
	}

	transactOpts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, err
	}

	if g.legacyTx {
		gasPrice, err := g.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, lib.WrapError(escrow.ErrNetwork, err)
		}
		transactOpts.GasPrice = gasPrice
	}

	fromAddr, err := lib.PrivKeyToAddr(privateKey)
	if err != nil {
		return nil, err
	}

	nonce, err := g.getNonce(ctx, fromAddr)
	if err != nil {
		return nil, err
	}

	transactOpts.Value = big.NewInt(0)
	transactOpts.Nonce = nonce
	transactOpts.Context = ctx

	return transactOpts, nil
}

func (g *EscrowEthereum) getNonce(ctx context.Context, from common.Address) (*big.Int, error) {
	err := g.mutex.LockCtx(ctx)
	if err != nil {
		return nil, err
	}
	defer g.mutex.Unlock()

	nonce := &big.Int{}
	blockchainNonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nonce, lib.WrapError(escrow.ErrNetwork, err)
	}

	if g.nonce > blockchainNonce {
		nonce.SetUint64(g.nonce)
	} else {
		nonce.SetUint64(blockchainNonce)
	}

	g.nonce = nonce.Uint64() + 1

	return nonce, nil
}
