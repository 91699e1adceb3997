package orchestrator

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Ghravitee/dex-court-sub000/internal/repositories/contracts"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

// EscrowGateway is the write/read surface of the escrow contract the
// orchestrator sequences transactions against
type EscrowGateway interface {
	Address() common.Address
	GetSnapshot(ctx context.Context, id *big.Int) (*escrow.Snapshot, error)
	WaitConfirmation(ctx context.Context, tx *types.Transaction) error

	CreateAgreement(ctx context.Context, params contracts.CreateAgreementParams, privKey string) (*types.Transaction, error)
	DepositFunds(ctx context.Context, id *big.Int, value *big.Int, privKey string) (*types.Transaction, error)
	SignAgreement(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error)
	SubmitDelivery(ctx context.Context, id *big.Int, finalDelivery bool, privKey string) (*types.Transaction, error)
	ApproveDelivery(ctx context.Context, id *big.Int, approve bool, privKey string) (*types.Transaction, error)
	CancelOrder(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error)
	ApproveCancellation(ctx context.Context, id *big.Int, approve bool, privKey string) (*types.Transaction, error)
	EnforceCancellationTimeout(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error)
	PartialAutoRelease(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error)
	FinalAutoRelease(ctx context.Context, id *big.Int, privKey string) (*types.Transaction, error)
	ClaimMilestone(ctx context.Context, id *big.Int, index int, privKey string) (*types.Transaction, error)
	SetMilestoneHold(ctx context.Context, id *big.Int, index int, hold bool, privKey string) (*types.Transaction, error)
}

// TokenGateway is the ERC-20 surface of the authorization phase
type TokenGateway interface {
	Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token common.Address, account common.Address) (*big.Int, error)
	Approve(ctx context.Context, token common.Address, spender common.Address, amount *big.Int, privKey string) (*types.Transaction, error)
}

// Wallet supplies the caller identity and signing key
type Wallet interface {
	GetAccountAddress() common.Address
	GetPrivateKey() string
}
