package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

// TokenEthereum wraps the ERC-20 surface the authorization phase needs:
// reading the current allowance and granting a new one
type TokenEthereum struct {
	// deps
	escrowGateway *EscrowEthereum
	client        EthereumClient
	log           interfaces.ILogger
}

func NewTokenEthereum(escrowGateway *EscrowEthereum, log interfaces.ILogger) *TokenEthereum {
	return &TokenEthereum{
		escrowGateway: escrowGateway,
		client:        escrowGateway.GetClient(),
		log:           log,
	}
}

func (t *TokenEthereum) bound(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, erc20ABI, t.client, t.client, t.client)
}

func (t *TokenEthereum) Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	var out []interface{}
	err := t.bound(token).Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender)
	if err != nil {
		return nil, lib.WrapError(escrow.ErrNetwork, err)
	}
	if len(out) == 0 {
		return new(big.Int), nil
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return new(big.Int), nil
	}
	return allowance, nil
}

func (t *TokenEthereum) BalanceOf(ctx context.Context, token common.Address, account common.Address) (*big.Int, error) {
	var out []interface{}
	err := t.bound(token).Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account)
	if err != nil {
		return nil, lib.WrapError(escrow.ErrNetwork, err)
	}
	if len(out) == 0 {
		return new(big.Int), nil
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return new(big.Int), nil
	}
	return balance, nil
}

// Approve grants the escrow contract permission to pull amount of token
// from the caller. Submitted unconfirmed, like every other write
func (t *TokenEthereum) Approve(ctx context.Context, token common.Address, spender common.Address, amount *big.Int, privKey string) (*types.Transaction, error) {
	opts, err := t.escrowGateway.getTransactOpts(ctx, privKey)
	if err != nil {
		return nil, err
	}

	tx, err := t.bound(token).Transact(opts, "approve", spender, amount)
	if err != nil {
		t.log.Errorf("approve: %s", err)
		return nil, err
	}

	t.log.Debugf("approve submitted, tx %s", tx.Hash())
	return tx, nil
}
