package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/Ghravitee/dex-court-sub000/internal/lib"
)

// EthereumWallet supplies the caller identity and signing key, either
// derived from a BIP-39 mnemonic or taken as a raw private key
type EthereumWallet struct {
	address    common.Address
	privateKey string
}

func NewEthereumWalletFromMnemonic(mnemonic string, accountIndex int) (*EthereumWallet, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	path := hdwallet.MustParseDerivationPath(fmt.Sprintf("m/44'/60'/0'/0/%d", accountIndex))

	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, err
	}

	address, err := wallet.Address(account)
	if err != nil {
		return nil, err
	}

	privateKey, err := wallet.PrivateKeyHex(account)
	if err != nil {
		return nil, err
	}

	return &EthereumWallet{
		address:    address,
		privateKey: privateKey,
	}, nil
}

func NewEthereumWalletFromPrivateKey(privateKey string) (*EthereumWallet, error) {
	address, err := lib.PrivKeyStringToAddr(privateKey)
	if err != nil {
		return nil, err
	}

	return &EthereumWallet{
		address:    address,
		privateKey: privateKey,
	}, nil
}

func (w *EthereumWallet) GetAccountAddress() common.Address {
	return w.address
}

func (w *EthereumWallet) GetPrivateKey() string {
	return w.privateKey
}
