package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("ETH_NODE_ADDRESS", "wss://node.example.com")
	t.Setenv("ESCROW_ADDRESS", "0x8626f6940E2eb28930eFb4CeF49B2d1F2C9C1199")
	t.Setenv("WALLET_PRIVATE_KEY", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	var cfg Config
	args := []string{"app"}
	err := LoadConfig(&cfg, &args)
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 30, cfg.Blockchain.MaxReconnects)
	require.Equal(t, 10*time.Second, cfg.Blockchain.PollingInterval)
	require.Equal(t, 15*time.Second, cfg.Escrow.MaxSnapshotAge)
	require.Equal(t, "debug", cfg.Log.LevelApp)
	require.Equal(t, "0.0.0.0:8080", cfg.Web.Address)

	// the 0x prefix is stripped so the key feeds crypto.HexToECDSA directly
	require.Equal(t, "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", cfg.Escrow.WalletPrivateKey)
}

func TestLoadConfigFlagOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL_APP", "debug")

	var cfg Config
	args := []string{"app", "--log-level-app", "warn", "--web-address", "127.0.0.1:9090"}
	err := LoadConfig(&cfg, &args)
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.Log.LevelApp)
	require.Equal(t, "127.0.0.1:9090", cfg.Web.Address)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Setenv("ETH_NODE_ADDRESS", "wss://node.example.com")

	var cfg Config
	args := []string{"app"}
	err := LoadConfig(&cfg, &args)
	require.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoadConfigRejectsBadLogLevel(t *testing.T) {
	setRequiredEnv(t)

	var cfg Config
	args := []string{"app", "--log-level-app", "verbose"}
	err := LoadConfig(&cfg, &args)
	require.ErrorIs(t, err, ErrConfigValidation)
}

func TestGetSanitizedStripsSecrets(t *testing.T) {
	setRequiredEnv(t)

	var cfg Config
	args := []string{"app"}
	err := LoadConfig(&cfg, &args)
	require.NoError(t, err)

	sanitized, ok := cfg.GetSanitized().(Config)
	require.True(t, ok)
	require.Empty(t, sanitized.Escrow.WalletPrivateKey)
	require.Empty(t, sanitized.Escrow.Mnemonic)
	require.Empty(t, sanitized.Blockchain.EthNodeAddress)
	require.Equal(t, cfg.Escrow.Address, sanitized.Escrow.Address)
}
