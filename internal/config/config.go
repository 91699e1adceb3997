package config

import (
	"strings"
	"time"
)

type DerivedConfig struct {
	WalletAddress string
}

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Blockchain struct {
		EthNodeAddress   string        `env:"ETH_NODE_ADDRESS"      flag:"eth-node-address"      validate:"required,url"`
		EthNodeFallback  string        `env:"ETH_NODE_FALLBACK"     flag:"eth-node-fallback"     validate:"omitempty,url"      desc:"secondary rpc endpoint used when the primary read fails"`
		UseSubscriptions bool          `env:"ETH_USE_SUBSCRIPTIONS" flag:"eth-use-subscriptions" desc:"use websocket subscriptions for blockchain events"`
		PollingInterval  time.Duration `env:"ETH_POLLING_INTERVAL"  flag:"eth-polling-interval"  validate:"omitempty,duration" desc:"interval between polling for blockchain events"`
		MaxReconnects    int           `env:"ETH_MAX_RECONNECTS"    flag:"eth-max-reconnects"    validate:"omitempty,number"   desc:"maximum number of reconnect attempts"`
		EthLegacyTx      bool          `env:"ETH_NODE_LEGACY_TX"    flag:"eth-node-legacy-tx"    desc:"use it to disable EIP-1559 transactions"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Escrow      struct {
		Address          string        `env:"ESCROW_ADDRESS"          flag:"escrow-address"          validate:"required,eth_addr"`
		Mnemonic         string        `env:"ESCROW_MNEMONIC"         flag:"escrow-mnemonic"         validate:"required_without=WalletPrivateKey"`
		WalletPrivateKey string        `env:"WALLET_PRIVATE_KEY"      flag:"wallet-private-key"      validate:"required_without=Mnemonic"`
		AccountIndex     int           `env:"ESCROW_ACCOUNT_INDEX"    flag:"escrow-account-index"    validate:"omitempty,number" desc:"derivation index when a mnemonic is used"`
		MaxSnapshotAge   time.Duration `env:"ESCROW_MAX_SNAPSHOT_AGE" flag:"escrow-max-snapshot-age" validate:"omitempty,duration" desc:"snapshots older than this are refetched before a guard decision"`
		WatchAgreements  string        `env:"ESCROW_WATCH_AGREEMENTS" flag:"escrow-watch-agreements" desc:"comma separated agreement ids to track at startup"`
	}
	Log struct {
		Color       bool   `env:"LOG_COLOR"        flag:"log-color"`
		FolderPath  string `env:"LOG_FOLDER_PATH"  flag:"log-folder-path"  validate:"omitempty,dirpath" desc:"enables file logging and sets the folder path"`
		IsProd      bool   `env:"LOG_IS_PROD"      flag:"log-is-prod"      validate:""                  desc:"affects the format of the log output"`
		JSON        bool   `env:"LOG_JSON"         flag:"log-json"`
		LevelApp    string `env:"LOG_LEVEL_APP"    flag:"log-level-app"    validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelEscrow string `env:"LOG_LEVEL_ESCROW" flag:"log-level-escrow" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelRPC    string `env:"LOG_LEVEL_RPC"    flag:"log-level-rpc"    validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"required,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url"          desc:"public url of the service, falls back to web-address if empty"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Blockchain
	if cfg.Blockchain.MaxReconnects == 0 {
		cfg.Blockchain.MaxReconnects = 30
	}
	if cfg.Blockchain.PollingInterval == 0 {
		cfg.Blockchain.PollingInterval = 10 * time.Second
	}

	// Escrow

	// normalizes private key
	cfg.Escrow.WalletPrivateKey = strings.TrimPrefix(cfg.Escrow.WalletPrivateKey, "0x")

	if cfg.Escrow.MaxSnapshotAge == 0 {
		cfg.Escrow.MaxSnapshotAge = 15 * time.Second
	}

	// Log
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelEscrow == "" {
		cfg.Log.LevelEscrow = "debug"
	}
	if cfg.Log.LevelRPC == "" {
		cfg.Log.LevelRPC = "info"
	}

	// Web
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
	if cfg.Web.PublicUrl == "" {
		cfg.Web.PublicUrl = "http://localhost:8080"
	}
}

// GetSanitized returns a copy of the config with sensitive data removed
// explicitly adding each field here to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.Blockchain.EthLegacyTx = cfg.Blockchain.EthLegacyTx
	publicCfg.Blockchain.UseSubscriptions = cfg.Blockchain.UseSubscriptions
	publicCfg.Blockchain.PollingInterval = cfg.Blockchain.PollingInterval
	publicCfg.Blockchain.MaxReconnects = cfg.Blockchain.MaxReconnects

	publicCfg.Environment = cfg.Environment

	publicCfg.Escrow.Address = cfg.Escrow.Address
	publicCfg.Escrow.AccountIndex = cfg.Escrow.AccountIndex
	publicCfg.Escrow.MaxSnapshotAge = cfg.Escrow.MaxSnapshotAge
	publicCfg.Escrow.WatchAgreements = cfg.Escrow.WatchAgreements

	publicCfg.Log.Color = cfg.Log.Color
	publicCfg.Log.FolderPath = cfg.Log.FolderPath
	publicCfg.Log.IsProd = cfg.Log.IsProd
	publicCfg.Log.JSON = cfg.Log.JSON
	publicCfg.Log.LevelApp = cfg.Log.LevelApp
	publicCfg.Log.LevelEscrow = cfg.Log.LevelEscrow
	publicCfg.Log.LevelRPC = cfg.Log.LevelRPC

	publicCfg.Web.Address = cfg.Web.Address
	publicCfg.Web.PublicUrl = cfg.Web.PublicUrl

	return publicCfg
}
