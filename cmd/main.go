package main

import (
	"context"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Ghravitee/dex-court-sub000/internal/agreementmanager"
	"github.com/Ghravitee/dex-court-sub000/internal/config"
	"github.com/Ghravitee/dex-court-sub000/internal/handlers/httphandlers"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/orchestrator"
	"github.com/Ghravitee/dex-court-sub000/internal/repositories/contracts"
	"github.com/Ghravitee/dex-court-sub000/internal/repositories/wallet"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		panic(err)
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FolderPath)
	if err != nil {
		panic(err)
	}

	escrowLog, err := lib.NewLogger(cfg.Log.LevelEscrow, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FolderPath)
	if err != nil {
		panic(err)
	}

	rpcLog, err := lib.NewLogger(cfg.Log.LevelRPC, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FolderPath)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	defer func() {
		_ = log.Sync()
	}()

	var wlt *wallet.EthereumWallet
	if cfg.Escrow.Mnemonic != "" {
		wlt, err = wallet.NewEthereumWalletFromMnemonic(cfg.Escrow.Mnemonic, cfg.Escrow.AccountIndex)
	} else {
		wlt, err = wallet.NewEthereumWalletFromPrivateKey(cfg.Escrow.WalletPrivateKey)
	}
	if err != nil {
		panic(err)
	}
	log.Infof("wallet address: %s", wlt.GetAccountAddress().Hex())

	ethClient, err := contracts.DialContext(ctx, cfg.Blockchain.EthNodeAddress)
	if err != nil {
		panic(err)
	}

	store := contracts.EscrowEthereumFactory(
		common.HexToAddress(cfg.Escrow.Address),
		ethClient,
		!cfg.Blockchain.UseSubscriptions,
		cfg.Blockchain.MaxReconnects,
		cfg.Blockchain.PollingInterval,
		rpcLog.Named("ESCROW"),
	)
	store.SetLegacyTx(cfg.Blockchain.EthLegacyTx)

	if cfg.Blockchain.EthNodeFallback != "" {
		fallbackClient, err := contracts.DialContext(ctx, cfg.Blockchain.EthNodeFallback)
		if err != nil {
			log.Warnf("fallback node unavailable: %s", err)
		} else {
			store.SetFallbackClient(fallbackClient)
		}
	}

	token := contracts.NewTokenEthereum(store, rpcLog.Named("ERC20"))

	var manager *agreementmanager.AgreementManager
	manager = agreementmanager.NewAgreementManager(store, func(id *big.Int, deadline string) {
		// time based flags changed, refetch so reads and guard
		// decisions see them
		go manager.RefreshAgreement(ctx, id)
	}, escrowLog.Named("MANAGER"))

	orch := orchestrator.NewOrchestrator(store, token, wlt, func(id *big.Int) {
		go manager.RefreshAgreement(ctx, id)
	}, escrowLog.Named("ORCHESTRATOR"))
	orch.SetMaxSnapshotAge(cfg.Escrow.MaxSnapshotAge)

	for _, raw := range strings.Split(cfg.Escrow.WatchAgreements, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			log.Warnf("skipping invalid agreement id %q", raw)
			continue
		}
		if _, err := manager.Watch(ctx, id); err != nil {
			log.Warnf("cannot watch agreement %s: %s", id.String(), err)
		}
	}

	publicUrl, err := url.Parse(cfg.Web.PublicUrl)
	if err != nil {
		panic(err)
	}

	derivedCfg := &config.DerivedConfig{
		WalletAddress: wlt.GetAccountAddress().Hex(),
	}

	handl := httphandlers.NewHTTPHandler(manager, orch, &cfg, derivedCfg, publicUrl, log.Named("HTTP"))

	httpServer := &http.Server{
		Addr:    cfg.Web.Address,
		Handler: handl,
	}

	g, errCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return manager.Run(errCtx)
	})

	g.Go(func() error {
		log.Infof("http server is listening: %s", cfg.Web.Address)
		err := httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-errCtx.Done()
		return httpServer.Shutdown(context.Background())
	})

	err = g.Wait()
	log.Infof("App exited due to %s", err)
}
