// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"frostswap.org/frostswap/client/app"
	"frostswap.org/frostswap/client/asset/btc"
	"frostswap.org/frostswap/client/core"
)

const appVersion = "0.1.0"

func main() {
	// Wrap the actual main so defers run in it.
	if err := mainCore(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configure() (*app.Config, error) {
	cfg := app.DefaultConfig
	if err := app.ParseCLIConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.ShowVer {
		fmt.Printf("fswapd version %s (Go version %s)\n", appVersion, runtime.Version())
		os.Exit(0)
	}
	appData, configPath := app.ResolveCLIConfigPaths(&cfg)
	if err := app.ParseFileConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	if err := app.ResolveConfig(appData, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mainCore() error {
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel() // don't leak on the earliest returns

	cfg, err := configure()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logMaker, closeLogger := app.InitLogging(cfg.LogPath, cfg.DebugLevel, true)
	defer closeLogger()
	log := logMaker.NewLogger("FSD")
	log.Infof("fswapd version %s (Go version %s) on %s", appVersion, runtime.Version(), cfg.Net)

	registry, err := app.LoadAssetRegistry(cfg.AssetsPath)
	if err != nil {
		return fmt.Errorf("asset registry error: %w", err)
	}

	chainClient := btc.NewEsploraClient(cfg.EsploraURL, logMaker.NewLogger("ESPL"))

	swapCore, err := core.New(&core.Config{
		Logger:      logMaker.NewLogger("CORE"),
		Registry:    registry,
		ChainParams: cfg.ChainParams(),
		Snapshots:   chainClient,
		TxStatuses:  chainClient,
		Signer:      &httpSigner{url: cfg.SignerURL},
		Broadcaster: chainClient,
		Pools:       newPoolClient(cfg.PoolAPIURL),
		FeeSchedule: newFeeClient(cfg.FeeAPIURL),
		Protocol:    core.ProtocolConfig{CustodyAddress: cfg.CustodyAddress},
	})
	if err != nil {
		return fmt.Errorf("error creating swap engine: %w", err)
	}

	// Shutdown on interrupt.
	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-killChan
		log.Infof("shutting down...")
		cancel()
	}()

	api := newAPIServer(swapCore, cfg.APIAddr, logMaker.NewLogger("API"))
	if err := api.run(appCtx); err != nil {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}
