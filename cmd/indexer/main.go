package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/config"
	"github.com/galtspace/geo-explorer/internal/content"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/metrics"
	"github.com/galtspace/geo-explorer/internal/providers/ethereum"
	"github.com/galtspace/geo-explorer/internal/ratelimit"
	"github.com/galtspace/geo-explorer/internal/reconciler"
	"github.com/galtspace/geo-explorer/internal/store"
	"github.com/galtspace/geo-explorer/internal/syncer"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "indexer",
		},
		Service: "indexer",
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	defer logger.Sync()
	logger.InfoCtx(ctx, "Starting Geo Explorer Indexer")

	// Connect to database
	db, err := store.Open(cfg.Database.StoreConfig(cfg.Debug))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)
	dataStore := store.NewStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	httpClient := adapter.NewHTTPClient(cfg.Content.HTTPTimeout, 2*cfg.Content.HTTPTimeout)

	// Load contracts set
	contracts, err := ethereum.LoadContracts(cfg.Ethereum.ContractsFile)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load contracts", zap.Error(err), zap.String("path", cfg.Ethereum.ContractsFile))
	}

	// Initialize ethereum client. Subscriptions need a websocket endpoint when one is configured.
	url := cfg.Ethereum.WebSocketURL
	if url == "" {
		url = cfg.Ethereum.RPCURL
	}
	adapterEthClient, err := adapter.NewEthClientDialer().Dial(ctx, url)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum node", zap.Error(err))
	}
	ethereumClient := ethereum.NewClient(adapterEthClient, contracts)
	defer ethereumClient.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum node", zap.Int64("chain_id", cfg.Ethereum.ChainID))

	// Initialize content store, throttled per gateway
	gatewayLimiter, err := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.Content.RequestsPerSecond,
		Burst:             cfg.Content.Burst,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create gateway rate limiter", zap.Error(err))
	}
	contentStore, err := content.NewStore(httpClient, content.Config{
		IPFSGateways: cfg.Content.IPFSGateways,
		CacheSize:    cfg.Content.CacheSize,
		Limiter:      gatewayLimiter,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create content store", zap.Error(err))
	}

	// Initialize reconciler
	rec := reconciler.NewReconciler(reconciler.Config{
		SpaceGeoData:    contractAddress(contracts, ethereum.ContractSpaceGeoData),
		PropertyMarket:  contractAddress(contracts, ethereum.ContractPropertyMarket),
		PprFundFactory:  contractAddress(contracts, ethereum.ContractPprFundFactory),
		FirstOfferDelay: cfg.Sync.FirstOfferDelay,
		MaxCascadeDepth: cfg.Sync.MaxCascadeDepth,
	}, dataStore, ethereumClient, contentStore, clockAdapter)
	defer rec.Close()

	// Initialize metrics
	m := metrics.New()
	var metricsServer *http.Server
	if cfg.Metrics.ListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.InfoCtx(ctx, "Serving metrics", zap.String("address", cfg.Metrics.ListenAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorCtx(ctx, fmt.Errorf("metrics server failed: %w", err))
			}
		}()
	}

	// The configured deployment block overrides the one of the contracts file
	deploymentBlock := contracts.DeploymentBlock()
	if cfg.Sync.DeploymentBlock > 0 {
		deploymentBlock = cfg.Sync.DeploymentBlock
	}

	engine := syncer.NewSyncer(syncer.Config{
		EventTypes:               contracts.EventTypes(),
		DeploymentBlock:          deploymentBlock,
		WorkerPoolSize:           cfg.Sync.WorkerPoolSize,
		ReconnectInitialInterval: cfg.Sync.ReconnectInitialInterval,
		ReconnectMaxInterval:     cfg.Sync.ReconnectMaxInterval,
	}, ethereumClient, dataStore, rec, m, clockAdapter)

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel for sync errors
	errCh := make(chan error, 1)

	// Start syncing
	go func() {
		errCh <- engine.Run(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", "syncer"))
		}
		cancel()
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Geo Explorer Indexer stopped")
}

func contractAddress(contracts *ethereum.Contracts, name string) string {
	addr, ok := contracts.Address(name)
	if !ok {
		logger.Warn("Contract address not configured", zap.String("contract", name))
		return ""
	}
	return addr.Hex()
}
