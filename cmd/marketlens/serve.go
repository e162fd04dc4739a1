package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketlens/internal/analytics"
	"marketlens/internal/api"
	"marketlens/internal/blockres"
	"marketlens/internal/chain"
	"marketlens/internal/collection"
	"marketlens/internal/config"
	"marketlens/internal/correlate"
	"marketlens/internal/retrieve"
	"marketlens/internal/store"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	events := store.NewStoreWithPool(pool)
	collections := collection.NewDirectory(pool)
	resolver := blockres.NewResolver(chainClient, logger)
	orchestrator := retrieve.NewOrchestrator(chainClient, resolver, logger)
	correlator := correlate.NewCorrelator(chainClient, orchestrator, logger)

	service := analytics.NewService(events, collections, orchestrator, correlator, chainClient, resolver, logger)
	server := api.NewServer(service, cfg.HTTPTimeout, logger)

	logger.Info("serve start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
	)

	return server.Run(ctx, cfg.Host, cfg.Port)
}
