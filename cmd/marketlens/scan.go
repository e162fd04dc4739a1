package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketlens/internal/blockres"
	"marketlens/internal/chain"
	"marketlens/internal/config"
	"marketlens/internal/correlate"
	"marketlens/internal/retrieve"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
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
	if cfg.Address == "" {
		return fmt.Errorf("wallet address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	resolver := blockres.NewResolver(chainClient, logger)
	orchestrator := retrieve.NewOrchestrator(chainClient, resolver, logger)
	correlator := correlate.NewCorrelator(chainClient, orchestrator, logger)

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("address", cfg.Address),
		zap.Bool("with_metadata", cfg.WithMetadata),
		zap.String("order", cfg.Order),
	)

	sales, err := correlator.SalesForUser(ctx, cfg.Address, cfg.WithMetadata, cfg.Order)
	if err != nil {
		return fmt.Errorf("scan sales: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sales)
}
