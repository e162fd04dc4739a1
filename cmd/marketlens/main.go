package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "marketlens",
		Short:        "NFT marketplace analytics backend",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 8080, "listen port")
	serveCmd.Flags().Duration("http-timeout", 0, "HTTP read/write timeout")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a wallet's platform sales",
		RunE:  runScan,
	}

	scanCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	scanCmd.Flags().String("address", "", "wallet address to scan")
	scanCmd.Flags().Bool("with-metadata", true, "include transfer metadata")
	scanCmd.Flags().String("order", "asc", "transfer ordering (asc, desc)")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
