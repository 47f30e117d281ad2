// Package main is the entry point for the sieman log analyzer.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sieman/sieman/internal/config"
	"github.com/sieman/sieman/internal/ingest"
	"github.com/sieman/sieman/internal/metrics"
	"github.com/sieman/sieman/internal/parser"
	"github.com/sieman/sieman/internal/pipeline"
	"github.com/sieman/sieman/internal/server"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfgFile      string
	logLevel     string
	ingestorKind string
	parserKind   string
	listenAddr   string
	positionsAt  string
	startFrom    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "sieman",
		Short:   "Security log parsing and field extraction",
		Long:    `sieman ingests heterogeneous security logs (syslog, web access logs, JSON, CSV, free text) and emits structured records for alerting and reporting.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	parseCmd := &cobra.Command{
		Use:   "parse <path>",
		Short: "Ingest a file or directory and emit parsed records as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	parseCmd.Flags().StringVarP(&ingestorKind, "ingestor", "i", "generic", "ingestor kind (generic, syslog, windows)")
	parseCmd.Flags().StringVarP(&parserKind, "parser", "p", "generic", "parser kind (generic, syslog, web)")

	followCmd := &cobra.Command{
		Use:   "follow <path>",
		Short: "Follow a growing log file and emit parsed records as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runFollow,
	}
	followCmd.Flags().StringVarP(&parserKind, "parser", "p", "generic", "parser kind (generic, syslog, web)")
	followCmd.Flags().StringVar(&positionsAt, "positions", "", "positions file path")
	followCmd.Flags().StringVar(&startFrom, "from", "", "start position when no stored offset (beginning, end)")

	serveCmd := &cobra.Command{
		Use:   "serve <path>",
		Short: "Ingest a path and serve parsed records over HTTP and WebSocket",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&ingestorKind, "ingestor", "i", "generic", "ingestor kind (generic, syslog, windows)")
	serveCmd.Flags().StringVarP(&parserKind, "parser", "p", "generic", "parser kind (generic, syslog, web)")
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "a", "", "listen address")

	rootCmd.AddCommand(parseCmd, followCmd, serveCmd)

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Commit: ` + commit + `
Build Date: ` + buildDate + "\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration and root logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, setupLogger(cfg.Logging), nil
}

func runParse(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pl := pipeline.New(
		ingest.New(ingestorKind, nil, logger, nil),
		parser.New(parserKind, nil),
		logger,
		nil,
	)

	enc := json.NewEncoder(os.Stdout)
	count := 0
	for rec := range pl.Run(ctx, args[0]) {
		if err := enc.Encode(rec); err != nil {
			return err
		}
		count++
	}

	logger.Info().Int("records", count).Str("path", args[0]).Msg("Parse complete")
	return nil
}

func runFollow(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if positionsAt != "" {
		cfg.Follow.PositionsPath = positionsAt
	}
	if startFrom != "" {
		cfg.Follow.StartPosition = startFrom
	}

	positions, err := ingest.NewPositionStore(cfg.Follow.PositionsPath)
	if err != nil {
		return err
	}
	if err := positions.Load(); err != nil {
		logger.Warn().Err(err).Msg("Failed to load positions, starting fresh")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordCh := make(chan parser.Record, 1000)
	follower := ingest.NewFollower(
		args[0],
		positions,
		recordCh,
		logger,
		nil,
		cfg.Follow.PollInterval,
		cfg.Follow.StartPosition == "end",
	)

	go func() {
		if err := follower.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Follower error")
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Follow.SaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := positions.Save(); err != nil {
					logger.Error().Err(err).Msg("Failed to save positions")
				}
			}
		}
	}()

	p := parser.New(parserKind, nil)
	enc := json.NewEncoder(os.Stdout)

	for {
		select {
		case <-ctx.Done():
			if err := positions.Save(); err != nil {
				logger.Error().Err(err).Msg("Failed to save positions")
			}
			return nil
		case rec := <-recordCh:
			if err := enc.Encode(p.Parse(rec)); err != nil {
				return err
			}
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New()
	m.Register(registry)

	pl := pipeline.New(
		ingest.New(ingestorKind, nil, logger, m),
		parser.New(parserKind, nil),
		logger,
		m,
	)

	srv := server.New(cfg.Server, logger, registry)

	go srv.Consume(ctx, pl.Run(ctx, args[0]))

	logger.Info().
		Str("version", version).
		Str("path", args[0]).
		Str("listen", cfg.Server.ListenAddr).
		Msg("Starting sieman server")

	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingSettings) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var l zerolog.Level
	switch cfg.Level {
	case "debug":
		l = zerolog.DebugLevel
	case "info":
		l = zerolog.InfoLevel
	case "warn":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	default:
		l = zerolog.InfoLevel
	}

	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}

	return logger.
		Level(l).
		With().
		Timestamp().
		Str("service", "sieman").
		Logger()
}
