package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legacylift/internal/server"
	"legacylift/internal/session"
	"legacylift/internal/store"
)

var (
	servePort        string
	serveMaxSessions int
	serveRunTimeout  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		st, closeStore, err := openStore(ctx, cfg.Artifact, serveMaxSessions)
		if err != nil {
			return err
		}
		defer closeStore()

		reg, err := session.NewRegistry(serveMaxSessions)
		if err != nil {
			return err
		}
		h, err := server.NewHandler(a.pipeline, reg, server.Options{
			Store:          st,
			Logger:         logger,
			RunTimeout:     serveRunTimeout,
			AllowedOrigins: cfg.AllowedOrigins,
		})
		if err != nil {
			return err
		}

		addr := cfg.Port
		if cmd.Flags().Changed("port") {
			addr = servePort
		}
		srv := server.New(addr, server.NewMux(h), logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		if mr, ok := st.(store.MetricsReporter); ok {
			m := mr.Metrics()
			logger.Info("artifact store traffic",
				zap.Uint64("blob_hits", m.BlobHits),
				zap.Uint64("blob_misses", m.BlobMisses),
				zap.Uint64("origin_reads", m.OriginReads),
				zap.Uint64("origin_writes", m.OriginWrites),
				zap.Uint64("origin_read_errors", m.OriginReadErr),
				zap.Uint64("origin_write_errors", m.OriginWriteErr),
			)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown failed", zap.Error(err))
			return err
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", ":8080", "Listen address (overrides PORT)")
	serveCmd.Flags().IntVar(&serveMaxSessions, "max-sessions", session.DefaultMaxSessions, "Sessions kept before the oldest is evicted")
	serveCmd.Flags().DurationVar(&serveRunTimeout, "run-timeout", 10*time.Minute, "Upper bound for one migration (0 disables)")
}
