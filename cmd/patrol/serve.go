package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/patrol/internal/chain"
	"github.com/alfredjeanlab/patrol/internal/challenge"
	"github.com/alfredjeanlab/patrol/internal/coldkey"
	"github.com/alfredjeanlab/patrol/internal/config"
	"github.com/alfredjeanlab/patrol/internal/dashboard"
	"github.com/alfredjeanlab/patrol/internal/events"
	"github.com/alfredjeanlab/patrol/internal/export"
	"github.com/alfredjeanlab/patrol/internal/ingest"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/ownership"
	"github.com/alfredjeanlab/patrol/internal/scoring"
	"github.com/alfredjeanlab/patrol/internal/server"
	"github.com/alfredjeanlab/patrol/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the validator: ingest events, audit miners, serve status",
	GroupID: "validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogFormat)
		slog.SetDefault(logger)

		if cfg.ChainURL == "" {
			return errors.New("PATROL_CHAIN_URL is required")
		}
		roster, err := loadRoster(cfg)
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (PATROL_NATS_URL not set)")
		}

		reporters := dashboard.Multi{dashboard.NewPublisherClient(publisher)}
		if cfg.DashboardURL != "" {
			reporters = append(reporters, dashboard.NewHTTPClient(cfg.DashboardURL, cfg.DashboardToken, 0))
			logger.Info("dashboard reporting enabled", "url", cfg.DashboardURL)
		}

		tuning := cfg.Tuning
		rpc := chain.NewRPCClient(cfg.ChainURL, cfg.ChainToken, 0)
		miners := miner.NewHTTPClient(cfg.MinerTimeout, 0, logger)
		engine := scoring.NewEngine(store, tuning.Scoring, nil)
		batchOpts := []challenge.BatchOption{
			challenge.WithConcurrency(tuning.Batch.Concurrency),
			challenge.WithBlockLag(tuning.Chain.BlockLag),
			challenge.WithPublisher(publisher),
		}

		var batches []*challenge.Batch
		if cfg.EnableHotkeyOwnership {
			verifier := ownership.NewVerifier(rpc, tuning.Batch.VerifyConcurrency, logger)
			c := challenge.NewHotkeyOwnership(miners, verifier, engine, store, reporters, tuning.Chain.LowerBlock, logger)
			batches = append(batches, challenge.NewBatch(model.TaskHotkeyOwnership, c, challenge.HotkeyTargets{Store: store}, rpc, roster, logger, batchOpts...))
		}
		if cfg.EnableColdkeySearch {
			validator := coldkey.NewValidator(store, tuning.Chain.LowerBlock, logger)
			c := challenge.NewColdkeySearch(miners, validator, engine, store, reporters, logger)
			batches = append(batches, challenge.NewBatch(model.TaskColdkeySearch, c, challenge.ColdkeyTargets{Store: store}, rpc, roster, logger, batchOpts...))
		}

		// Start the gRPC health server.
		hs := health.NewServer()
		grpcServer := server.NewGRPCServer(hs, cfg.AuthToken, logger)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// Start HTTP server.
		status := server.New(store, store, tuning.Weights(), logger)
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           status.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start the event collector.
		var collector *ingest.Collector
		if cfg.IngestInterval > 0 {
			collector = ingest.NewCollector(rpc, store, tuning.Chain.LowerBlock, tuning.Chain.IngestWindow, cfg.IngestInterval, logger)
			collector.Start()
			logger.Info("event collector started", "interval", cfg.IngestInterval)
		}

		// Start the score export if any destinations are configured.
		var scheduler *export.Scheduler
		if cfg.ExportInterval > 0 && cfg.ExportS3Bucket != "" {
			dest, err := export.NewS3Destination(context.Background(), cfg.ExportS3Bucket, cfg.ExportS3Prefix, cfg.ExportS3Region, cfg.ExportS3Endpoint)
			if err != nil {
				logger.Error("failed to create S3 export destination", "err", err)
			} else {
				scheduler = export.NewScheduler(store, []export.Destination{dest}, cfg.ExportInterval, time.Now().UTC().Add(-cfg.ExportInterval), logger)
				scheduler.Start()
				logger.Info("score export started", "bucket", cfg.ExportS3Bucket, "prefix", cfg.ExportS3Prefix, "interval", cfg.ExportInterval)
			}
		}

		// Run audit batches until shutdown.
		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		for _, b := range batches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.RunEvery(ctx, cfg.BatchInterval)
			}()
		}

		logger.Info("patrol validator started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"tasks", len(batches),
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		cancel()
		wg.Wait()
		logger.Info("audit batches stopped")

		if collector != nil {
			collector.Stop()
			logger.Info("event collector stopped")
		}
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("score export stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
