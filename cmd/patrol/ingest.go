package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/chain"
	"github.com/alfredjeanlab/patrol/internal/config"
	"github.com/alfredjeanlab/patrol/internal/ingest"
	"github.com/alfredjeanlab/patrol/internal/store/postgres"
	"github.com/alfredjeanlab/patrol/internal/ui"
)

var ingestCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Collect chain events up to the current head once and exit",
	GroupID: "validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.ChainURL == "" {
			return errors.New("PATROL_CHAIN_URL is required")
		}
		logger := newLogger(cfg.LogFormat)

		s, err := postgres.New(cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rpc := chain.NewRPCClient(cfg.ChainURL, cfg.ChainToken, 0)
		collector := ingest.NewCollector(rpc, s, cfg.Tuning.Chain.LowerBlock, cfg.Tuning.Chain.IngestWindow, 0, logger)
		res, err := collector.RunOnce(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(map[string]int{
				"inserted":  res.Inserted,
				"duplicate": res.Duplicates,
				"failed":    len(res.Failures),
			})
			return nil
		}
		fmt.Printf("%s %d inserted, %d duplicate, ", ui.RenderAccent("ingest:"), res.Inserted, res.Duplicates)
		if len(res.Failures) > 0 {
			fmt.Println(ui.RenderFail(fmt.Sprintf("%d failed", len(res.Failures))))
		} else {
			fmt.Println(ui.RenderMuted("0 failed"))
		}
		return nil
	},
}
