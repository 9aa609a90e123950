package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/client"
	"github.com/alfredjeanlab/patrol/internal/config"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/scoring"
	"github.com/alfredjeanlab/patrol/internal/server"
	"github.com/alfredjeanlab/patrol/internal/store/postgres"
)

var weightsCmd = &cobra.Command{
	Use:     "weights",
	Short:   "Show the weights the validator would set now",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		weights, err := currentWeights(ctx)
		if err != nil {
			return err
		}
		if normalize, _ := cmd.Flags().GetBool("normalize"); normalize {
			weights = scoring.NormalizeScores(weights)
		}

		sorted := server.SortedWeights(weights)
		if jsonOutput {
			printJSON(sorted)
			return nil
		}
		w := newTable()
		fmt.Fprintln(w, "UID\tHOTKEY\tWEIGHT")
		for _, wt := range sorted {
			fmt.Fprintf(w, "%d\t%s\t%s\n", wt.UID, wt.Hotkey, formatScore(wt.Weight))
		}
		return w.Flush()
	},
}

func init() {
	weightsCmd.Flags().Bool("normalize", false, "scale weights to sum to 1")
}

// currentWeights asks --server when set. Otherwise it blends the stored
// moving averages, restricted to the roster when one is configured.
func currentWeights(ctx context.Context) (map[model.MinerKey]float64, error) {
	if serverURL != "" {
		c := client.NewHTTPClient(serverURL, serverToken)
		defer c.Close()
		list, err := c.Weights(ctx)
		if err != nil {
			return nil, err
		}
		weights := make(map[model.MinerKey]float64, len(list))
		for _, w := range list {
			weights[model.MinerKey{Hotkey: w.Hotkey, UID: w.UID}] = w.Weight
		}
		return weights, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	s, err := postgres.New(cfg.DatabaseURL, newLogger(cfg.LogFormat))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var registered []model.MinerKey
	if roster, err := loadRoster(cfg); err == nil {
		miners, err := roster.Miners(ctx)
		if err != nil {
			return nil, err
		}
		registered = miner.Keys(miners)
	}
	return scoring.LatestWeights(ctx, s, cfg.Tuning.Weights(), registered)
}
