package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/client"
	"github.com/alfredjeanlab/patrol/internal/config"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/store"
	"github.com/alfredjeanlab/patrol/internal/store/postgres"
	"github.com/alfredjeanlab/patrol/internal/ui"
)

var scoresCmd = &cobra.Command{
	Use:     "scores",
	Short:   "List recorded miner scores, newest first",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := scoreFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		scores, err := listScores(context.Background(), filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(scores)
			return nil
		}
		if len(scores) == 0 {
			fmt.Println(ui.RenderMuted("no scores"))
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "UID\tHOTKEY\tTASK\tVALID\tSCORE\tAVERAGE\tRESPONSE\tWHEN")
		for _, sc := range scores {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%.2fs\t%s\n",
				sc.UID,
				sc.Hotkey,
				sc.TaskType,
				ui.RenderVerdict(sc.ValidationPassed),
				formatScore(sc.OverallScore),
				formatScore(sc.OverallScoreMovingAverage),
				sc.ResponseTimeSeconds,
				ui.RenderMuted(formatAge(sc.CreatedAt)),
			)
		}
		return w.Flush()
	},
}

func init() {
	scoresCmd.Flags().String("task", "", "only scores for this task type")
	scoresCmd.Flags().String("hotkey", "", "only scores for this hotkey")
	scoresCmd.Flags().String("uid", "", "only scores for this uid")
	scoresCmd.Flags().Duration("since", 0, "only scores newer than this (e.g. 24h)")
	scoresCmd.Flags().Int("limit", 50, "maximum number of scores")
}

// listScores reads from --server when set and from the database otherwise.
func listScores(ctx context.Context, filter store.ScoreFilter) ([]*model.MinerScore, error) {
	if serverURL != "" {
		c := client.NewHTTPClient(serverURL, serverToken)
		defer c.Close()
		return c.ListScores(ctx, &client.ListScoresRequest{
			TaskType: filter.TaskType,
			Hotkey:   filter.Hotkey,
			UID:      filter.UID,
			Since:    filter.Since,
			Limit:    filter.Limit,
		})
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
	return s.ListScores(ctx, filter)
}

func scoreFilterFromFlags(cmd *cobra.Command) (store.ScoreFilter, error) {
	var filter store.ScoreFilter
	task, _ := cmd.Flags().GetString("task")
	if task != "" {
		filter.TaskType = model.TaskType(task)
		if !filter.TaskType.IsValid() {
			return filter, fmt.Errorf("unknown task type %q", task)
		}
	}
	filter.Hotkey, _ = cmd.Flags().GetString("hotkey")
	if uid, _ := cmd.Flags().GetString("uid"); uid != "" {
		n, err := strconv.Atoi(uid)
		if err != nil {
			return filter, fmt.Errorf("invalid uid %q", uid)
		}
		filter.UID = &n
	}
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		filter.Since = time.Now().UTC().Add(-since)
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	return filter, nil
}
