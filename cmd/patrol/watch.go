package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/events"
	"github.com/alfredjeanlab/patrol/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream validator events from NATS",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("nats-url")
		if url == "" {
			return errors.New("--nats-url or PATROL_NATS_URL is required")
		}
		topic, _ := cmd.Flags().GetString("topic")

		sub, err := events.NewNATSSubscriber(url)
		if err != nil {
			return err
		}
		defer sub.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return streamEvents(ctx, sub, topic)
	},
}

// streamEvents prints every payload on topic until ctx is done or the
// subscription closes.
func streamEvents(ctx context.Context, sub events.Subscriber, topic string) error {
	ch, unsubscribe, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if jsonOutput {
				fmt.Println(string(data))
				continue
			}
			fmt.Println(describeEvent(data))
		}
	}
}

func init() {
	watchCmd.Flags().String("nats-url", envOr("PATROL_NATS_URL", ""), "NATS server URL")
	watchCmd.Flags().String("topic", events.TopicAll, "subject to subscribe to")
}

// describeEvent renders one event payload as a single line. Payloads are
// sniffed by shape since the subscriber delivers raw bytes.
func describeEvent(data []byte) string {
	var batch events.BatchCompleted
	if err := json.Unmarshal(data, &batch); err == nil && batch.TaskType != "" {
		return fmt.Sprintf("%s %s %s audited=%d failed=%d max_block=%d",
			ui.RenderMuted(batch.FinishedAt.Local().Format(time.TimeOnly)),
			ui.RenderAccent("batch"),
			batch.TaskType,
			batch.Audited,
			batch.Failed,
			batch.MaxBlock,
		)
	}
	var rec events.ScoreRecorded
	if err := json.Unmarshal(data, &rec); err == nil && rec.Score != nil {
		sc := rec.Score
		return fmt.Sprintf("%s %s %s uid=%d %s %s",
			ui.RenderMuted(sc.CreatedAt.Local().Format(time.TimeOnly)),
			ui.RenderAccent("score"),
			sc.TaskType,
			sc.UID,
			ui.RenderVerdict(sc.ValidationPassed),
			formatScore(sc.OverallScore),
		)
	}
	return string(data)
}
