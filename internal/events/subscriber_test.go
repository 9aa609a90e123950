package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// pubSub returns a publisher and a subscriber on the same embedded server.
func pubSub(t *testing.T) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestNATSSubscriber_ScoreRecorded(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	score := &model.MinerScore{
		ID:                        uuid.New(),
		BatchID:                   uuid.New(),
		UID:                       12,
		Hotkey:                    "5Hotkey",
		OverallScore:              0.75,
		OverallScoreMovingAverage: 0.5,
		ValidationPassed:          true,
		TaskType:                  model.TaskHotkeyOwnership,
	}
	if err := pub.Publish(context.Background(), TopicScoreRecorded, ScoreRecorded{Score: score}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var got ScoreRecorded
	if err := json.Unmarshal(receive(t, ch), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.Score == nil {
		t.Fatal("payload has no score")
	}
	if got.Score.ID != score.ID || got.Score.BatchID != score.BatchID {
		t.Errorf("ids = %v/%v, want %v/%v", got.Score.ID, got.Score.BatchID, score.ID, score.BatchID)
	}
	if got.Score.UID != 12 || got.Score.OverallScore != 0.75 || !got.Score.ValidationPassed || got.Score.TaskType != model.TaskHotkeyOwnership {
		t.Errorf("score = %+v", got.Score)
	}
}

func TestNATSSubscriber_TopicFilter(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(TopicBatchCompleted)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	if err := pub.Publish(ctx, TopicScoreRecorded, ScoreRecorded{Score: &model.MinerScore{UID: 1}}); err != nil {
		t.Fatalf("Publish score: %v", err)
	}
	batch := BatchCompleted{
		BatchID:    uuid.New(),
		TaskType:   model.TaskColdkeySearch,
		MaxBlock:   4920341,
		Audited:    8,
		Failed:     2,
		FinishedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(ctx, TopicBatchCompleted, batch); err != nil {
		t.Fatalf("Publish batch: %v", err)
	}

	var got BatchCompleted
	if err := json.Unmarshal(receive(t, ch), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.BatchID != batch.BatchID || got.TaskType != batch.TaskType || got.MaxBlock != batch.MaxBlock ||
		got.Audited != batch.Audited || got.Failed != batch.Failed || !got.FinishedAt.Equal(batch.FinishedAt) {
		t.Errorf("batch = %+v, want %+v", got, batch)
	}

	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSSubscriber_AllTopics(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	if err := pub.Publish(ctx, TopicBatchCompleted, BatchCompleted{TaskType: model.TaskHotkeyOwnership, Audited: 3}); err != nil {
		t.Fatalf("Publish batch: %v", err)
	}
	if err := pub.Publish(ctx, TopicScoreRecorded, ScoreRecorded{Score: &model.MinerScore{UID: 7}}); err != nil {
		t.Fatalf("Publish score: %v", err)
	}

	var batches, scores int
	for range 2 {
		var payload struct {
			TaskType model.TaskType    `json:"task_type"`
			Score    *model.MinerScore `json:"score"`
		}
		if err := json.Unmarshal(receive(t, ch), &payload); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		switch {
		case payload.TaskType != "":
			batches++
		case payload.Score != nil:
			scores++
		}
	}
	if batches != 1 || scores != 1 {
		t.Errorf("got %d batch and %d score events, want 1 each", batches, scores)
	}
}

func TestNATSSubscriber_ImplementsSubscriber(t *testing.T) {
	var _ Subscriber = (*NATSSubscriber)(nil)
}

func TestNATSSubscriber_Cancel(t *testing.T) {
	_, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	cancel()
	cancel() // second call is a no-op

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNATSSubscriber_CancelWhilePublishing(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 100 {
			_ = pub.Publish(context.Background(), TopicScoreRecorded, ScoreRecorded{Score: &model.MinerScore{UID: i}})
		}
	}()

	cancel()
	<-done

	for range ch {
		// Drain anything delivered before the close.
	}
}
