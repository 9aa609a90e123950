package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/patrol/internal/model"
)

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicScoreRecorded, ScoreRecorded{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

// capture subscribes a plain connection to topic.
func capture(t *testing.T, url, topic string) chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, 8)
	if _, err := nc.ChanSubscribe(topic, ch); err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	nc.Flush()
	return ch
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ch := capture(t, url, TopicScoreRecorded)

	id := uuid.New()
	event := ScoreRecorded{Score: &model.MinerScore{ID: id, UID: 3, OverallScore: 0.75, TaskType: model.TaskHotkeyOwnership}}
	if err := pub.Publish(context.Background(), TopicScoreRecorded, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got ScoreRecorded
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Score.ID != id || got.Score.OverallScore != 0.75 {
			t.Errorf("got score %+v", got.Score)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ch := capture(t, url, TopicAll)

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicScoreRecorded, ScoreRecorded{Score: &model.MinerScore{UID: 1}}},
		{TopicBatchCompleted, BatchCompleted{BatchID: uuid.New(), Audited: 4}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicScoreRecorded, ScoreRecorded{}); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	if err := pub.Publish(context.Background(), TopicScoreRecorded, ScoreRecorded{}); err == nil {
		t.Error("expected error publishing after close")
	}
}
