package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/metrics"
	"github.com/wyfcoding/ledger/pkg/mq"
)

type fakeSender struct {
	sent []mq.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, messages ...mq.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Init(db.Config{Driver: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := database.AutoMigrate(&OutboxMessage{}); err != nil {
		t.Fatal(err)
	}
	return database
}

type sampleEvent struct {
	PositionID string `json:"position_id"`
}

func publish(t *testing.T, database *db.DB, pub *OutboxEventPublisher, eventType, id string) {
	t.Helper()
	err := database.WithTx(context.Background(), func(ctx context.Context) error {
		return pub.PublishInTx(ctx, eventType, id, sampleEvent{PositionID: id})
	})
	if err != nil {
		t.Fatalf("PublishInTx() error = %v", err)
	}
}

func TestPublishRequiresTransaction(t *testing.T) {
	database := newTestDB(t)
	pub := NewOutboxEventPublisher(database)
	if err := pub.PublishInTx(context.Background(), "X", "POS1", sampleEvent{}); err == nil {
		t.Fatal("expected error outside transaction")
	}
}

func TestPublishRolledBackWithTransaction(t *testing.T) {
	database := newTestDB(t)
	pub := NewOutboxEventPublisher(database)

	boom := errors.New("business failure")
	err := database.WithTx(context.Background(), func(ctx context.Context) error {
		if err := pub.PublishInTx(ctx, "PositionOpened", "POS1", sampleEvent{PositionID: "POS1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}

	var count int64
	database.Model(&OutboxMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("outbox rows = %d, want 0 after rollback", count)
	}
}

func TestRelayOnceSendsAndMarks(t *testing.T) {
	database := newTestDB(t)
	pub := NewOutboxEventPublisher(database)
	publish(t, database, pub, "PositionOpened", "POS1")
	publish(t, database, pub, "PositionMerged", "POS1")

	sender := &fakeSender{}
	m := metrics.New("position")
	relay := NewOutboxRelay(database, sender, RelayConfig{Topic: "position.events", BatchSize: 10}, m)

	n, err := relay.RelayOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("RelayOnce() = %d, %v", n, err)
	}
	if sender.sent[0].Headers["event_type"] != "PositionOpened" || sender.sent[1].Headers["event_type"] != "PositionMerged" {
		t.Errorf("order = %v, %v", sender.sent[0].Headers, sender.sent[1].Headers)
	}
	if sender.sent[0].Key != "POS1" || sender.sent[0].Topic != "position.events" {
		t.Errorf("message = %+v", sender.sent[0])
	}
	if string(sender.sent[0].Value) != `{"position_id":"POS1"}` {
		t.Errorf("payload = %s", sender.sent[0].Value)
	}

	n, err = relay.RelayOnce(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second RelayOnce() = %d, %v", n, err)
	}
}

func TestRelayOnceFailureKeepsPending(t *testing.T) {
	database := newTestDB(t)
	pub := NewOutboxEventPublisher(database)
	publish(t, database, pub, "PositionOpened", "POS1")

	boom := errors.New("broker down")
	relay := NewOutboxRelay(database, &fakeSender{err: boom}, RelayConfig{Topic: "t"}, nil)
	if _, err := relay.RelayOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("RelayOnce() error = %v", err)
	}

	var msg OutboxMessage
	if err := database.Take(&msg).Error; err != nil {
		t.Fatal(err)
	}
	if msg.Status != OutboxStatusPending || msg.Attempts != 1 || msg.LastError != "broker down" {
		t.Errorf("message after failure = %+v", msg)
	}
}

func TestCleanupRemovesOldSent(t *testing.T) {
	database := newTestDB(t)
	pub := NewOutboxEventPublisher(database)
	publish(t, database, pub, "PositionOpened", "POS1")

	relay := NewOutboxRelay(database, &fakeSender{}, RelayConfig{Topic: "t"}, nil)
	if _, err := relay.RelayOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := relay.Cleanup(context.Background(), time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	var count int64
	database.Model(&OutboxMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("rows after cleanup = %d", count)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	database := newTestDB(t)
	relay := NewOutboxRelay(database, &fakeSender{}, RelayConfig{Topic: "t", Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop")
	}
}
