package events

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"jokeledger/core/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testEvent(kind string) *types.Event {
	return &types.Event{Type: kind, Attributes: map[string]string{"id": "1"}}
}

func TestFeedDeliversToSubscribers(t *testing.T) {
	feed := NewFeed(8)
	updates, cancel, backlog := feed.Subscribe(context.Background(), "")
	defer cancel()
	if len(backlog) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(backlog))
	}

	feed.Publish(testEvent("jokes.submission.created"), 100)

	select {
	case rec := <-updates:
		if rec.Sequence != 1 || rec.Cursor != "1" {
			t.Fatalf("unexpected record position: %+v", rec)
		}
		if rec.Event.Type != "jokes.submission.created" {
			t.Fatalf("unexpected event type %q", rec.Event.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for record")
	}
}

func TestFeedBacklogHonoursCursorAndLimit(t *testing.T) {
	feed := NewFeed(3)
	for i := 0; i < 5; i++ {
		feed.Publish(testEvent("jokes.pending.voted"), int64(i))
	}
	_, cancel, backlog := feed.Subscribe(context.Background(), "3")
	defer cancel()
	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog records after cursor 3, got %d", len(backlog))
	}
	if backlog[0].Sequence != 4 || backlog[1].Sequence != 5 {
		t.Fatalf("unexpected backlog sequences: %d, %d", backlog[0].Sequence, backlog[1].Sequence)
	}

	_, cancelAll, all := feed.Subscribe(context.Background(), "")
	defer cancelAll()
	if len(all) != 3 {
		t.Fatalf("history should be trimmed to 3 records, got %d", len(all))
	}
}

func TestFeedContextCancelClosesChannel(t *testing.T) {
	feed := NewFeed(0)
	ctx, stop := context.WithCancel(context.Background())
	updates, _, _ := feed.Subscribe(ctx, "")
	stop()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatalf("expected closed channel after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription did not close after context cancellation")
	}
}

func TestFeedDropsWhenSubscriberIsFull(t *testing.T) {
	feed := NewFeed(0)
	_, cancel, _ := feed.Subscribe(context.Background(), "")
	defer cancel()
	for i := 0; i < subscriberBuffer+5; i++ {
		feed.Publish(testEvent("jokes.joke.used"), 0)
	}
	if got := feed.Dropped(); got != 5 {
		t.Fatalf("expected 5 dropped deliveries, got %d", got)
	}
	if feed.Sequence() != uint64(subscriberBuffer+5) {
		t.Fatalf("unexpected sequence %d", feed.Sequence())
	}
}

func TestFeedCloseEndsSubscriptions(t *testing.T) {
	feed := NewFeed(0)
	updates, cancel, _ := feed.Subscribe(context.Background(), "")
	feed.Close()
	if _, ok := <-updates; ok {
		t.Fatalf("expected channel to be closed")
	}
	cancel()
}

func TestBufferKeepsEmissionOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(rawEvent("a"))
	buf.Emit(nil)
	buf.Emit(rawEvent("b"))
	got := buf.Events()
	if len(got) != 2 || got[0].EventType() != "a" || got[1].EventType() != "b" {
		t.Fatalf("unexpected buffered events: %+v", got)
	}
	if rendered := Render(got[0]); rendered.Type != "a" {
		t.Fatalf("unexpected rendered type %q", rendered.Type)
	}
	buf.Reset()
	if len(buf.Events()) != 0 {
		t.Fatalf("expected empty buffer after reset")
	}
}

type rawEvent string

func (r rawEvent) EventType() string { return string(r) }
