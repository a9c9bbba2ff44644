package redis

import (
	"context"
	"testing"
	"time"

	"snakes-hunt-service/internal/domain"
)

func TestFeedDeliversTeamEvents(t *testing.T) {
	_, client := newTestClient(t)
	feed := NewFeed(client, time.Hour, nil)
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	events, cancel, err := feed.Subscribe(ctx, "t1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	feed.Publish(ctx, domain.Event{Type: domain.EventDiceRolled, TeamID: "t2", Position: 3})
	feed.Publish(ctx, domain.Event{Type: domain.EventDiceRolled, TeamID: "t1", Position: 5})

	select {
	case ev := <-events:
		if ev.TeamID != "t1" || ev.Position != 5 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestFeedKeepsLastEvent(t *testing.T) {
	mr, client := newTestClient(t)
	feed := NewFeed(client, time.Minute, nil)
	ctx := context.Background()

	if _, ok, err := feed.LastEvent(ctx, "t1"); err != nil || ok {
		t.Fatalf("expected no last event, got ok=%v err=%v", ok, err)
	}

	feed.Publish(ctx, domain.Event{Type: domain.EventTimerChanged, TeamID: "t1", DeltaSeconds: 80})
	ev, ok, err := feed.LastEvent(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("last event: ok=%v err=%v", ok, err)
	}
	if ev.Type != domain.EventTimerChanged || ev.DeltaSeconds != 80 {
		t.Fatalf("unexpected last event %+v", ev)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("hunt:team:t1:last") {
		t.Fatalf("expected last event to expire")
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	_, client := newTestClient(t)
	feed := NewFeed(client, time.Hour, nil)

	events, cancel, err := feed.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel was not closed")
	}
}
