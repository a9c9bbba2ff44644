package memory

import (
	"context"
	"testing"
	"time"

	"snakes-hunt-service/internal/domain"
)

func TestFeedFiltersByTeam(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()

	all, cancelAll, _ := feed.Subscribe(ctx, "")
	defer cancelAll()
	mine, cancelMine, _ := feed.Subscribe(ctx, "t1")
	defer cancelMine()

	feed.Publish(ctx, domain.Event{Type: domain.EventDiceRolled, TeamID: "t2"})
	feed.Publish(ctx, domain.Event{Type: domain.EventDiceRolled, TeamID: "t1"})

	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatalf("staff subscriber missed event %d", i)
		}
	}
	select {
	case ev := <-mine:
		if ev.TeamID != "t1" {
			t.Fatalf("team subscriber got foreign event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("team subscriber missed its event")
	}
	select {
	case ev := <-mine:
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
}

func TestFeedDropsStaleEventsForSlowSubscriber(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()
	ch, cancel, _ := feed.Subscribe(ctx, "")

	for i := 0; i < 40; i++ {
		feed.Publish(ctx, domain.Event{Type: domain.EventTimerChanged, TeamID: "t1", DeltaSeconds: i})
	}
	var last domain.Event
	for len(ch) > 0 {
		last = <-ch
	}
	if last.DeltaSeconds != 39 {
		t.Fatalf("expected newest event retained, got %+v", last)
	}

	cancel()
	if feed.Subscribers() != 0 {
		t.Fatalf("expected subscriber removed")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed")
	}
}

func TestFeedRemembersLastEventPerTeam(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()

	if _, ok, _ := feed.LastEvent(ctx, "t1"); ok {
		t.Fatalf("expected no event yet")
	}
	feed.Publish(ctx, domain.Event{Type: domain.EventDiceRolled, TeamID: "t1", Position: 4})
	feed.Publish(ctx, domain.Event{Type: domain.EventRoomChanged, TeamID: "t1", Room: 7})
	feed.Publish(ctx, domain.Event{Type: domain.EventDiceRolled, TeamID: "t2"})

	ev, ok, err := feed.LastEvent(ctx, "t1")
	if err != nil || !ok || ev.Type != domain.EventRoomChanged || ev.Room != 7 {
		t.Fatalf("unexpected last event %+v ok=%v err=%v", ev, ok, err)
	}
}
