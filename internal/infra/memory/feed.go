package memory

import (
	"context"
	"sync"

	"snakes-hunt-service/internal/domain"
)

// Feed fans engine events out to in-process subscribers. A subscriber bound to
// a team only receives that team's events.
type Feed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]string
	last        map[string]domain.Event
}

func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[chan domain.Event]string),
		last:        make(map[string]domain.Event),
	}
}

// Publish never blocks: a full subscriber loses its oldest pending event.
func (f *Feed) Publish(_ context.Context, event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.TeamID != "" {
		f.last[event.TeamID] = event
	}
	for ch, teamID := range f.subscribers {
		if teamID != "" && teamID != event.TeamID {
			continue
		}
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Subscribe registers a listener. An empty teamID receives every event. The
// caller must invoke cancel to release the channel.
func (f *Feed) Subscribe(_ context.Context, teamID string) (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, 16)

	f.mu.Lock()
	f.subscribers[ch] = teamID
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

// LastEvent returns the most recent event published for a team.
func (f *Feed) LastEvent(_ context.Context, teamID string) (domain.Event, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.last[teamID]
	return event, ok, nil
}

// Subscribers reports how many listeners are attached.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
