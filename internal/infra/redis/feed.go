package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
)

const eventsChannel = "hunt:events"

// Feed distributes engine events through Redis pub/sub so every instance of
// the service sees them. The last event per team is kept under
// hunt:team:{teamID}:last with a TTL for late subscribers.
type Feed struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewFeed(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Feed {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Feed{client: client, ttl: ttl, log: log}
}

// Publish is best effort; failures are logged and never reach the engine.
func (f *Feed) Publish(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		f.log.WithError(err).Warn("encode event")
		return
	}
	pipe := f.client.Pipeline()
	pipe.Publish(ctx, eventsChannel, payload)
	if event.TeamID != "" {
		pipe.Set(ctx, f.lastKey(event.TeamID), payload, f.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		f.log.WithError(err).WithField("event", event.Type).Warn("publish event")
	}
}

// Subscribe attaches to the shared channel and forwards matching events. An
// empty teamID receives every event. The returned channel closes after cancel
// or when ctx ends.
func (f *Feed) Subscribe(ctx context.Context, teamID string) (<-chan domain.Event, func(), error) {
	sub := f.client.Subscribe(ctx, eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.log.WithError(err).Warn("decode event")
					continue
				}
				if teamID != "" && event.TeamID != teamID {
					continue
				}
				select {
				case out <- event:
				default:
					select {
					case <-out:
					default:
					}
					out <- event
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

// LastEvent returns the most recent event published for a team.
func (f *Feed) LastEvent(ctx context.Context, teamID string) (domain.Event, bool, error) {
	raw, err := f.client.Get(ctx, f.lastKey(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, err
	}
	var event domain.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return domain.Event{}, false, err
	}
	return event, true, nil
}

func (f *Feed) lastKey(teamID string) string {
	return "hunt:team:" + teamID + ":last"
}
