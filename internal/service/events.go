package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
)

// EventService broadcasts entity lifecycle events over redis pub/sub.
// Channels are keyed by type name so a subscriber follows exactly the
// collections it cares about.
type EventService struct {
	rdb *redis.Client
}

func NewEventService(redisClient *redis.Client) *EventService {
	return &EventService{
		rdb: redisClient,
	}
}

func (s *EventService) Publish(ctx context.Context, typeName string, ev entitycore.Event) error {

	jsonstr, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, domain.EventChannelPrefix+typeName, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime streams events for the type names received on input until ctx
// is done. Sending a new name list resubscribes; an empty list pauses the
// stream.
func (s *EventService) Realtime(ctx context.Context, input <-chan []string, output chan<- entitycore.Event) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case typeNames, ok := <-input:
			if !ok {
				return
			}
			if err := pubsub.Unsubscribe(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to unsubscribe",
					slog.String("error", err.Error()),
					slog.String("module", "events"),
				)
				return
			}
			if len(typeNames) == 0 {
				continue
			}
			channels := make([]string, 0, len(typeNames))
			for _, name := range typeNames {
				channels = append(channels, domain.EventChannelPrefix+name)
			}
			if err := pubsub.Subscribe(ctx, channels...); err != nil {
				slog.ErrorContext(ctx, "failed to subscribe",
					slog.String("error", err.Error()),
					slog.String("module", "events"),
				)
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev entitycore.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.ErrorContext(ctx, "failed to decode event",
					slog.String("error", err.Error()),
					slog.String("module", "events"),
				)
				continue
			}
			select {
			case output <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
