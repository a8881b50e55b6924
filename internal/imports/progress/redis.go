package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voiceagent-server/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RedisTracker stores the latest event under a TTL key and publishes every event on a
// per-job channel, so API servers and workers share progress.
type RedisTracker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *observability.Logger
}

// NewRedisTracker creates a tracker on client. Events expire after ttl.
func NewRedisTracker(client redis.UniversalClient, ttl time.Duration, logger *observability.Logger) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl, logger: logger}
}

func latestKey(jobID string) string {
	return fmt.Sprintf("import:progress:%s", jobID)
}

func channelName(jobID string) string {
	return fmt.Sprintf("import:progress:%s:events", jobID)
}

func (t *RedisTracker) Report(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}

	pipe := t.client.Pipeline()
	pipe.Set(ctx, latestKey(event.JobID), data, t.ttl)
	pipe.Publish(ctx, channelName(event.JobID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

func (t *RedisTracker) Latest(ctx context.Context, jobID string) (Event, error) {
	data, err := t.client.Get(ctx, latestKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Event{}, ErrUnknownJob
		}
		return Event{}, fmt.Errorf("failed to read progress: %w", err)
	}

	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode progress: %w", err)
	}
	return e, nil
}

func (t *RedisTracker) Subscribe(ctx context.Context, jobID string) (<-chan Event, error) {
	pubsub := t.client.Subscribe(ctx, channelName(jobID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to progress: %w", err)
	}

	// Read the stored event only after subscribing so nothing published in between is lost.
	latest, err := t.Latest(ctx, jobID)
	if err != nil && !errors.Is(err, ErrUnknownJob) {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		last := -1
		if err == nil {
			out <- latest
			if latest.Status.Terminal() {
				return
			}
			last = latest.Percent
		}

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					t.logger.Error(ctx, "failed to decode progress event", err)
					continue
				}
				if e.Percent < last && !e.Status.Terminal() {
					continue
				}
				last = e.Percent
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
				if e.Status.Terminal() {
					return
				}
			}
		}
	}()
	return out, nil
}
