package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
)

const changeChannelPrefix = "mindmesh:changes:"

// RedisFeed fans change signals out across server instances over Redis
// pub/sub. Each instance runs one pattern subscriber and forwards signals
// to its local listeners.
type RedisFeed struct {
	client  *redis.Client
	local   *LocalFeed
	started sync.Once
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client, local: NewLocalFeed()}
}

func (f *RedisFeed) Publish(ctx context.Context, c store.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	metrics.ChangesPublished.WithLabelValues(c.Collection).Inc()
	return f.client.Publish(ctx, changeChannelPrefix+c.Collection, data).Err()
}

func (f *RedisFeed) Subscribe(collection string) (<-chan struct{}, func()) {
	return f.local.Subscribe(collection)
}

// Start runs the shared subscriber until ctx is cancelled. Calling it more
// than once has no effect.
func (f *RedisFeed) Start(ctx context.Context) {
	f.started.Do(func() {
		go f.run(ctx)
	})
}

func (f *RedisFeed) run(ctx context.Context) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		func() {
			pubsub := f.client.PSubscribe(ctx, changeChannelPrefix+"*")
			defer pubsub.Close()

			slog.Info("change subscriber started", "pattern", changeChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Warn("change subscriber error", "err", err, "retry_in", backoff)
					select {
					case <-ctx.Done():
					case <-time.After(backoff):
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var c store.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil || c.Collection == "" {
					// Fall back to the channel name so a malformed payload
					// still wakes the right listeners.
					c.Collection = strings.TrimPrefix(msg.Channel, changeChannelPrefix)
				}
				f.local.notify(c.Collection)
			}
		}()
	}
}
