package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// CatalogNotifier is the push channel for catalog changes: product writes
// publish, the catalog view subscribes and re-fetches.
type CatalogNotifier interface {
	NotifyChange(ctx context.Context) error
	Subscribe(ctx context.Context, onChange func()) (func(), error)
}

type redisCatalogNotifier struct {
	client  *redis.Client
	channel string
}

func NewCatalogNotifier(client *redis.Client, channel string) CatalogNotifier {
	return &redisCatalogNotifier{client: client, channel: channel}
}

func (n *redisCatalogNotifier) NotifyChange(ctx context.Context) error {

	if err := n.client.Publish(ctx, n.channel, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish catalog change: %w", err)
	}

	return nil
}

// Subscribe invokes onChange for every published catalog change until the
// returned unsubscribe func is called.
func (n *redisCatalogNotifier) Subscribe(ctx context.Context, onChange func()) (func(), error) {

	pubsub := n.client.Subscribe(ctx, n.channel)

	// force the SUBSCRIBE round trip so a broken connection fails here
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to catalog channel: %w", err)
	}

	done := make(chan struct{})

	var once sync.Once

	go func() {
		ch := pubsub.Channel()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				onChange()
			}
		}
	}()

	unsubscribe := func() {
		once.Do(func() {
			close(done)

			if err := pubsub.Close(); err != nil {
				slog.Warn("Failed to close catalog subscription", slog.Any("error", err))
			}
		})
	}

	return unsubscribe, nil
}
