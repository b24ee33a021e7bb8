// Package notifications publishes operator-facing events (new comments, contact
// messages, newsletter signups) over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"animeverse/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// OperatorChannel is the Redis channel operator events are published on.
const OperatorChannel = "animeverse:operator"

// Event types.
const (
	CommentCreated       = "comment.created"
	ContactCreated       = "contact.created"
	NewsletterSubscribed = "newsletter.subscribed"
)

// Event is the JSON payload published on OperatorChannel.
type Event struct {
	Type    string    `json:"type"`
	ID      uint      `json:"id"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

// Notifier provides helpers to publish operator events into Redis
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev to OperatorChannel, stamping it with the current time when unset.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, OperatorChannel, payload).Err()
}

// Notify publishes ev and logs instead of failing; request paths use it so a Redis
// outage never rejects a visitor's submission.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if err := n.Publish(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish operator event",
			"type", ev.Type, "id", ev.ID, "error", err)
	}
}

// Subscribe listens on OperatorChannel until ctx is cancelled and calls onEvent for
// every well-formed payload. It returns once the subscription is confirmed.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, OperatorChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", OperatorChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed operator event", "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in operator event handler",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
