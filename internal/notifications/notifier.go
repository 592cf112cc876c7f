// Package notifications fans recipe events out to live websocket subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"recipeexchange/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// RecipeEventsChannel is the Redis channel recipe events are published on.
const RecipeEventsChannel = "recipes:events"

// Recipe event types.
const (
	EventVote    = "vote"
	EventSave    = "save"
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	// EventResync tells a viewer it missed events.
	EventResync = "resync"
)

// RecipeEvent tells subscribers that a recipe changed.
type RecipeEvent struct {
	Type      string `json:"type"`
	RecipeID  string `json:"recipeId"`
	VoteScore *int   `json:"voteScore,omitempty"`
}

// Notifier publishes recipe events into Redis.
type Notifier struct {
	rdb   *redis.Client
	local func(payload string)
}

// NewNotifier creates a Notifier. A nil client makes publishing a no-op
// unless a local sink is attached.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// SetLocalSink delivers events in-process when Redis is not configured.
func (n *Notifier) SetLocalSink(fn func(payload string)) {
	n.local = fn
}

// PublishRecipeEvent publishes event on RecipeEventsChannel.
func (n *Notifier) PublishRecipeEvent(ctx context.Context, event RecipeEvent) error {
	if n == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if n.rdb == nil {
		if n.local != nil {
			n.local(string(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, RecipeEventsChannel, string(payload)).Err()
}

// StartSubscriber subscribes to RecipeEventsChannel and calls onMessage for
// each payload until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, RecipeEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", RecipeEventsChannel, err)
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
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in recipe event subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
