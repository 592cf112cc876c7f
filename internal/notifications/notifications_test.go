package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishRecipeEvent(context.Background(), RecipeEvent{Type: EventSave, RecipeID: "abc1234"}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishRecipeEvent(context.Background(), RecipeEvent{Type: EventSave}))
}

func TestRecipeEvent_JSON(t *testing.T) {
	score := -2
	data, err := json.Marshal(RecipeEvent{Type: EventVote, RecipeID: "abc1234", VoteScore: &score})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"vote","recipeId":"abc1234","voteScore":-2}`, string(data))

	data, err = json.Marshal(RecipeEvent{Type: EventDeleted, RecipeID: "abc1234"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"deleted","recipeId":"abc1234"}`, string(data))
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	var mu sync.Mutex
	var received []string
	require.NoError(t, n.StartSubscriber(ctx, func(payload string) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
	}))

	require.NoError(t, n.PublishRecipeEvent(ctx, RecipeEvent{Type: EventCreated, RecipeID: "abc1234"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, testEventuallyTimeout, testPollInterval)
	assert.JSONEq(t, `{"type":"created","recipeId":"abc1234"}`, received[0])
}

func TestHub_RegisterLimits(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register("u-1", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("u-1", nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	_, err = hub.Register("", nil)
	assert.NoError(t, err, "anonymous viewers are only bounded by the server limit")
	assert.Equal(t, maxConnsPerUser+1, hub.Count())
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register("u-1", nil)
	require.NoError(t, err)

	hub.UnregisterClient(client)
	hub.UnregisterClient(client)
	assert.Equal(t, 0, hub.Count())

	_, err = hub.Register("u-1", nil)
	assert.NoError(t, err)
}

func TestHub_DeliverBroadcasts(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register("u-1", nil)
	require.NoError(t, err)
	b, err := hub.Register("", nil)
	require.NoError(t, err)

	hub.Deliver(`{"type":"vote","recipeId":"abc1234","voteScore":3}`)
	hub.Deliver(`not json`)

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			assert.JSONEq(t, `{"type":"vote","recipeId":"abc1234","voteScore":3}`, string(msg))
		default:
			t.Fatal("expected a message")
		}
		assert.Len(t, c.send, 0, "malformed payloads are dropped")
	}
}

func TestClient_EnqueueDropsWhenFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register("u-1", nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, client.Enqueue([]byte(`{}`)))
	}
	assert.False(t, client.Enqueue([]byte(`{"type":"vote"}`)))
	assert.Len(t, client.send, sendBuffer)

	hub.UnregisterClient(client)
	assert.False(t, client.Enqueue([]byte(`{}`)), "stopped viewers get nothing")
}

func TestHub_StartWiringWithoutRedisDeliversLocally(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register("", nil)
	require.NoError(t, err)

	n := NewNotifier(nil)
	require.NoError(t, hub.StartWiring(context.Background(), n))
	require.NoError(t, n.PublishRecipeEvent(context.Background(), RecipeEvent{Type: EventSave, RecipeID: "abc1234"}))

	select {
	case msg := <-client.send:
		assert.JSONEq(t, `{"type":"save","recipeId":"abc1234"}`, string(msg))
	default:
		t.Fatal("expected local delivery")
	}
}

func TestHub_ShutdownStopsViewers(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register("u-1", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())
	assert.False(t, client.Enqueue([]byte(`{}`)))
	assert.Equal(t, "u-1", client.UserID())
}
