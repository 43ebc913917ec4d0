package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/push"
	"github.com/goevery/notifier/internal/realtime"
	"github.com/goevery/notifier/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeUserIds(t *testing.T) {
	userIds, err := decodeUserIds(json.RawMessage(`["A","B","A"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "A"}, userIds)

	for _, raw := range []string{``, `null`, `[]`, `"A"`, `{"A":true}`, `[1,2]`} {
		_, err := decodeUserIds(json.RawMessage(raw))

		var handlerErr ierr.Error
		require.True(t, errors.As(err, &handlerErr), raw)
		assert.Equal(t, ierr.ErrorCodeInvalidArgument, handlerErr.Code)
	}
}

func TestRegisterHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	reg := registry.NewInMemoryRegistry(logger)
	manager := realtime.NewManager(logger, reg)
	registerHandler := NewRegisterHandler(manager)

	t.Run("without channel", func(t *testing.T) {
		params := json.RawMessage(`"alice"`)

		_, err := registerHandler.Handle(context.Background(), &params)

		assert.Error(t, err)
	})

	t.Run("binds user to channel", func(t *testing.T) {
		channel := realtime.NewChannel("conn-1", 4)
		manager.Open(channel)
		ctx := realtime.WithChannel(context.Background(), channel)
		params := json.RawMessage(`"alice"`)

		response, err := registerHandler.Handle(ctx, &params)

		require.NoError(t, err)
		assert.True(t, response.Registered)
		assert.Equal(t, "alice", channel.UserId())
		assert.Equal(t, []string{"alice"}, reg.UserIds())
	})

	t.Run("ignores non-string userId", func(t *testing.T) {
		channel := realtime.NewChannel("conn-2", 4)
		manager.Open(channel)
		ctx := realtime.WithChannel(context.Background(), channel)
		params := json.RawMessage(`42`)

		response, err := registerHandler.Handle(ctx, &params)

		require.NoError(t, err)
		assert.False(t, response.Registered)

		response, err = registerHandler.Handle(ctx, nil)

		require.NoError(t, err)
		assert.False(t, response.Registered)
	})
}

func TestPushHandler_Subscribe(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := push.NewInMemoryStore()
	dispatcher := notification.NewDispatcher(logger, registry.NewInMemoryRegistry(logger), store, nil, 1)
	pushHandler := NewPushHandler("public-key", store, dispatcher)

	response, err := pushHandler.Subscribe(context.Background(), SubscribeRequest{
		UserId:       "alice",
		Subscription: json.RawMessage(`{"endpoint":"https://push.example/alice","keys":{"p256dh":"k","auth":"a"}}`),
	})
	require.NoError(t, err)
	assert.True(t, response.Success)

	subscription, ok := store.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "https://push.example/alice", subscription.Endpoint)
	assert.Equal(t, "k", subscription.Keys.P256dh)

	_, err = pushHandler.Subscribe(context.Background(), SubscribeRequest{UserId: "bob"})
	assert.Error(t, err)

	key, err := pushHandler.PublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "public-key", key.PublicKey)
}
