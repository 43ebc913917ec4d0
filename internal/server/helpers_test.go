package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/push"
	"github.com/goevery/notifier/internal/realtime"
	"github.com/goevery/notifier/internal/registry"
	"github.com/goevery/notifier/internal/rpc"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type senderFunc func(ctx context.Context, subscription push.Subscription, payload []byte) error

func (f senderFunc) Send(ctx context.Context, subscription push.Subscription, payload []byte) error {
	return f(ctx, subscription, payload)
}

type testStack struct {
	server        *httptest.Server
	registry      *registry.InMemoryRegistry
	manager       *realtime.Manager
	subscriptions *push.InMemoryStore
	wsServer      *WebSocketServer
}

// newTestStack wires the full application; push routes are mounted only when
// sender is not nil.
func newTestStack(t *testing.T, sender push.Sender) *testStack {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	reg := registry.NewInMemoryRegistry(logger)
	manager := realtime.NewManager(logger, reg)
	subscriptions := push.NewInMemoryStore()
	dispatcher := notification.NewDispatcher(logger, reg, subscriptions, sender, 4)

	var pushHandler *handler.PushHandler
	if sender != nil {
		pushHandler = handler.NewPushHandler("test-public-key", subscriptions, dispatcher)
	}

	restServer := NewRESTServer(
		logger,
		handler.NewSendHandler(dispatcher),
		handler.NewConnectedUsersHandler(reg),
		pushHandler,
	)

	rpcRouter := NewRouter(logger, handler.NewHeartbeatHandler(), handler.NewRegisterHandler(manager))
	wsServer := NewWebSocketServer(logger, &websocket.Upgrader{}, manager, rpcRouter, 16)

	router := mux.NewRouter()
	wsServer.Register(router)
	restServer.Register(router)

	server := httptest.NewServer(
		NewRecoveryMiddleware(logger)(NewCORSMiddleware([]string{"*"})(router)),
	)

	t.Cleanup(func() {
		wsServer.Shutdown()
		server.Close()
	})

	return &testStack{
		server:        server,
		registry:      reg,
		manager:       manager,
		subscriptions: subscriptions,
		wsServer:      wsServer,
	}
}

// connect opens an in-process channel, bypassing the websocket transport.
func (s *testStack) connect(t *testing.T, channelId string, userId string) *realtime.Channel {
	t.Helper()

	channel := realtime.NewChannel(channelId, 16)
	s.manager.Open(channel)

	greeting := nextFrame(t, channel)
	require.Equal(t, realtime.EventInit, greeting.Method)

	if userId != "" {
		require.True(t, s.manager.Register(channel, userId))
	}

	return channel
}

func (s *testStack) post(t *testing.T, path string, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)

	return resp, decodeBody(t, resp)
}

func (s *testStack) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Get(s.server.URL + path)
	require.NoError(t, err)

	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if len(bytes.TrimSpace(raw)) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &body))
	}

	return body
}

func nextFrame(t *testing.T, channel *realtime.Channel) rpc.Request {
	t.Helper()

	select {
	case data, ok := <-channel.Outbound():
		require.True(t, ok, "channel closed")

		var frame rpc.Request
		require.NoError(t, json.Unmarshal(data, &frame))

		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}

	return rpc.Request{}
}

func requireNoFrame(t *testing.T, channel *realtime.Channel) {
	t.Helper()

	select {
	case data := <-channel.Outbound():
		t.Fatalf("unexpected frame: %s", data)
	default:
	}
}

func decodeNotification(t *testing.T, frame rpc.Request) map[string]any {
	t.Helper()

	require.Equal(t, "notification", frame.Method)
	require.NotNil(t, frame.Params)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(*frame.Params, &payload))

	return payload
}
