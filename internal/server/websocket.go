package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/goevery/notifier/internal/realtime"
	"github.com/goevery/notifier/internal/rpc"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a frame
	writeWait = 10 * time.Second

	// Time allowed between pongs
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = 50 * time.Second

	maxMessageSize = 4096
)

type WebSocketServer struct {
	logger   *zap.Logger
	upgrader *websocket.Upgrader

	manager        *realtime.Manager
	router         *Router
	sendBufferSize int

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	manager *realtime.Manager,
	router *Router,
	sendBufferSize int,
) *WebSocketServer {
	return &WebSocketServer{
		logger:         logger,
		upgrader:       upgrader,
		manager:        manager,
		router:         router,
		sendBufferSize: sendBufferSize,
		shutdown:       make(chan struct{}),
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/websocket", s.serve).Methods(http.MethodGet)
}

// Shutdown asks every open channel to close. Hijacked connections are not
// tracked by http.Server, so they need their own signal.
func (s *WebSocketServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
}

func (s *WebSocketServer) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	channelId, err := realtime.NewChannelId()
	if err != nil {
		s.logger.Error("failed to generate channel id", zap.Error(err))
		conn.Close()
		return
	}

	logger := s.logger.With(
		zap.String("channelId", channelId),
		zap.String("remoteAddr", r.RemoteAddr))

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	channel := realtime.NewChannel(channelId, s.sendBufferSize)
	s.manager.Open(channel)

	writerDone := make(chan struct{})
	go s.writePump(logger, conn, channel, writerDone)

	ctx := realtime.WithChannel(r.Context(), channel)

	for {
		var request rpc.Request
		err := conn.ReadJSON(&request)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			break
		}

		response := s.router.RouteRequest(ctx, request)
		if response == nil {
			continue
		}

		if err := channel.Reply(*response); err != nil {
			logger.Warn("failed to queue reply", zap.Error(err))
		}
	}

	s.manager.Close(channel)
	<-writerDone
	conn.Close()
}

func (s *WebSocketServer) writePump(logger *zap.Logger, conn *websocket.Conn, channel *realtime.Channel, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case data, ok := <-channel.Outbound():
			conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				conn.Close()
				return
			}
		case <-channel.Evicted():
			logger.Warn("channel send buffer is full, closing connection")
			conn.Close()
			return
		case <-s.shutdown:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
