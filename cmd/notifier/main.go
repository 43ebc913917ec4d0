package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/push"
	"github.com/goevery/notifier/internal/realtime"
	"github.com/goevery/notifier/internal/registry"
	"github.com/goevery/notifier/internal/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings) *App {
	originChecker := server.NewOriginChecker(settings.Origins())
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	connectionRegistry := registry.NewInMemoryRegistry(logger)
	subscriptionStore := push.NewInMemoryStore()
	channelManager := realtime.NewManager(logger, connectionRegistry)

	var pushSender push.Sender
	if settings.PushEnabled {
		pushSender = push.NewWebPushSender(logger, push.WebPushOptions{
			Subscriber:      settings.VAPIDSubject,
			VAPIDPublicKey:  settings.VAPIDPublicKey,
			VAPIDPrivateKey: settings.VAPIDPrivateKey,
			TTL:             settings.PushTTL,
		})
	}

	dispatcher := notification.NewDispatcher(
		logger,
		connectionRegistry,
		subscriptionStore,
		pushSender,
		settings.PushConcurrency,
	)

	heartbeatHandler := handler.NewHeartbeatHandler()
	registerHandler := handler.NewRegisterHandler(channelManager)
	sendHandler := handler.NewSendHandler(dispatcher)
	connectedUsersHandler := handler.NewConnectedUsersHandler(connectionRegistry)

	var pushHandler *handler.PushHandler
	if settings.PushEnabled {
		pushHandler = handler.NewPushHandler(settings.VAPIDPublicKey, subscriptionStore, dispatcher)
	}

	router := server.NewRouter(
		logger,
		heartbeatHandler,
		registerHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		channelManager,
		router,
		settings.SendBufferSize,
	)
	restServer := server.NewRESTServer(
		logger,
		sendHandler,
		connectedUsersHandler,
		pushHandler,
	)

	return &App{
		logger,
		settings,
		websocketServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	a.startHttpServer(ctx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter()
	if a.settings.BasePath != "" {
		router = router.PathPrefix(a.settings.BasePath).Subrouter()
	}

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpHandler := server.NewRecoveryMiddleware(a.logger)(
		server.NewCORSMiddleware(a.settings.Origins())(router),
	)

	httpServer := &http.Server{
		Addr:    address,
		Handler: httpHandler,
	}

	a.logger.Info("starting http server",
		zap.String("address", address),
		zap.Bool("pushEnabled", a.settings.PushEnabled))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	a.websocketServer.Shutdown()

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	bootstrapLogger, _ := zap.NewDevelopment()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		bootstrapLogger.Fatal("failed to parse settings from environment", zap.Error(err))
	}

	err = settings.Validate()
	if err != nil {
		bootstrapLogger.Fatal("invalid settings", zap.Error(err))
	}

	logger, err := buildZapLogger(settings.LogEncoding, settings.LogLevel)
	if err != nil {
		bootstrapLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	app := NewApp(logger, settings)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}
