package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/rpc"
	"go.uber.org/zap"
)

type Router struct {
	logger *zap.Logger

	heartbeatHandler handler.HeartbeatHandlerInterface
	registerHandler  handler.RegisterHandlerInterface
}

func NewRouter(
	logger *zap.Logger,
	heartbeatHandler handler.HeartbeatHandlerInterface,
	registerHandler handler.RegisterHandlerInterface,
) *Router {
	return &Router{
		logger,
		heartbeatHandler,
		registerHandler,
	}
}

// RouteRequest handles one client frame and returns the reply to send, if any.
func (r *Router) RouteRequest(ctx context.Context, request rpc.Request) *rpc.Response {
	response, err := r.Handle(ctx, request)

	if !request.ReplyExpected() {
		if err != nil {
			r.logger.Debug("notification failed", zap.String("method", request.Method), zap.Error(err))
		}

		return nil
	}

	if err != nil {
		response := request.ReplyWithError(r.mapError(err))

		return &response
	}

	rawJson, err := json.Marshal(response)
	if err != nil {
		response := request.ReplyWithError(r.mapError(err))

		return &response
	}

	payload := json.RawMessage(rawJson)
	reply := request.Reply(&payload)

	return &reply
}

func (r *Router) Handle(ctx context.Context, request rpc.Request) (any, error) {
	switch request.Method {
	case "heartbeat":
		return r.heartbeatHandler.Handle(ctx), nil
	case "register":
		return r.registerHandler.Handle(ctx, request.Params)
	default:
		return nil, ierr.New(ierr.ErrorCodeNotFound, errors.New("method not found: "+request.Method))
	}
}

func (r *Router) mapError(err error) ierr.Error {
	var handlerErr ierr.Error
	if errors.As(err, &handlerErr) {
		return handlerErr
	}

	r.logger.Error("error in rpc handler", zap.Error(err))

	return ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
}
