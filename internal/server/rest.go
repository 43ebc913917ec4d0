package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var internalErrorResponse = ErrorResponse{
	Success: false,
	Message: "internal server error",
}

type RESTServer struct {
	logger *zap.Logger

	sendHandler           *handler.SendHandler
	connectedUsersHandler *handler.ConnectedUsersHandler
	pushHandler           *handler.PushHandler
}

// NewRESTServer builds the HTTP API. A nil pushHandler leaves the push
// routes unmounted.
func NewRESTServer(
	logger *zap.Logger,
	sendHandler *handler.SendHandler,
	connectedUsersHandler *handler.ConnectedUsersHandler,
	pushHandler *handler.PushHandler,
) *RESTServer {
	return &RESTServer{
		logger,
		sendHandler,
		connectedUsersHandler,
		pushHandler,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/notification/send", handleJSON(s, s.sendHandler.SendToAll)).
		Methods(http.MethodPost)
	api.HandleFunc("/notification/send-to-users", handleJSON(s, s.sendHandler.SendToUsers)).
		Methods(http.MethodPost)
	api.HandleFunc("/notification/send-to-user", handleJSON(s, s.sendHandler.SendToUser)).
		Methods(http.MethodPost)
	api.HandleFunc("/users/connected", handleQuery(s, s.connectedUsersHandler.Handle)).
		Methods(http.MethodGet)

	if s.pushHandler == nil {
		return
	}

	api.HandleFunc("/vapid-public-key", handleQuery(s, s.pushHandler.PublicKey)).
		Methods(http.MethodGet)
	api.HandleFunc("/subscribe", handleJSON(s, s.pushHandler.Subscribe)).
		Methods(http.MethodPost)
	api.HandleFunc("/send-notification", handleJSON(s, s.pushHandler.SendNotification)).
		Methods(http.MethodPost)
	api.HandleFunc("/broadcast-notification", handleJSON(s, s.pushHandler.BroadcastNotification)).
		Methods(http.MethodPost)
}

func handleJSON[Req any, Resp any](
	s *RESTServer,
	handle func(ctx context.Context, req Req) (Resp, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Success: false,
				Message: "invalid request body",
			})
			return
		}

		resp, err := handle(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleQuery[Resp any](
	s *RESTServer,
	handle func(ctx context.Context) (Resp, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := handle(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var handlerErr ierr.Error
	if errors.As(err, &handlerErr) && handlerErr.Code != ierr.ErrorCodeInternal {
		s.logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", string(handlerErr.Code)),
			zap.String("reason", handlerErr.Message))

		writeJSON(w, handlerErr.Code.HTTPStatus(), ErrorResponse{
			Success: false,
			Message: handlerErr.Message,
		})
		return
	}

	s.logger.Error("failed to handle request",
		zap.String("path", r.URL.Path),
		zap.Error(err))

	writeJSON(w, http.StatusInternalServerError, internalErrorResponse)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
