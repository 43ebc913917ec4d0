package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/push"
)

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type SubscribeRequest struct {
	UserId       string          `json:"userId"`
	Subscription json.RawMessage `json:"subscription"`
}

type SubscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SendNotificationRequest struct {
	notification.Request
	UserId string `json:"userId"`
}

type SendNotificationResponse struct {
	Success    bool `json:"success"`
	SocketSent bool `json:"socketSent"`
	PushSent   bool `json:"pushSent"`
}

type PushFailure struct {
	UserId string `json:"userId"`
	Error  string `json:"error"`
}

type BroadcastNotificationResponse struct {
	Success      bool          `json:"success"`
	SocketsSent  int           `json:"socketsSent"`
	PushSent     int           `json:"pushSent"`
	PushFailures []PushFailure `json:"pushFailures,omitempty"`
}

type PushHandler struct {
	publicKey     string
	subscriptions push.Store
	dispatcher    *notification.Dispatcher
}

func NewPushHandler(
	publicKey string,
	subscriptions push.Store,
	dispatcher *notification.Dispatcher,
) *PushHandler {
	return &PushHandler{
		publicKey,
		subscriptions,
		dispatcher,
	}
}

func (h *PushHandler) PublicKey(ctx context.Context) (PublicKeyResponse, error) {
	return PublicKeyResponse{
		PublicKey: h.publicKey,
	}, nil
}

func (h *PushHandler) Subscribe(ctx context.Context, req SubscribeRequest) (SubscribeResponse, error) {
	if req.UserId == "" || isAbsent(req.Subscription) {
		return SubscribeResponse{},
			ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("userId and subscription are required"))
	}

	var subscription push.Subscription
	if err := json.Unmarshal(req.Subscription, &subscription); err != nil {
		return SubscribeResponse{},
			ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subscription: "+err.Error()))
	}

	h.subscriptions.Put(req.UserId, subscription)

	return SubscribeResponse{
		Success: true,
		Message: "Subscription saved",
	}, nil
}

func (h *PushHandler) SendNotification(ctx context.Context, req SendNotificationRequest) (SendNotificationResponse, error) {
	result, err := h.dispatcher.SendWithPushFallback(ctx, req.Request, req.UserId)
	if err != nil {
		return SendNotificationResponse{}, err
	}

	return SendNotificationResponse{
		Success:    true,
		SocketSent: result.SocketSent,
		PushSent:   result.PushSent,
	}, nil
}

func (h *PushHandler) BroadcastNotification(ctx context.Context, req notification.Request) (BroadcastNotificationResponse, error) {
	result, err := h.dispatcher.BroadcastWithPush(ctx, req)
	if err != nil {
		return BroadcastNotificationResponse{}, err
	}

	response := BroadcastNotificationResponse{
		Success:     true,
		SocketsSent: result.SocketsSent,
		PushSent:    result.PushSent,
	}

	for _, failure := range result.PushFailures() {
		response.PushFailures = append(response.PushFailures, PushFailure{
			UserId: failure.UserId,
			Error:  failure.Err.Error(),
		})
	}

	return response, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
