package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/notifier/internal/realtime"
)

type RegisterResponse struct {
	Registered bool `json:"registered"`
}

type RegisterHandlerInterface interface {
	Handle(ctx context.Context, params *json.RawMessage) (RegisterResponse, error)
}

type RegisterHandler struct {
	manager *realtime.Manager
}

func NewRegisterHandler(manager *realtime.Manager) *RegisterHandler {
	return &RegisterHandler{
		manager,
	}
}

// Handle binds the userId carried in params to the calling channel. A missing
// or non-string userId is ignored rather than reported.
func (h *RegisterHandler) Handle(ctx context.Context, params *json.RawMessage) (RegisterResponse, error) {
	channel, ok := realtime.ChannelFromContext(ctx)
	if !ok {
		return RegisterResponse{}, errors.New("channel not found in context")
	}

	var userId string
	if params != nil {
		if err := json.Unmarshal(*params, &userId); err != nil {
			userId = ""
		}
	}

	return RegisterResponse{
		Registered: h.manager.Register(channel, userId),
	}, nil
}
