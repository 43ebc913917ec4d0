package handler

import (
	"context"

	"github.com/goevery/notifier/internal/registry"
)

type ConnectedUsersResponse struct {
	Success         bool     `json:"success"`
	TotalConnected  int      `json:"totalConnected"`
	RegisteredUsers []string `json:"registeredUsers"`
}

type ConnectedUsersHandler struct {
	registry registry.Registry
}

func NewConnectedUsersHandler(registry registry.Registry) *ConnectedUsersHandler {
	return &ConnectedUsersHandler{
		registry,
	}
}

func (h *ConnectedUsersHandler) Handle(ctx context.Context) (ConnectedUsersResponse, error) {
	return ConnectedUsersResponse{
		Success:         true,
		TotalConnected:  h.registry.ConnectionCount(),
		RegisteredUsers: h.registry.UserIds(),
	}, nil
}
