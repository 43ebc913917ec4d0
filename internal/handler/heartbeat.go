package handler

import (
	"context"
	"time"

	"github.com/goevery/notifier/internal/realtime"
)

type HeartbeatResponse struct {
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state,omitempty"`
	UserId    string    `json:"userId,omitempty"`
}

type HeartbeatHandlerInterface interface {
	Handle(ctx context.Context) HeartbeatResponse
}

type HeartbeatHandler struct{}

func NewHeartbeatHandler() *HeartbeatHandler {
	return &HeartbeatHandler{}
}

// Handle echoes the server time along with the identity bound to the caller.
func (h *HeartbeatHandler) Handle(ctx context.Context) HeartbeatResponse {
	response := HeartbeatResponse{
		Timestamp: time.Now(),
	}

	if channel, ok := realtime.ChannelFromContext(ctx); ok {
		response.State = channel.State().String()
		response.UserId = channel.UserId()
	}

	return response
}
