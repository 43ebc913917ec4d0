package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification"
)

type SendToAllRequest = notification.Request

type SendToAllResponse struct {
	Success         bool                      `json:"success"`
	Data            notification.Notification `json:"data"`
	TotalRecipients int                       `json:"totalRecipients"`
}

type SendToUsersRequest struct {
	notification.Request
	UserIds json.RawMessage `json:"userIds"`
}

type SendToUsersResponse struct {
	Success        bool                      `json:"success"`
	Data           notification.Notification `json:"data"`
	SentCount      int                       `json:"sentCount"`
	RequestedCount int                       `json:"requestedCount"`
	NotFoundUsers  []string                  `json:"notFoundUsers"`
}

type SendToUserRequest struct {
	notification.Request
	UserId string `json:"userId"`
}

type SendToUserResponse struct {
	Success bool                      `json:"success"`
	Data    notification.Notification `json:"data"`
	Sent    bool                      `json:"sent"`
}

type SendHandler struct {
	dispatcher *notification.Dispatcher
}

func NewSendHandler(dispatcher *notification.Dispatcher) *SendHandler {
	return &SendHandler{
		dispatcher,
	}
}

func (h *SendHandler) SendToAll(ctx context.Context, req SendToAllRequest) (SendToAllResponse, error) {
	result, err := h.dispatcher.SendToAll(ctx, req)
	if err != nil {
		return SendToAllResponse{}, err
	}

	return SendToAllResponse{
		Success:         true,
		Data:            result.Notification,
		TotalRecipients: result.TotalRecipients,
	}, nil
}

func (h *SendHandler) SendToUsers(ctx context.Context, req SendToUsersRequest) (SendToUsersResponse, error) {
	if err := req.Validate(); err != nil {
		return SendToUsersResponse{}, err
	}

	userIds, err := decodeUserIds(req.UserIds)
	if err != nil {
		return SendToUsersResponse{}, err
	}

	result, err := h.dispatcher.SendToUsers(ctx, req.Request, userIds)
	if err != nil {
		return SendToUsersResponse{}, err
	}

	return SendToUsersResponse{
		Success:        true,
		Data:           result.Notification,
		SentCount:      result.SentCount,
		RequestedCount: result.RequestedCount,
		NotFoundUsers:  result.NotFoundUsers,
	}, nil
}

func (h *SendHandler) SendToUser(ctx context.Context, req SendToUserRequest) (SendToUserResponse, error) {
	result, err := h.dispatcher.SendToUser(ctx, req.Request, req.UserId)
	if err != nil {
		return SendToUserResponse{}, err
	}

	if !result.Sent {
		return SendToUserResponse{},
			ierr.New(ierr.ErrorCodeNotFound, errors.New("User not found or not connected"))
	}

	return SendToUserResponse{
		Success: true,
		Data:    result.Notification,
		Sent:    true,
	}, nil
}

func decodeUserIds(raw json.RawMessage) ([]string, error) {
	errMissing := ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("userIds array is required"))

	if len(raw) == 0 {
		return nil, errMissing
	}

	var userIds []string
	if err := json.Unmarshal(raw, &userIds); err != nil || len(userIds) == 0 {
		return nil, errMissing
	}

	return userIds, nil
}
