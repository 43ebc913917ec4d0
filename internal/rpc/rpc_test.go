package rpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	notification, err := NewNotification("init", "data: 1700000000000")
	require.NoError(t, err)

	assert.False(t, notification.ReplyExpected())

	rawJson, err := json.Marshal(notification)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"init","params":"data: 1700000000000"}`, string(rawJson))
}

func TestRequest_Reply(t *testing.T) {
	request := Request{Id: "7", Method: "heartbeat"}
	assert.True(t, request.ReplyExpected())

	result := json.RawMessage(`{"ok":true}`)
	response := request.Reply(&result)
	assert.Equal(t, "7", response.RequestId)
	assert.False(t, response.IsFailure())

	response = request.ReplyWithError(ierr.New(ierr.ErrorCodeNotFound, errors.New("method not found: nope")))
	assert.True(t, response.IsFailure())

	rawJson, err := json.Marshal(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestId":"7","error":{"code":"NotFound","message":"method not found: nope"}}`, string(rawJson))
}
