package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/goevery/notifier/internal/ierr"
)

// Request carries the caller-supplied part of a notification.
type Request struct {
	Message string `json:"message"`
	Body    string `json:"body"`
	Url     string `json:"url,omitempty"`
}

func (r Request) Validate() error {
	if r.Message == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("message is required"))
	}

	if r.Body == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("body is required"))
	}

	return nil
}

// Notification is what recipients receive. Timestamp is unix milliseconds.
type Notification struct {
	Message   string `json:"message"`
	Body      string `json:"body"`
	Url       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Stamp builds the delivered notification; the server time is appended to the body.
func (r Request) Stamp(now time.Time) Notification {
	timestamp := now.UnixMilli()

	return Notification{
		Message:   r.Message,
		Body:      fmt.Sprintf("%s - %d", r.Body, timestamp),
		Url:       r.Url,
		Timestamp: timestamp,
	}
}
