package push

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// Sender delivers one serialized payload to one subscription.
type Sender interface {
	Send(ctx context.Context, subscription Subscription, payload []byte) error
}

type WebPushOptions struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
	HTTPClient      webpush.HTTPClient
}

type WebPushSender struct {
	logger  *zap.Logger
	options webpush.Options
}

func NewWebPushSender(logger *zap.Logger, opts WebPushOptions) *WebPushSender {
	return &WebPushSender{
		logger: logger,
		options: webpush.Options{
			HTTPClient:      opts.HTTPClient,
			Subscriber:      opts.Subscriber,
			VAPIDPublicKey:  opts.VAPIDPublicKey,
			VAPIDPrivateKey: opts.VAPIDPrivateKey,
			TTL:             opts.TTL,
			Urgency:         webpush.UrgencyNormal,
		},
	}
}

func (s *WebPushSender) PublicKey() string {
	return s.options.VAPIDPublicKey
}

func (s *WebPushSender) Send(ctx context.Context, subscription Subscription, payload []byte) error {
	options := s.options

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.Keys.P256dh,
			Auth:   subscription.Keys.Auth,
		},
	}, &options)
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("push service rejected notification: status %d: %s", resp.StatusCode, body)
	}

	s.logger.Debug("web push accepted",
		zap.String("endpoint", subscription.Endpoint),
		zap.Int("status", resp.StatusCode))

	return nil
}
