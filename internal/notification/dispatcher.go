package notification

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/push"
	"github.com/goevery/notifier/internal/registry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	EventNotification = "notification"

	defaultPushConcurrency = 16
)

var errPushDisabled = errors.New("push delivery is not configured")

type Dispatcher struct {
	logger        *zap.Logger
	registry      registry.Registry
	subscriptions push.Store
	sender        push.Sender

	pushConcurrency int
	now             func() time.Time
}

// NewDispatcher wires the dispatcher. A nil sender disables push delivery.
func NewDispatcher(
	logger *zap.Logger,
	registry registry.Registry,
	subscriptions push.Store,
	sender push.Sender,
	pushConcurrency int,
) *Dispatcher {
	if pushConcurrency <= 0 {
		pushConcurrency = defaultPushConcurrency
	}

	return &Dispatcher{
		logger:          logger,
		registry:        registry,
		subscriptions:   subscriptions,
		sender:          sender,
		pushConcurrency: pushConcurrency,
		now:             time.Now,
	}
}

func (d *Dispatcher) SendToAll(ctx context.Context, req Request) (BroadcastResult, error) {
	if err := req.Validate(); err != nil {
		return BroadcastResult{}, err
	}

	notification := req.Stamp(d.now())
	sent := d.broadcast(notification)

	d.logger.Info("notification sent to all users",
		zap.Int("totalRecipients", sent))

	return BroadcastResult{
		Notification:    notification,
		TotalRecipients: sent,
	}, nil
}

func (d *Dispatcher) SendToUsers(ctx context.Context, req Request, userIds []string) (UsersResult, error) {
	if err := req.Validate(); err != nil {
		return UsersResult{}, err
	}

	if len(userIds) == 0 {
		return UsersResult{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("userIds array is required"))
	}

	notification := req.Stamp(d.now())

	result := UsersResult{
		Notification:   notification,
		RequestedCount: len(userIds),
		SentUsers:      []string{},
		NotFoundUsers:  []string{},
	}

	for _, userId := range userIds {
		if d.deliver(userId, notification) {
			result.SentCount++
			result.SentUsers = append(result.SentUsers, userId)
		} else {
			result.NotFoundUsers = append(result.NotFoundUsers, userId)
		}
	}

	d.logger.Info("notification sent to users",
		zap.Int("sentCount", result.SentCount),
		zap.Int("requestedCount", result.RequestedCount),
		zap.Strings("notFoundUsers", result.NotFoundUsers))

	return result, nil
}

func (d *Dispatcher) SendToUser(ctx context.Context, req Request, userId string) (UserResult, error) {
	if err := req.Validate(); err != nil {
		return UserResult{}, err
	}

	if userId == "" {
		return UserResult{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("userId is required"))
	}

	notification := req.Stamp(d.now())

	return UserResult{
		Notification: notification,
		Sent:         d.deliver(userId, notification),
	}, nil
}

// SendWithPushFallback tries the live channel and the push subscription
// independently; either, both or neither may succeed.
func (d *Dispatcher) SendWithPushFallback(ctx context.Context, req Request, userId string) (FallbackResult, error) {
	if err := req.Validate(); err != nil {
		return FallbackResult{}, err
	}

	if userId == "" {
		return FallbackResult{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("userId is required"))
	}

	notification := req.Stamp(d.now())

	result := FallbackResult{
		Notification: notification,
		SocketSent:   d.deliver(userId, notification),
	}

	if subscription, ok := d.subscriptions.Get(userId); ok {
		outcomes, err := d.pushAll(ctx, notification, map[string]push.Subscription{userId: subscription})
		if err != nil {
			return FallbackResult{}, err
		}

		result.PushSent = outcomes[0].Sent
	}

	d.logger.Info("notification sent with push fallback",
		zap.String("userId", userId),
		zap.Bool("socketSent", result.SocketSent),
		zap.Bool("pushSent", result.PushSent))

	return result, nil
}

func (d *Dispatcher) BroadcastWithPush(ctx context.Context, req Request) (PushBroadcastResult, error) {
	if err := req.Validate(); err != nil {
		return PushBroadcastResult{}, err
	}

	notification := req.Stamp(d.now())

	result := PushBroadcastResult{
		Notification: notification,
		SocketsSent:  d.broadcast(notification),
	}

	targets := make(map[string]push.Subscription)
	for _, userId := range d.subscriptions.Keys() {
		if subscription, ok := d.subscriptions.Get(userId); ok {
			targets[userId] = subscription
		}
	}

	outcomes, err := d.pushAll(ctx, notification, targets)
	if err != nil {
		return PushBroadcastResult{}, err
	}

	result.PushOutcomes = outcomes
	for _, outcome := range outcomes {
		if outcome.Sent {
			result.PushSent++
		}
	}

	d.logger.Info("notification broadcast with push",
		zap.Int("socketsSent", result.SocketsSent),
		zap.Int("pushSent", result.PushSent),
		zap.Int("pushAttempted", len(outcomes)))

	return result, nil
}

func (d *Dispatcher) broadcast(notification Notification) int {
	connections := d.registry.Connections()

	for _, connection := range connections {
		if err := connection.Send(EventNotification, notification); err != nil {
			d.logger.Warn("failed to queue notification",
				zap.String("connectionId", connection.Id()),
				zap.Error(err))
		}
	}

	return len(connections)
}

func (d *Dispatcher) deliver(userId string, notification Notification) bool {
	connection, ok := d.registry.Lookup(userId)
	if !ok {
		d.logger.Debug("user not found or not connected", zap.String("userId", userId))

		return false
	}

	if err := connection.Send(EventNotification, notification); err != nil {
		d.logger.Warn("failed to queue notification",
			zap.String("userId", userId),
			zap.String("connectionId", connection.Id()),
			zap.Error(err))

		return false
	}

	return true
}

// pushAll attempts every push independently with bounded concurrency and
// waits for all of them. Outcomes are ordered by user id.
func (d *Dispatcher) pushAll(ctx context.Context, notification Notification, targets map[string]push.Subscription) ([]PushOutcome, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, err
	}

	userIds := make([]string, 0, len(targets))
	for userId := range targets {
		userIds = append(userIds, userId)
	}
	slices.Sort(userIds)

	outcomes := make([]PushOutcome, len(userIds))

	if d.sender == nil {
		for i, userId := range userIds {
			outcomes[i] = PushOutcome{UserId: userId, Err: errPushDisabled}
		}

		return outcomes, nil
	}

	pushCtx := context.WithoutCancel(ctx)

	var group errgroup.Group
	group.SetLimit(d.pushConcurrency)

	for i, userId := range userIds {
		subscription := targets[userId]

		group.Go(func() error {
			err := d.sender.Send(pushCtx, subscription, payload)
			outcomes[i] = PushOutcome{
				UserId: userId,
				Sent:   err == nil,
				Err:    err,
			}

			return nil
		})
	}

	_ = group.Wait()

	var failures error
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			d.logger.Warn("push delivery failed",
				zap.String("userId", outcome.UserId),
				zap.Error(outcome.Err))

			failures = multierr.Append(failures, outcome.Err)
		}
	}

	if failures != nil {
		d.logger.Warn("push fan-out completed with failures",
			zap.Int("failed", len(multierr.Errors(failures))),
			zap.Int("attempted", len(outcomes)))
	}

	return outcomes, nil
}
