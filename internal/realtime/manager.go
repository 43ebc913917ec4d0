package realtime

import (
	"fmt"
	"time"

	"github.com/goevery/notifier/internal/registry"
	"go.uber.org/zap"
)

const EventInit = "init"

// Manager drives the channel lifecycle and keeps the registry in step with it.
type Manager struct {
	logger   *zap.Logger
	registry registry.Registry

	now func() time.Time
}

func NewManager(
	logger *zap.Logger,
	registry registry.Registry,
) *Manager {
	return &Manager{
		logger:   logger,
		registry: registry,
		now:      time.Now,
	}
}

// Open records a freshly connected channel and greets it with the server time.
func (m *Manager) Open(channel *Channel) {
	m.registry.Connect(channel)

	greeting := fmt.Sprintf("data: %d", m.now().UnixMilli())
	if err := channel.Send(EventInit, greeting); err != nil {
		m.logger.Warn("failed to send init payload",
			zap.String("channelId", channel.Id()),
			zap.Error(err))
	}

	m.logger.Info("channel connected",
		zap.String("channelId", channel.Id()),
		zap.Int("totalConnected", m.registry.ConnectionCount()))
}

// Register binds userId to the channel. An empty userId or a closed channel
// leaves the registry untouched.
func (m *Manager) Register(channel *Channel, userId string) bool {
	if userId == "" {
		m.logger.Debug("ignoring register without userId",
			zap.String("channelId", channel.Id()))

		return false
	}

	previous, err := channel.identify(userId)
	if err != nil {
		return false
	}

	if !m.registry.Register(userId, channel) {
		return false
	}

	m.logger.Info("user registered",
		zap.String("userId", userId),
		zap.String("previousUserId", previous),
		zap.String("channelId", channel.Id()))

	return true
}

// Close is terminal. It is safe to call more than once.
func (m *Manager) Close(channel *Channel) {
	if !channel.close() {
		return
	}

	released := m.registry.Disconnect(channel.Id())

	m.logger.Info("channel disconnected",
		zap.String("channelId", channel.Id()),
		zap.Strings("unregisteredUsers", released))
}
