package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeConnection struct {
	id string
}

func (c *fakeConnection) Id() string {
	return c.id
}

func (c *fakeConnection) Send(method string, params any) error {
	return nil
}

func TestInMemoryRegistry(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("last registration wins", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		first := &fakeConnection{id: "conn-1"}
		second := &fakeConnection{id: "conn-2"}

		registry.Connect(first)
		registry.Connect(second)

		assert.True(t, registry.Register("alice", first))
		assert.True(t, registry.Register("alice", second))

		assert.Equal(t, []string{"alice"}, registry.UserIds())

		connection, ok := registry.Lookup("alice")
		assert.True(t, ok)
		assert.Equal(t, "conn-2", connection.Id())
	})

	t.Run("disconnect of unregistered connection", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		registered := &fakeConnection{id: "conn-1"}
		anonymous := &fakeConnection{id: "conn-2"}

		registry.Connect(registered)
		registry.Connect(anonymous)
		registry.Register("alice", registered)

		released := registry.Disconnect(anonymous.Id())

		assert.Empty(t, released)
		assert.Equal(t, []string{"alice"}, registry.UserIds())
		assert.Equal(t, 1, registry.ConnectionCount())
	})

	t.Run("stale disconnect keeps newer registration", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		stale := &fakeConnection{id: "conn-1"}
		fresh := &fakeConnection{id: "conn-2"}

		registry.Connect(stale)
		registry.Register("alice", stale)
		registry.Connect(fresh)
		registry.Register("alice", fresh)

		released := registry.Disconnect(stale.Id())

		assert.Empty(t, released)
		connection, ok := registry.Lookup("alice")
		assert.True(t, ok)
		assert.Equal(t, "conn-2", connection.Id())
	})

	t.Run("disconnect releases every owned identity", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		connection := &fakeConnection{id: "conn-1"}

		registry.Connect(connection)
		registry.Register("alice", connection)
		registry.Register("alice-tablet", connection)

		assert.Equal(t, []string{"alice", "alice-tablet"}, registry.UserIds())

		released := registry.Disconnect(connection.Id())

		assert.Equal(t, []string{"alice", "alice-tablet"}, released)
		assert.Empty(t, registry.UserIds())
		assert.Equal(t, 0, registry.ConnectionCount())
	})

	t.Run("register after disconnect is rejected", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		connection := &fakeConnection{id: "conn-1"}

		registry.Connect(connection)
		registry.Disconnect(connection.Id())

		assert.False(t, registry.Register("alice", connection))
		_, ok := registry.Lookup("alice")
		assert.False(t, ok)
	})

	t.Run("unregister", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		connection := &fakeConnection{id: "conn-1"}

		registry.Connect(connection)
		registry.Register("alice", connection)

		registry.Unregister("alice")
		registry.Unregister("bob")

		_, ok := registry.Lookup("alice")
		assert.False(t, ok)
		assert.Empty(t, registry.Disconnect(connection.Id()))
	})

	t.Run("registered users after registrations and disconnects", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		const registrations = 5
		connections := make([]*fakeConnection, registrations)
		for i := range connections {
			connections[i] = &fakeConnection{id: fmt.Sprintf("conn-%d", i)}
			registry.Connect(connections[i])
			registry.Register(fmt.Sprintf("user-%d", i), connections[i])
		}

		anonymous := &fakeConnection{id: "conn-anonymous"}
		registry.Connect(anonymous)

		registry.Disconnect(connections[1].Id())
		registry.Disconnect(connections[3].Id())

		assert.Equal(t, []string{"user-0", "user-2", "user-4"}, registry.UserIds())
		assert.Equal(t, 4, registry.ConnectionCount())
		assert.Len(t, registry.Connections(), 4)
	})
}
