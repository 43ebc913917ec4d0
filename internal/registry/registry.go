package registry

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Connection is a live bidirectional channel able to receive server events.
type Connection interface {
	Id() string
	Send(method string, params any) error
}

// Registry maps user identities to the live connections they registered on.
type Registry interface {
	// Connect records a live connection, identified or not
	Connect(connection Connection)

	// Register binds userId to connection, replacing any previous owner.
	// It reports false when the connection is no longer live.
	Register(userId string, connection Connection) bool

	// Unregister removes the mapping for userId if present
	Unregister(userId string)

	// Disconnect drops a live connection and releases the identities it still owns
	Disconnect(connectionId string) []string

	Lookup(userId string) (Connection, bool)
	UserIds() []string
	Connections() []Connection
	ConnectionCount() int
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections       map[string]Connection
	ownersByUser      map[string]string
	usersByConnection map[string]map[string]struct{}
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:            logger,
		connections:       make(map[string]Connection),
		ownersByUser:      make(map[string]string),
		usersByConnection: make(map[string]map[string]struct{}),
	}
}

func (r *InMemoryRegistry) Connect(connection Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections[connection.Id()] = connection
}

func (r *InMemoryRegistry) Register(userId string, connection Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	connectionId := connection.Id()
	if _, ok := r.connections[connectionId]; !ok {
		return false
	}

	if previousOwner, ok := r.ownersByUser[userId]; ok && previousOwner != connectionId {
		r.releaseLocked(userId, previousOwner)

		r.logger.Debug("user identity moved to a new connection",
			zap.String("userId", userId),
			zap.String("previousConnectionId", previousOwner),
			zap.String("connectionId", connectionId))
	}

	r.ownersByUser[userId] = connectionId

	if _, ok := r.usersByConnection[connectionId]; !ok {
		r.usersByConnection[connectionId] = make(map[string]struct{})
	}

	r.usersByConnection[connectionId][userId] = struct{}{}

	return true
}

func (r *InMemoryRegistry) Unregister(userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.ownersByUser[userId]
	if !ok {
		return
	}

	delete(r.ownersByUser, userId)
	r.releaseLocked(userId, owner)
}

func (r *InMemoryRegistry) Disconnect(connectionId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, connectionId)

	ownedUsers, ok := r.usersByConnection[connectionId]
	if !ok {
		return nil
	}

	released := make([]string, 0, len(ownedUsers))
	for userId := range ownedUsers {
		if r.ownersByUser[userId] != connectionId {
			panic("inconsistent state: owned user points at another connection")
		}

		delete(r.ownersByUser, userId)
		released = append(released, userId)
	}

	delete(r.usersByConnection, connectionId)
	slices.Sort(released)

	return released
}

func (r *InMemoryRegistry) Lookup(userId string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionId, ok := r.ownersByUser[userId]
	if !ok {
		return nil, false
	}

	connection, ok := r.connections[connectionId]

	return connection, ok
}

func (r *InMemoryRegistry) UserIds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userIds := make([]string, 0, len(r.ownersByUser))
	for userId := range r.ownersByUser {
		userIds = append(userIds, userId)
	}

	slices.Sort(userIds)

	return userIds
}

func (r *InMemoryRegistry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connections := make([]Connection, 0, len(r.connections))
	for _, connection := range r.connections {
		connections = append(connections, connection)
	}

	return connections
}

func (r *InMemoryRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}

// IMPORTANT: It must be called only when a write lock is already held.
func (r *InMemoryRegistry) releaseLocked(userId string, connectionId string) {
	ownedUsers, ok := r.usersByConnection[connectionId]
	if !ok {
		return
	}

	delete(ownedUsers, userId)
	if len(ownedUsers) == 0 {
		delete(r.usersByConnection, connectionId)
	}
}
