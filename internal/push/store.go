package push

import (
	"slices"
	"sync"
)

type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the browser PushSubscription as serialized by toJSON().
type Subscription struct {
	Endpoint       string `json:"endpoint"`
	ExpirationTime *int64 `json:"expirationTime,omitempty"`
	Keys           Keys   `json:"keys"`
}

// Store keeps one push subscription per user. Entries are only ever replaced,
// never expired.
type Store interface {
	Put(userId string, subscription Subscription)
	Get(userId string) (Subscription, bool)
	Keys() []string
}

type InMemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[string]Subscription
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		subscriptions: make(map[string]Subscription),
	}
}

func (s *InMemoryStore) Put(userId string, subscription Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[userId] = subscription
}

func (s *InMemoryStore) Get(userId string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subscription, ok := s.subscriptions[userId]

	return subscription, ok
}

func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userIds := make([]string, 0, len(s.subscriptions))
	for userId := range s.subscriptions {
		userIds = append(userIds, userId)
	}

	slices.Sort(userIds)

	return userIds
}
