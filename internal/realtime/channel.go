package realtime

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/goevery/notifier/internal/rpc"
)

type State int

const (
	StateConnected State = iota
	StateIdentified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrSendBufferFull = errors.New("channel send buffer is full")
)

// Channel is one live bidirectional connection. Outbound frames are queued
// and drained by the transport; a full queue marks the channel for eviction.
type Channel struct {
	id       string
	outbound chan []byte
	evicted  chan struct{}

	mu        sync.RWMutex
	state     State
	userId    string
	evictOnce sync.Once
}

func NewChannel(id string, bufferSize int) *Channel {
	return &Channel{
		id:       id,
		outbound: make(chan []byte, bufferSize),
		evicted:  make(chan struct{}),
		state:    StateConnected,
	}
}

func (c *Channel) Id() string {
	return c.id
}

func (c *Channel) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// UserId returns the identity most recently registered on this channel.
func (c *Channel) UserId() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.userId
}

// Outbound is closed once the channel reaches StateClosed.
func (c *Channel) Outbound() <-chan []byte {
	return c.outbound
}

// Evicted is closed when the channel could not keep up with its queue.
func (c *Channel) Evicted() <-chan struct{} {
	return c.evicted
}

func (c *Channel) Send(method string, params any) error {
	notification, err := rpc.NewNotification(method, params)
	if err != nil {
		return err
	}

	return c.write(notification)
}

func (c *Channel) Reply(response rpc.Response) error {
	return c.write(response)
}

func (c *Channel) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == StateClosed {
		return ErrChannelClosed
	}

	select {
	case c.outbound <- data:
		return nil
	default:
		c.evictOnce.Do(func() {
			close(c.evicted)
		})

		return ErrSendBufferFull
	}
}

func (c *Channel) identify(userId string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return "", ErrChannelClosed
	}

	previous := c.userId
	c.userId = userId
	c.state = StateIdentified

	return previous, nil
}

func (c *Channel) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return false
	}

	c.state = StateClosed
	close(c.outbound)

	return true
}
