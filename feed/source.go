package feed

import (
	"sync"
	"time"
)

// RawMessage is a message as delivered by the broker.
type RawMessage struct {
	RoutingKey string
	Payload    []byte
	// Timestamp is the time the message was received.
	Timestamp time.Time
}

// ConnectionEvent reports a change of the broker connection.
type ConnectionEvent int

const (
	Connected ConnectionEvent = iota
	Disconnected
)

func (e ConnectionEvent) String() string {
	if e == Disconnected {
		return "disconnected"
	}
	return "connected"
}

// Source delivers feed messages. Both channels are closed when the source
// is closed.
type Source interface {
	Messages() <-chan RawMessage
	ConnectionEvents() <-chan ConnectionEvent
}

// ChanSource is an in-memory Source.
type ChanSource struct {
	messages chan RawMessage
	events   chan ConnectionEvent

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewChanSource creates a ChanSource that buffers up to size messages.
func NewChanSource(size int) *ChanSource {
	return &ChanSource{
		messages: make(chan RawMessage, size),
		events:   make(chan ConnectionEvent, 4),
	}
}

func (s *ChanSource) Messages() <-chan RawMessage {
	return s.messages
}

func (s *ChanSource) ConnectionEvents() <-chan ConnectionEvent {
	return s.events
}

// Publish delivers a message received now. It blocks while the buffer is
// full and reports false once the source is closed.
func (s *ChanSource) Publish(routingKey string, payload []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	s.messages <- RawMessage{RoutingKey: routingKey, Payload: payload, Timestamp: time.Now()}
	return true
}

// SetConnected delivers a connection event.
func (s *ChanSource) SetConnected(connected bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if connected {
		s.events <- Connected
	} else {
		s.events <- Disconnected
	}
}

// Close closes both channels.
func (s *ChanSource) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.messages)
		close(s.events)
		s.mu.Unlock()
	})
}
