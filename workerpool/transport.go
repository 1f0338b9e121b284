package workerpool

import (
	"fmt"
	"sync"
)

// Message is one control message carried over a Transport. Task lists
// and result records never travel this way; they move through the
// WorkerFunc call and return value directly.
type Message struct {
	Topic   string
	Payload any
}

// Transport is a pluggable control-message channel: broadcast
// (one-to-many by name), point-to-point (a single channel endpoint), or
// in-process (same-process event dispatch). All three share this
// interface so a ParallelCheckout coordinator can be wired to any of
// them without branching on flavor.
type Transport interface {
	// Send delivers msg to whatever this transport's flavor addresses:
	// every subscriber (broadcast), the one peer endpoint
	// (point-to-point), or every in-process listener (in-process).
	Send(msg Message) error
	// Close releases the transport's resources. Transports must be
	// explicitly closed; Send after Close returns an error.
	Close() error
}

// errClosed is returned by Send once a transport has been closed.
var errClosed = fmt.Errorf("workerpool: transport closed")

// BroadcastTransport fans a message out to every named subscriber.
type BroadcastTransport struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message
	closed      bool
}

// NewBroadcastTransport constructs an empty broadcast transport; use
// Subscribe to register receivers before Send.
func NewBroadcastTransport() *BroadcastTransport {
	return &BroadcastTransport{subscribers: make(map[string]chan Message)}
}

// Subscribe registers name to receive a buffered copy of every future
// Send. The returned channel is closed when the transport is closed.
func (t *BroadcastTransport) Subscribe(name string, buffer int) <-chan Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Message, buffer)
	t.subscribers[name] = ch
	return ch
}

// Send delivers msg to every current subscriber, non-blocking: a
// subscriber whose buffer is full misses the message rather than
// stalling the sender.
func (t *BroadcastTransport) Send(msg Message) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return errClosed
	}
	for _, ch := range t.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Close closes every subscriber channel and marks the transport closed.
func (t *BroadcastTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, ch := range t.subscribers {
		close(ch)
	}
	return nil
}

// PointToPointTransport wraps a single channel endpoint shared by
// exactly two parties.
type PointToPointTransport struct {
	mu     sync.Mutex
	ch     chan Message
	closed bool
}

// NewPointToPointTransport constructs a point-to-point transport with
// the given channel buffer size.
func NewPointToPointTransport(buffer int) *PointToPointTransport {
	return &PointToPointTransport{ch: make(chan Message, buffer)}
}

// Receive exposes the underlying channel for the peer side to read from.
func (t *PointToPointTransport) Receive() <-chan Message { return t.ch }

func (t *PointToPointTransport) Send(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errClosed
	}
	t.ch <- msg
	return nil
}

func (t *PointToPointTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.ch)
	return nil
}

// InProcessTransport dispatches a message synchronously to every
// registered listener function, in the same goroutine as Send. It is
// the cheapest flavor: no channels, no buffering, used when the
// coordinator and its workers share one process and one address space.
type InProcessTransport struct {
	mu        sync.Mutex
	listeners []func(Message)
	closed    bool
}

// NewInProcessTransport constructs an empty in-process transport.
func NewInProcessTransport() *InProcessTransport {
	return &InProcessTransport{}
}

// Listen registers fn to be invoked, in Send's goroutine, for every
// future message.
func (t *InProcessTransport) Listen(fn func(Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *InProcessTransport) Send(msg Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errClosed
	}
	listeners := make([]func(Message), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
	return nil
}

func (t *InProcessTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.listeners = nil
	return nil
}
