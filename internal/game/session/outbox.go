// Package session provides per-player identity and the outbound message queue
// that carries room traffic to a connection.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// PlayerID identifies one handshaken connection. IDs are random, never reused,
// and never derived from the peer's network address.
type PlayerID string

// NewPlayerID mints a fresh PlayerID.
//
// Postcondition: Returns a non-empty ID distinct from every previously minted ID.
func NewPlayerID() PlayerID {
	return PlayerID(uuid.NewString())
}

// String returns the ID as a plain string.
func (id PlayerID) String() string {
	return string(id)
}

// ErrOutboxClosed is returned by Push once the outbox has been closed.
var ErrOutboxClosed = errors.New("outbox closed")

// Outbox is an unbounded FIFO of lines destined for a single player.
// Producers never block; the owning connection waits on Ready and then Drains.
// All methods are safe for concurrent use.
type Outbox struct {
	owner PlayerID

	mu     sync.Mutex
	queue  []string
	closed bool

	// ready holds at most one pending wakeup. Every Push and Close leaves a token
	// behind, so a consumer that drains after each wakeup never misses a message.
	ready chan struct{}
}

// NewOutbox creates an empty, open Outbox for owner.
//
// Postcondition: Returns an Outbox with no queued messages.
func NewOutbox(owner PlayerID) *Outbox {
	return &Outbox{
		owner: owner,
		ready: make(chan struct{}, 1),
	}
}

// Owner returns the player this outbox delivers to.
func (o *Outbox) Owner() PlayerID {
	return o.owner
}

// Push appends msg to the queue and wakes the consumer.
//
// Postcondition: msg is queued, or ErrOutboxClosed is returned and nothing changes.
func (o *Outbox) Push(msg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutboxClosed
	}
	o.queue = append(o.queue, msg)
	o.signal()
	return nil
}

// Ready returns the wakeup channel. A receive means Drain may return new data
// or a changed closed state.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Drain removes and returns every queued message in FIFO order, along with
// whether the outbox has been closed. Messages queued before Close are still
// returned.
func (o *Outbox) Drain() ([]string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := o.queue
	o.queue = nil
	return msgs, o.closed
}

// Close stops further Pushes and wakes the consumer. Close is idempotent.
//
// Postcondition: IsClosed reports true; already-queued messages remain drainable.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		o.signal()
	}
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Len returns the number of messages waiting to be drained.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// signal leaves a wakeup token unless one is already pending.
// Caller must hold o.mu.
func (o *Outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
