package swarm

import "sync"

// EventEmitter carries events from schedulers to the consumer. Delivery is
// lossless: the stream reflects every state transition exactly once, so a
// full buffer applies backpressure to the emitting scheduler instead of
// dropping. Emissions happen on each scheduler's run-loop goroutine, which
// keeps per-task ordering intact under backpressure.
type EventEmitter struct {
	events chan SwarmEvent
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan SwarmEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Emit delivers an event, blocking until the consumer makes room. Events
// emitted after Close are discarded.
func (e *EventEmitter) Emit(event SwarmEvent) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.senders.Add(1)
	e.mu.Unlock()
	defer e.senders.Done()

	select {
	case e.events <- event:
	case <-e.done:
	}
}

// Events returns a read-only channel of events.
// This is used by subscribers (e.g., the CLI event tail) to receive updates.
func (e *EventEmitter) Events() <-chan SwarmEvent {
	return e.events
}

// Close releases any blocked emitters and closes the events channel once
// they have returned. Buffered events remain readable.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.done)
	e.senders.Wait()
	close(e.events)
}
