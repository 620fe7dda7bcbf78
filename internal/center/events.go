package center

import (
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// EventType identifies what happened to a notification.
type EventType int

const (
	// EventCreated is emitted when a notification enters the active set.
	EventCreated EventType = iota
	// EventAction is emitted when one of a notification's actions is invoked,
	// before its effect runs.
	EventAction
	// EventClosed is emitted when a notification leaves the active set.
	EventClosed
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventAction:
		return "action"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event describes a change to the active set.
type Event struct {
	Type         EventType
	Notification model.Notification
	Reason       model.CloseReason // Set for EventClosed
	ActionKey    string            // Set for EventAction and for EventClosed with CloseReasonAction
	At           time.Time
}

// Subscriber receives events in the order the center produced them.
type Subscriber func(Event)

type queued struct {
	event   Event
	barrier chan struct{} // non-nil for Flush markers
}

// dispatcher buffers events and delivers them from a single goroutine, so
// subscribers observe changes in order and may call back into the center.
type dispatcher struct {
	mu      sync.Mutex
	pending []queued
	signal  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool

	deliver func(Event)
}

func newDispatcher(deliver func(Event)) *dispatcher {
	d := &dispatcher{
		signal:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		deliver: deliver,
	}
	go d.run()
	return d
}

// push appends an event and emits a non-blocking drain signal.
func (d *dispatcher) push(q queued) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	d.pending = append(d.pending, q)
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
	return true
}

// drain returns all buffered events and clears the buffer.
func (d *dispatcher) drain() []queued {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return nil
	}
	out := d.pending
	d.pending = nil
	return out
}

func (d *dispatcher) run() {
	defer close(d.doneCh)

	for {
		select {
		case <-d.signal:
			d.deliverAll(d.drain())
		case <-d.stopCh:
			d.deliverAll(d.drain())
			return
		}
	}
}

func (d *dispatcher) deliverAll(items []queued) {
	for _, q := range items {
		if q.barrier != nil {
			close(q.barrier)
			continue
		}
		d.deliver(q.event)
	}
}

// flush blocks until every event pushed before the call has been delivered.
func (d *dispatcher) flush() {
	barrier := make(chan struct{})
	if !d.push(queued{barrier: barrier}) {
		return
	}
	<-barrier
}

// stop delivers what is left and waits for the goroutine to exit.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	<-d.doneCh
}
