// Package center implements the notification center: the single registry of
// toasts currently on screen, their expiry timers, and dismissal.
package center

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/clock"
	"github.com/jmylchreest/toastd/internal/model"
)

// ErrClosed is returned by Notify after the center has been torn down.
var ErrClosed = errors.New("notification center is closed")

// entry is an active notification together with its expiry timer.
type entry struct {
	n      model.Notification
	timer  clock.Timer // nil for sticky notifications
	acting bool        // an action effect is running; only the invoker may remove it
}

type subscription struct {
	id int
	fn Subscriber
}

// Center owns the active set. It is safe for concurrent use.
type Center struct {
	mu     sync.Mutex
	logger *slog.Logger
	clock  clock.Clock
	ids    *model.IDGenerator

	defaultDuration time.Duration
	stickyKinds     map[model.Kind]bool

	// Newest first
	active []*entry
	index  map[string]*entry

	subscribers []subscription
	nextSubID   int

	events *dispatcher
	closed bool
}

// Option configures a Center.
type Option func(*Center)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(ctr *Center) {
		ctr.clock = c
	}
}

// WithDefaultDuration sets the lifetime used when a request does not specify one.
func WithDefaultDuration(d time.Duration) Option {
	return func(ctr *Center) {
		if d > 0 {
			ctr.defaultDuration = d
		}
	}
}

// WithStickyKinds makes every notification of the given kinds stay until dismissed.
func WithStickyKinds(kinds ...model.Kind) Option {
	return func(ctr *Center) {
		for _, k := range kinds {
			ctr.stickyKinds[k] = true
		}
	}
}

// New creates a Center. Call Close when the session ends.
func New(logger *slog.Logger, opts ...Option) *Center {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Center{
		logger:          logger,
		clock:           clock.Real(),
		ids:             model.NewIDGenerator(),
		defaultDuration: model.DefaultDuration,
		stickyKinds:     make(map[model.Kind]bool),
		index:           make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = newDispatcher(c.deliver)

	return c
}

// Notify adds a notification to the front of the active set and schedules its
// expiry. An empty kind means model.DefaultKind; the kind is not validated here.
func (c *Center) Notify(message string, kind model.Kind, opts model.Options) (string, error) {
	if kind == "" {
		kind = model.DefaultKind
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}

	now := c.clock.Now()
	id, err := c.ids.New(now)
	if err != nil {
		return "", err
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = c.defaultDuration
	}
	sticky := opts.Sticky || c.stickyKinds[kind]

	n := model.Notification{
		ID:        id,
		Message:   message,
		Kind:      kind,
		Source:    opts.Source,
		Sticky:    sticky,
		CreatedAt: now,
	}
	if len(opts.Actions) > 0 {
		n.Actions = make([]model.Action, len(opts.Actions))
		copy(n.Actions, opts.Actions)
	}

	e := &entry{}
	if !sticky {
		n.Duration = duration
		n.ExpiresAt = now.Add(duration)
		e.timer = c.clock.AfterFunc(duration, func() {
			c.expire(id)
		})
	}
	e.n = n

	c.active = append([]*entry{e}, c.active...)
	c.index[id] = e

	c.pushLocked(Event{Type: EventCreated, Notification: n.Clone(), At: now})

	c.logger.Debug("notification created",
		"notification_id", id,
		"kind", kind,
		"duration", n.Duration,
		"sticky", sticky,
		"actions", len(n.Actions),
		"active", len(c.active),
	)

	return id, nil
}

// Dismiss removes a notification and cancels its timer. Unknown or already
// removed ids are ignored; the return value reports whether anything was removed.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[id]
	if !ok || e.acting {
		return false
	}
	c.removeLocked(e, model.CloseReasonDismissed, "")
	return true
}

// DismissAll removes every notification that has no action in flight.
func (c *Center) DismissAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	targets := make([]*entry, 0, len(c.active))
	for _, e := range c.active {
		if !e.acting {
			targets = append(targets, e)
		}
	}
	for _, e := range targets {
		c.removeLocked(e, model.CloseReasonDismissed, "")
	}
	return len(targets)
}

// InvokeAction runs the effect of the action at index, then dismisses the
// notification. The effect runs at most once per notification: repeated,
// concurrent or re-entrant calls return false without running anything.
func (c *Center) InvokeAction(id string, index int) bool {
	c.mu.Lock()
	e, ok := c.index[id]
	if !ok || e.acting {
		c.mu.Unlock()
		return false
	}
	if index < 0 || index >= len(e.n.Actions) {
		c.mu.Unlock()
		c.logger.Warn("action index out of range", "notification_id", id, "index", index, "actions", len(e.n.Actions))
		return false
	}

	e.acting = true
	action := e.n.Actions[index]
	key := e.n.ActionKey(index)
	c.pushLocked(Event{Type: EventAction, Notification: e.n.Clone(), ActionKey: key, At: c.clock.Now()})
	c.mu.Unlock()

	c.runEffect(id, key, action.Effect)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Teardown may have removed it while the effect ran.
	if cur, ok := c.index[id]; ok && cur == e {
		c.removeLocked(e, model.CloseReasonAction, key)
	}
	return true
}

// InvokeActionKey is InvokeAction addressed by action key.
func (c *Center) InvokeActionKey(id, key string) bool {
	c.mu.Lock()
	e, ok := c.index[id]
	index := -1
	if ok {
		index = e.n.ActionIndex(key)
	}
	c.mu.Unlock()

	if index < 0 {
		return false
	}
	return c.InvokeAction(id, index)
}

func (c *Center) runEffect(id, key string, effect func()) {
	if effect == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("action effect panicked", "notification_id", id, "action_key", key, "panic", r)
		}
	}()
	effect()
}

// expire is the timer callback. Timers racing a dismissal find nothing to do.
func (c *Center) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[id]
	if !ok || e.acting {
		return
	}
	c.removeLocked(e, model.CloseReasonExpired, "")
}

// removeLocked drops e from the active set. Caller must hold the lock.
func (c *Center) removeLocked(e *entry, reason model.CloseReason, actionKey string) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	delete(c.index, e.n.ID)
	for i, cur := range c.active {
		if cur == e {
			c.active = append(c.active[:i], c.active[i+1:]...)
			break
		}
	}

	c.pushLocked(Event{
		Type:         EventClosed,
		Notification: e.n.Clone(),
		Reason:       reason,
		ActionKey:    actionKey,
		At:           c.clock.Now(),
	})

	c.logger.Debug("notification closed",
		"notification_id", e.n.ID,
		"reason", reason,
		"active", len(c.active),
	)
}

// Active returns a snapshot of the active set, newest first.
func (c *Center) Active() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, 0, len(c.active))
	for _, e := range c.active {
		out = append(out, e.n.Clone())
	}
	return out
}

// Get returns the active notification with the given id.
func (c *Center) Get(id string) (model.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[id]
	if !ok {
		return model.Notification{}, false
	}
	return e.n.Clone(), true
}

// Len returns the size of the active set.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Now returns the center's current time.
func (c *Center) Now() time.Time {
	return c.clock.Now()
}

// DefaultDuration returns the lifetime applied to requests without one.
func (c *Center) DefaultDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultDuration
}

// SetDefaultDuration changes the default lifetime for notifications created
// afterwards. Non-positive values are ignored.
func (c *Center) SetDefaultDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultDuration = d
}

// SetStickyKinds replaces the set of kinds that never auto-expire.
func (c *Center) SetStickyKinds(kinds ...model.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stickyKinds = make(map[model.Kind]bool, len(kinds))
	for _, k := range kinds {
		c.stickyKinds[k] = true
	}
}

// Subscribe registers fn for all future events and returns a function that
// removes the subscription.
func (c *Center) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscription{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subscribers {
			if s.id == id {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Flush blocks until all events produced so far have been delivered.
// It must not be called from a Subscriber.
func (c *Center) Flush() {
	c.events.flush()
}

// Close tears the center down: pending timers are cancelled, remaining
// notifications close with CloseReasonShutdown, and queued events are
// delivered before Close returns. It must not be called from a Subscriber.
func (c *Center) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	remaining := make([]*entry, len(c.active))
	copy(remaining, c.active)
	for _, e := range remaining {
		c.removeLocked(e, model.CloseReasonShutdown, "")
	}
	c.mu.Unlock()

	c.events.stop()
	c.logger.Debug("notification center closed", "closed_on_shutdown", len(remaining))
	return nil
}

// pushLocked queues an event. Caller must hold the lock so queue order matches
// mutation order.
func (c *Center) pushLocked(ev Event) {
	c.events.push(queued{event: ev})
}

// deliver runs on the dispatcher goroutine.
func (c *Center) deliver(ev Event) {
	c.mu.Lock()
	subs := make([]Subscriber, len(c.subscribers))
	for i, s := range c.subscribers {
		subs[i] = s.fn
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
