// Package notify implements a single-slot, auto-dismissing notification.
//
// A Notifier is either Hidden or Visible(message, timer). Showing a new
// message while one is visible stops the pending dismissal timer before
// arming a new one, so at most one notification is active at a time.
package notify

import (
	"sync"
	"time"
)

// DefaultTimeout is how long a notification stays visible.
const DefaultTimeout = 5 * time.Second

// State is the visibility state of a Notifier.
type State uint8

const (
	Hidden State = iota
	Visible
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	default:
		return "unknown"
	}
}

// Event is delivered to the sink on every transition.
type Event struct {
	State   State
	Message string
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTimeout sets the auto-dismiss delay. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithSink registers a callback for state transitions.
// The sink is called without the Notifier's lock held.
func WithSink(fn func(Event)) Option {
	return func(n *Notifier) {
		n.sink = fn
	}
}

// Notifier holds at most one visible message.
type Notifier struct {
	mu      sync.Mutex
	timeout time.Duration
	sink    func(Event)

	message string
	timer   *time.Timer
	gen     uint64
}

// New creates a hidden Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show makes msg the visible notification, replacing any pending one.
func (n *Notifier) Show(msg string) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.message = msg
	n.timer = time.AfterFunc(n.timeout, func() { n.expire(gen) })
	n.mu.Unlock()

	n.emit(Event{State: Visible, Message: msg})
}

// Dismiss hides the current notification, if any.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.timer == nil {
		n.mu.Unlock()
		return
	}
	n.timer.Stop()
	n.timer = nil
	n.message = ""
	n.gen++
	n.mu.Unlock()

	n.emit(Event{State: Hidden})
}

// Current returns the visible message and whether one is visible.
func (n *Notifier) Current() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message, n.timer != nil
}

// State returns Visible when a message is showing.
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		return Visible
	}
	return Hidden
}

// expire hides the notification armed at generation gen. A timer that fired
// after being superseded finds a newer generation and does nothing.
func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.message = ""
	n.mu.Unlock()

	n.emit(Event{State: Hidden})
}

func (n *Notifier) emit(ev Event) {
	if n.sink != nil {
		n.sink(ev)
	}
}
