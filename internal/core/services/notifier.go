// internal/core/services/notifier.go
package services

import (
	"sync"
	"time"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 4 * time.Second

// Timer is the subset of *time.Timer the notifier needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d.
type AfterFunc func(d time.Duration, fn func()) Timer

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithAfterFunc replaces the timer used for auto-dismissal.
func WithAfterFunc(fn AfterFunc) NotifierOption {
	return func(n *Notifier) {
		n.after = fn
	}
}

// WithNotifyListener registers a callback run on every change, with nil when
// the slot empties. Callbacks run one at a time, in change order, and must not
// call back into the notifier.
func WithNotifyListener(fn func(*domain.Notification)) NotifierOption {
	return func(n *Notifier) {
		n.listeners = append(n.listeners, fn)
	}
}

// Notifier holds at most one notification. A new notification replaces the
// current one and restarts the dismissal timer.
type Notifier struct {
	ttl       time.Duration
	after     AfterFunc
	listeners []func(*domain.Notification)

	// emitMu serializes deliveries so a listener never sees an older slot
	// state after a newer one.
	emitMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	current *domain.Notification
	timer   Timer
}

// NewNotifier creates a notifier that dismisses after ttl.
func NewNotifier(ttl time.Duration, opts ...NotifierOption) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	n := &Notifier{
		ttl: ttl,
		after: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify shows msg, replacing anything visible.
func (n *Notifier) Notify(msg string, severity domain.Severity) domain.Notification {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	note := domain.Notification{ID: gen, Message: msg, Severity: severity}
	n.current = &note
	n.timer = n.after(n.ttl, func() { n.expire(gen) })
	n.mu.Unlock()

	n.emit()
	return note
}

// Success shows a success notification.
func (n *Notifier) Success(msg string) domain.Notification {
	return n.Notify(msg, domain.SeveritySuccess)
}

// Error shows an error notification.
func (n *Notifier) Error(msg string) domain.Notification {
	return n.Notify(msg, domain.SeverityError)
}

// Dismiss empties the slot immediately.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return
	}
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	n.current = nil
	n.mu.Unlock()

	n.emit()
}

// Current returns the visible notification, if any.
func (n *Notifier) Current() (domain.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return domain.Notification{}, false
	}
	return *n.current, true
}

// expire fires from the timer. Timers of replaced notifications carry an old
// generation and do nothing.
func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen || n.current == nil {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.emit()
}

// emit delivers the slot as it is once the previous delivery has finished,
// which may be newer than the change that triggered it.
func (n *Notifier) emit() {
	if len(n.listeners) == 0 {
		return
	}
	n.emitMu.Lock()
	defer n.emitMu.Unlock()

	var note *domain.Notification
	if current, ok := n.Current(); ok {
		note = &current
	}
	for _, fn := range n.listeners {
		fn(note)
	}
}
