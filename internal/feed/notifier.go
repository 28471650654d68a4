package feed

import (
	"sync"
	"time"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 4 * time.Second

// Toast messages raised by the feed.
const (
	MessageNotePosted     = "Note posted."
	MessageLikeFailed     = "Failed to like note."
	MessageAlreadyReport  = "Already reported."
	MessageNoteReported   = "Note reported."
	MessageReportFailed   = "Failed to report note."
	MessageNoteRemoved    = "Note removed successfully."
	MessageRemoveFailed   = "Failed to remove note."
	MessagePostFailed     = "Failed to post note."
)

// Toast is a transient notification.
type Toast struct {
	ID      int64
	Message string
}

// Notifier keeps the active toasts and dismisses each one after its TTL.
type Notifier struct {
	mu       sync.Mutex
	ttl      time.Duration
	schedule func(time.Duration, func())
	nextID   int64
	active   []Toast
	listener func(Toast)
}

type NotifierConfig struct {
	TTL time.Duration
	// Schedule runs fn after d. Defaults to time.AfterFunc.
	Schedule func(d time.Duration, fn func())
	// OnToast is called for every new toast, outside the notifier lock.
	OnToast func(Toast)
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return &Notifier{ttl: ttl, schedule: schedule, listener: cfg.OnToast}
}

// Notify shows message and schedules its dismissal.
func (n *Notifier) Notify(message string) Toast {
	if n == nil {
		return Toast{Message: message}
	}
	n.mu.Lock()
	n.nextID++
	toast := Toast{ID: n.nextID, Message: message}
	n.active = append(n.active, toast)
	listener := n.listener
	n.mu.Unlock()

	n.schedule(n.ttl, func() { n.Dismiss(toast.ID) })
	if listener != nil {
		listener(toast)
	}
	return toast
}

// Dismiss removes a toast early. Unknown ids are ignored.
func (n *Notifier) Dismiss(id int64) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for index, toast := range n.active {
		if toast.ID == id {
			n.active = append(n.active[:index], n.active[index+1:]...)
			return
		}
	}
}

// Active returns the visible toasts, oldest first.
func (n *Notifier) Active() []Toast {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Toast(nil), n.active...)
}
