// Package notify carries user-facing messages from the core to whatever
// renders them. The core picks the text and severity; rendering is not its
// concern.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
)

type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// Raise stamps and sends a notification; a nil Notifier drops it.
func Raise(to Notifier, sev Severity, msg string) {
	if to == nil {
		return
	}
	to.Notify(Notification{Message: msg, Severity: sev, At: time.Now()})
}

type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Multi fans a notification out to every member.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, to := range m {
		if to != nil {
			to.Notify(n)
		}
	}
}

type logNotifier struct {
	log *zap.Logger
}

// Log writes notifications to zap: success at info, warning at warn, error at
// error level.
func Log(log *zap.Logger) Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return logNotifier{log: log.Named("notify")}
}

func (l logNotifier) Notify(n Notification) {
	fields := []zap.Field{zap.String("severity", string(n.Severity))}
	switch n.Severity {
	case Error:
		l.log.Error(n.Message, fields...)
	case Warning:
		l.log.Warn(n.Message, fields...)
	default:
		l.log.Info(n.Message, fields...)
	}
}

const DefaultFeedSize = 16

// Feed buffers the most recent notifications until the UI drains them.
type Feed struct {
	mu  sync.Mutex
	max int
	buf []Notification
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = DefaultFeedSize
	}
	return &Feed{max: max}
}

func (f *Feed) Notify(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.buf) == f.max {
		copy(f.buf, f.buf[1:])
		f.buf = f.buf[:len(f.buf)-1]
	}
	f.buf = append(f.buf, n)
}

// Drain returns pending notifications oldest first and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.buf
	f.buf = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
