// Package notify is the toast surface: fire-and-forget messages for the user
// with a severity variant.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Variant     Variant `json:"variant"`
}

func Success(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: VariantDefault}
}

func Failure(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: VariantDestructive}
}

type Notifier interface {
	Notify(Toast)
}

// Collector keeps toasts in the order they were raised. The API returns them
// with the response of the request that produced them.
type Collector struct {
	mu     sync.Mutex
	toasts []Toast
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(t Toast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toasts = append(c.toasts, t)
}

// Toasts returns a copy; never nil so it encodes as [].
func (c *Collector) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

type logNotifier struct {
	logger *slog.Logger
	next   Notifier
}

// WithLog mirrors every toast to logger before passing it on.
func WithLog(logger *slog.Logger, next Notifier) Notifier {
	return &logNotifier{logger: logger, next: next}
}

func (l *logNotifier) Notify(t Toast) {
	level := slog.LevelDebug
	if t.Variant == VariantDestructive {
		level = slog.LevelInfo
	}
	l.logger.Log(context.Background(), level, "toast", "title", t.Title, "description", t.Description, "variant", string(t.Variant))
	if l.next != nil {
		l.next.Notify(t)
	}
}

type discard struct{}

func (discard) Notify(Toast) {}

// Discard drops every toast.
var Discard Notifier = discard{}
