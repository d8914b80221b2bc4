// internal/message/message.go
//
// Intake – toast notifications.
//
// Context
//   The submission controller reports outcomes as short toasts (title,
//   message, variant).  A Notifier receives them as they happen; the Flash
//   queue is the Notifier each form session uses so the next page render can
//   drain and display whatever accumulated since the previous one.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Variant controls toast styling.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

// Toast is one user-visible notification.
type Toast struct {
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Variant Variant `json:"variant"`
}

// Notifier accepts toasts.  Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, t Toast)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, t Toast) { f(ctx, t) }

// Flash is a bounded per-session toast queue.  Zero value is ready to use.
type Flash struct {
	mu     sync.Mutex
	toasts []Toast
}

// flashCap bounds a queue nobody drains.
const flashCap = 16

// Notify appends t, dropping the oldest toast when the queue is full.
func (f *Flash) Notify(_ context.Context, t Toast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.toasts) == flashCap {
		f.toasts = f.toasts[1:]
	}
	f.toasts = append(f.toasts, t)
}

// Drain returns and clears all queued toasts.
func (f *Flash) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.toasts
	f.toasts = nil
	return out
}

// Logged decorates next so every toast is also written to the process log.
func Logged(next Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, t Toast) {
		zap.S().Infow("toast", "title", t.Title, "variant", t.Variant)
		next.Notify(ctx, t)
	})
}
