// Package stream reconciles the chunk protocol spoken by the relay into
// render events: fragments accumulate into one growing assistant message,
// a terminator seals it, and system chunks surface as transient notices.
package stream

import (
	"strings"

	"go.uber.org/zap"
)

// ProcessingNotice is boilerplate the relay sends at the start of every
// turn. It is suppressed on the rendering side, even as a notice.
const ProcessingNotice = "Processing your request..."

// Chunk is one message on the relay's duplex channel.
type Chunk struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Partial bool   `json:"partial,omitempty"`
}

// Event classifies what a chunk did to the rendered conversation.
type Event int

const (
	// EventNone means the chunk required no rendering.
	EventNone Event = iota
	// EventOpened means a new assistant message started with this fragment.
	EventOpened
	// EventAppended means the open assistant message grew.
	EventAppended
	// EventClosed means the open assistant message is complete.
	EventClosed
	// EventMessage means a standalone complete assistant message arrived.
	EventMessage
	// EventNotice means a transient system notification should be shown.
	EventNotice
)

// Update is the rendering instruction derived from one chunk. For EventOpened,
// EventAppended and EventClosed, Text is the full accumulated message so far;
// renderers re-render from scratch rather than patching incrementally, which
// keeps markdown correct across fragment boundaries that split tokens.
type Update struct {
	Event Event
	Text  string
}

// Reconciler tracks the open-stream state for one channel. Not safe for
// concurrent use; channel readers are single-goroutine by construction.
type Reconciler struct {
	open   bool
	buf    strings.Builder
	logger *zap.Logger
}

// NewReconciler creates a reconciler. logger may be nil.
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Open reports whether an assistant message is currently streaming.
func (r *Reconciler) Open() bool { return r.open }

// Reset force-clears stream state. Called when the user starts a new turn so
// a stale in-flight stream can never append to an old message.
func (r *Reconciler) Reset() {
	r.open = false
	r.buf.Reset()
}

// Apply feeds one chunk through the state machine.
func (r *Reconciler) Apply(c Chunk) Update {
	switch c.Role {
	case "system":
		if c.Content == ProcessingNotice {
			return Update{Event: EventNone}
		}
		return Update{Event: EventNotice, Text: c.Content}

	case "assistant":
		return r.applyAssistant(c)

	default:
		r.logger.Warn("ignoring chunk with unexpected role", zap.String("role", c.Role))
		return Update{Event: EventNone}
	}
}

func (r *Reconciler) applyAssistant(c Chunk) Update {
	if c.Partial {
		r.buf.WriteString(c.Content)
		if r.open {
			return Update{Event: EventAppended, Text: r.buf.String()}
		}
		r.open = true
		return Update{Event: EventOpened, Text: r.buf.String()}
	}

	if !r.open {
		if c.Content == "" {
			return Update{Event: EventNone}
		}
		// Complete message outside any stream: render as its own bubble.
		return Update{Event: EventMessage, Text: c.Content}
	}

	// Terminator. A non-empty terminator while a stream is open closes the
	// stream without appending; the content is dropped with a warning so
	// lost text is at least visible in logs.
	if c.Content != "" {
		r.logger.Warn("terminator carried content while stream open; discarding",
			zap.Int("discarded_bytes", len(c.Content)))
	}
	text := r.buf.String()
	r.Reset()
	return Update{Event: EventClosed, Text: text}
}
