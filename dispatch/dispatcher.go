package dispatch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/coregx/timetable/proto"
)

// Dispatcher holds at most one Handler per MessageType and routes
// complete messages to it (spec.md §4.4).
type Dispatcher struct {
	log *zap.Logger

	mu       sync.RWMutex
	handlers map[proto.MessageType]Handler
}

// New constructs an empty Dispatcher.
func New(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		log:      log,
		handlers: make(map[proto.MessageType]Handler),
	}
}

// Register binds h to mt. Registering a second handler for the same
// type replaces the first — last-wins, matching the original source's
// behavior (spec.md §4.4, §9) — but logs a warning, since in practice
// this only happens at startup and usually indicates a wiring mistake.
func (d *Dispatcher) Register(mt proto.MessageType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[mt]; exists {
		d.log.Warn("overwriting previously registered handler", zap.String("type", string(mt)))
	}
	d.handlers[mt] = h
}

// Dispatch looks up the handler registered for msgType and invokes it
// with payload. It returns false if no handler is registered, or if the
// handler panics — panics are recovered, logged, and treated as a
// failed dispatch rather than crashing the message loop (spec.md §4.4:
// "exceptions thrown by a handler are caught, logged, and converted to
// false").
func (d *Dispatcher) Dispatch(messageID string, payload []byte, msgType proto.MessageType, r Replier) (ok bool) {
	d.mu.RLock()
	h, exists := d.handlers[msgType]
	d.mu.RUnlock()

	if !exists {
		d.log.Warn("no handler registered for message type",
			zap.String("type", string(msgType)), zap.String("messageId", messageID))
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("handler panicked",
				zap.String("type", string(msgType)), zap.String("messageId", messageID),
				zap.Any("recover", rec))
			ok = false
		}
	}()

	h.Handle(messageID, payload, r)
	return true
}

func (d *Dispatcher) String() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fmt.Sprintf("Dispatcher{%d handlers}", len(d.handlers))
}
