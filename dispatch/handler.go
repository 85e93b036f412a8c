// Package dispatch routes complete, reassembled messages to the handler
// registered for their MessageType (spec.md §4.4).
package dispatch

import "github.com/coregx/timetable/proto"

// Replier is how a Handler sends reply frames back to the client. It is
// implemented by the system facade; handlers depend only on this
// interface to avoid an import cycle with the package that owns the
// Transport and Fragmenter.
//
// A single incoming message can produce more than one reply correlated
// to the same messageId — an Algorithm "run" request replies once with
// {status:"started"} and later again with progress/completion events.
type Replier interface {
	Reply(messageID string, msgType proto.MessageType, payload []byte) error
}

// Handler interprets the payload of one complete message and sends zero
// or more replies via r. It must not block the dispatcher for longer
// than producing those replies takes; long-running work (an algorithm
// run) is handed off to its own goroutine.
type Handler interface {
	Handle(messageID string, payload []byte, r Replier)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(messageID string, payload []byte, r Replier)

func (f HandlerFunc) Handle(messageID string, payload []byte, r Replier) {
	f(messageID, payload, r)
}
