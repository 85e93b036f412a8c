package transport

import "errors"

// ErrFrameTooLarge is the error passed to ConnEvents.Disconnected when a
// decoded length prefix exceeds maxWireFrameSize; the receive worker then
// drops the connection instead of making an unbounded allocation for a
// corrupt or hostile length field. Accept and SendMessage report
// connection-state failures as plain bool per spec.md §4.1, so this is
// the only sentinel error the transport package needs.
var ErrFrameTooLarge = errors.New("transport: frame exceeds maximum wire size")
