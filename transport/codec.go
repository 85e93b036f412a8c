package transport

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/coregx/timetable/proto"
)

// lengthPrefixSize is the size, in bytes, of the big-endian frame length
// that precedes every JSON-encoded MessageFrame on the wire.
//
// This resolves the open question spec.md §4.1/§9 raises: the original
// implementation assumed one JSON object arrives per 4 KiB read, which
// TCP does not guarantee (a frame can be split across reads, and multiple
// small frames can coalesce into one read). Prefixing each frame with its
// byte length lets the receive worker always know exactly how many bytes
// to accumulate before attempting to decode JSON, independent of how the
// kernel happens to chunk the stream.
const lengthPrefixSize = 4

// maxWireFrameSize bounds the length prefix so a corrupt or adversarial
// value can't force an unbounded allocation. It comfortably exceeds
// proto.MaxFragmentSize plus JSON envelope/header overhead.
const maxWireFrameSize = 1 << 20 // 1 MiB

// encodeFrame marshals frame to JSON and prepends its big-endian byte
// length, producing the exact bytes written to the wire.
func encodeFrame(frame proto.MessageFrame) ([]byte, error) {
	body, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal frame: %w", err)
	}

	out := make([]byte, lengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(out[:lengthPrefixSize], uint32(len(body))) //nolint:gosec // bounded by maxWireFrameSize at decode time
	copy(out[lengthPrefixSize:], body)
	return out, nil
}

// decodeFrameBody unmarshals the JSON body of one wire frame (the bytes
// following the length prefix, already read in full by the caller).
func decodeFrameBody(body []byte) (proto.MessageFrame, error) {
	var frame proto.MessageFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		return proto.MessageFrame{}, fmt.Errorf("transport: unmarshal frame: %w", err)
	}
	return frame, nil
}
