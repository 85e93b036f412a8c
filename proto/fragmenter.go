package proto

import "github.com/google/uuid"

// MaxFragmentSize is the largest payload a single frame may carry. The
// value leaves room for header overhead under a 4 KiB frame; the transport
// package itself reads length-prefixed frames of up to 1 MiB and does not
// use a 4 KiB buffer.
const MaxFragmentSize = 4000

// Fragment splits payload into an ordered sequence of frames sharing a
// freshly generated messageId. If payload fits in a single frame, exactly
// one frame is returned with sequenceNumber 0 and isLast true.
func Fragment(payload string, t MessageType) []MessageFrame {
	return FragmentWithID(payload, t, uuid.New().String())
}

// FragmentWithID behaves like Fragment but stamps every produced frame
// with id instead of generating a new one. Handlers use this to reply to
// an inbound message: all reply frames carry the request's messageId so
// the client can correlate request and response.
func FragmentWithID(payload string, t MessageType, id string) []MessageFrame {
	if len(payload) <= MaxFragmentSize {
		return []MessageFrame{
			{
				Header: MessageHeader{
					MessageID:      id,
					SequenceNumber: 0,
					IsLast:         true,
					PayloadSize:    len(payload),
					Type:           t,
				},
				Payload: payload,
			},
		}
	}

	n := (len(payload) + MaxFragmentSize - 1) / MaxFragmentSize
	frames := make([]MessageFrame, 0, n)
	for i := 0; i < n; i++ {
		start := i * MaxFragmentSize
		end := start + MaxFragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		slice := payload[start:end]
		frames = append(frames, MessageFrame{
			Header: MessageHeader{
				MessageID:      id,
				SequenceNumber: i,
				IsLast:         i == n-1,
				PayloadSize:    len(slice),
				Type:           t,
			},
			Payload: slice,
		})
	}
	return frames
}
