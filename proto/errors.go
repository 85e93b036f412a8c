package proto

import "errors"

// Sentinel errors of this package. MessageFrame.Validate returns the first
// three; the Assembler reports its outcomes as bool results instead.
var (
	// ErrInvalidMessageType indicates a frame header names a MessageType
	// outside {Data, Command, Debug, Algorithm}.
	ErrInvalidMessageType = errors.New("proto: invalid message type")

	// ErrPayloadSizeMismatch indicates a frame's payloadSize header field
	// disagrees with the actual length of its payload.
	ErrPayloadSizeMismatch = errors.New("proto: payload size mismatch")

	// ErrNegativeSequenceNumber indicates a frame's sequenceNumber is
	// negative, which can never be part of a valid dense {0,...,N-1} set.
	ErrNegativeSequenceNumber = errors.New("proto: negative sequence number")

	// ErrMessageNotComplete names the case of a messageId that has not yet
	// satisfied the completeness rule (or has already been cleaned up).
	// GetAssembled and GetMessageType report that case with a false second
	// result; no function in this package returns this error.
	ErrMessageNotComplete = errors.New("proto: message not complete")
)
