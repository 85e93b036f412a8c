package proto

import (
	"errors"
	"testing"
)

func TestMessageTypeValid(t *testing.T) {
	cases := []struct {
		mt   MessageType
		want bool
	}{
		{Data, true},
		{Command, true},
		{Debug, true},
		{Algorithm, true},
		{MessageType("Bogus"), false},
		{MessageType(""), false},
	}
	for _, c := range cases {
		if got := c.mt.Valid(); got != c.want {
			t.Errorf("MessageType(%q).Valid() = %v, want %v", c.mt, got, c.want)
		}
	}
}

func TestMessageFrameValidate(t *testing.T) {
	good := MessageFrame{
		Header: MessageHeader{MessageID: "x", SequenceNumber: 0, IsLast: true, PayloadSize: 3, Type: Data},
		Payload: "abc",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() on well-formed frame: %v", err)
	}

	badType := good
	badType.Header.Type = "Nope"
	if err := badType.Validate(); !errors.Is(err, ErrInvalidMessageType) {
		t.Fatalf("Validate() = %v, want ErrInvalidMessageType", err)
	}

	badSize := good
	badSize.Header.PayloadSize = 99
	if err := badSize.Validate(); !errors.Is(err, ErrPayloadSizeMismatch) {
		t.Fatalf("Validate() = %v, want ErrPayloadSizeMismatch", err)
	}

	badSeq := good
	badSeq.Header.SequenceNumber = -1
	if err := badSeq.Validate(); !errors.Is(err, ErrNegativeSequenceNumber) {
		t.Fatalf("Validate() = %v, want ErrNegativeSequenceNumber", err)
	}
}
