package transport

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestConn(t *testing.T, side net.Conn) (*Conn, chan error) {
	t.Helper()
	disconnected := make(chan error, 1)
	c := newConn(side, zap.NewNop(), func(err error) {
		select {
		case disconnected <- err:
		default:
		}
	})
	c.start()
	t.Cleanup(func() {
		c.disconnect(nil)
		c.wait()
	})
	return c, disconnected
}

func TestConnReceivesWholeFrame(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	conn, _ := newTestConn(t, serverSide)

	want := testFrame(`{"command":"status"}`)
	wire, err := encodeFrame(want)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}

	go func() {
		_, _ = clientSide.Write(wire)
	}()

	frames := conn.waitInbound(2 * time.Second)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0] != want {
		t.Fatalf("got %+v, want %+v", frames[0], want)
	}
}

// TestConnReceivesFrameSplitAcrossReads verifies the receive worker
// reassembles a frame whose bytes arrive in several separate writes,
// each smaller than both the length prefix and the JSON body — the
// scenario the length-prefixed codec exists to handle correctly over a
// real TCP stream that offers no message boundaries.
func TestConnReceivesFrameSplitAcrossReads(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	conn, _ := newTestConn(t, serverSide)

	want := testFrame(`{"command":"ping","extra":"some longer payload to split across writes"}`)
	wire, err := encodeFrame(want)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}

	go func() {
		for i := 0; i < len(wire); i += 3 {
			end := i + 3
			if end > len(wire) {
				end = len(wire)
			}
			if _, err := clientSide.Write(wire[i:end]); err != nil {
				return
			}
		}
	}()

	frames := conn.waitInbound(2 * time.Second)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0] != want {
		t.Fatalf("got %+v, want %+v", frames[0], want)
	}
}

func TestConnSendDeliversFrame(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	conn, _ := newTestConn(t, serverSide)

	want := testFrame(`{"command":"ping"}`)
	if !conn.send(want) {
		t.Fatal("send returned false on a running connection")
	}

	lenBuf := make([]byte, lengthPrefixSize)
	if err := readFull(clientSide, lenBuf); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	n := decodeLen(lenBuf)
	body := make([]byte, n)
	if err := readFull(clientSide, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	got, err := decodeFrameBody(body)
	if err != nil {
		t.Fatalf("decodeFrameBody: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestConnDisconnectIsIdempotentAndNotifiesOnce(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	conn, disconnected := newTestConn(t, serverSide)

	conn.disconnect(nil)
	conn.disconnect(nil)
	conn.wait()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("onDisconnected was never invoked")
	}

	select {
	case <-disconnected:
		t.Fatal("onDisconnected invoked more than once")
	default:
	}

	if conn.send(testFrame("x")) {
		t.Fatal("send on a disconnected connection should return false")
	}
}

func TestConnDisconnectOnPeerClose(t *testing.T) {
	serverSide, clientSide := net.Pipe()

	_, disconnected := newTestConn(t, serverSide)
	clientSide.Close()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("expected disconnect notification after peer closed")
	}
}

func readFull(c net.Conn, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := c.Read(buf[read:])
		read += n
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeLen(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
