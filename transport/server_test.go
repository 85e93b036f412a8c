package transport

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingEvents struct {
	connected    chan string
	disconnected chan error
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{
		connected:    make(chan string, 4),
		disconnected: make(chan error, 4),
	}
}

func (r *recordingEvents) Connected(remoteAddr string) { r.connected <- remoteAddr }
func (r *recordingEvents) Disconnected(err error)      { r.disconnected <- err }

func startTestServer(t *testing.T) (*Server, *recordingEvents, string) {
	t.Helper()
	events := newRecordingEvents()
	srv := NewServer(events, zap.NewNop())
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv, events, srv.listener.Addr().String()
}

func TestServerAcceptsSingleClientAndRejectsSecond(t *testing.T) {
	srv, events, addr := startTestServer(t)

	acceptDone := make(chan bool, 1)
	go func() { acceptDone <- srv.Accept() }()

	client1, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client1.Close()

	if ok := <-acceptDone; !ok {
		t.Fatal("Accept returned false for first client")
	}
	select {
	case <-events.connected:
	case <-time.After(time.Second):
		t.Fatal("Connected event never fired")
	}

	if !srv.IsConnected() {
		t.Fatal("server should report connected")
	}

	client2, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer client2.Close()

	if ok := srv.Accept(); ok {
		t.Fatal("Accept should reject a second client while one is active")
	}

	buf := make([]byte, 1)
	_ = client2.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := client2.Read(buf); err == nil {
		t.Fatal("second client connection should have been closed by the server")
	}
}

func TestServerSendMessageRoundTrip(t *testing.T) {
	srv, _, addr := startTestServer(t)

	acceptDone := make(chan bool, 1)
	go func() { acceptDone <- srv.Accept() }()

	client, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if ok := <-acceptDone; !ok {
		t.Fatal("Accept returned false")
	}

	want := testFrame(`{"command":"status"}`)
	if !srv.SendMessage(want) {
		t.Fatal("SendMessage returned false")
	}

	lenBuf := make([]byte, lengthPrefixSize)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := readFull(client, lenBuf); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	body := make([]byte, decodeLen(lenBuf))
	if err := readFull(client, body); err != nil {
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

func TestServerWaitInboundReceivesClientFrame(t *testing.T) {
	srv, _, addr := startTestServer(t)

	acceptDone := make(chan bool, 1)
	go func() { acceptDone <- srv.Accept() }()

	client, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if ok := <-acceptDone; !ok {
		t.Fatal("Accept returned false")
	}

	want := testFrame(`{"command":"ping"}`)
	wire, err := encodeFrame(want)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	if _, err := client.Write(wire); err != nil {
		t.Fatalf("write: %v", err)
	}

	frames := srv.WaitInbound(2 * time.Second)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0] != want {
		t.Fatalf("got %+v, want %+v", frames[0], want)
	}
}

func TestServerDisconnectNotifiesEventsAndAllowsReaccept(t *testing.T) {
	srv, events, addr := startTestServer(t)

	acceptDone := make(chan bool, 1)
	go func() { acceptDone <- srv.Accept() }()
	client, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if ok := <-acceptDone; !ok {
		t.Fatal("Accept returned false")
	}
	<-events.connected

	srv.Disconnect()

	select {
	case <-events.disconnected:
	case <-time.After(time.Second):
		t.Fatal("Disconnected event never fired")
	}
	if srv.IsConnected() {
		t.Fatal("server should report not connected after Disconnect")
	}
	client.Close()

	acceptDone2 := make(chan bool, 1)
	go func() { acceptDone2 <- srv.Accept() }()
	client2, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer client2.Close()
	if ok := <-acceptDone2; !ok {
		t.Fatal("Accept should succeed again after Disconnect")
	}
}

func TestServerCloseIsIdempotent(t *testing.T) {
	events := newRecordingEvents()
	srv := NewServer(events, zap.NewNop())
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if srv.Accept() {
		t.Fatal("Accept should not succeed after Close")
	}
}
