package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/proto"
)

// readTimeout bounds each individual Read on the client socket so the
// receive worker can periodically re-check its running flag instead of
// blocking forever (spec.md §4.1's "read with a short timeout ~100ms").
const readTimeout = 100 * time.Millisecond

// queueWaitTimeout bounds how long the send worker waits for new outbound
// frames before re-checking its running flag (spec.md §4.1/§5's "bounded
// wait ... ≤500ms").
const queueWaitTimeout = 500 * time.Millisecond

// signal is a minimal bounded-wait condition variable built on a
// buffered channel: Notify is a non-blocking "at least one waiter will
// wake" post, Wait blocks for at most a timeout. It stands in for the
// mutex+condition-variable pattern spec.md describes, adapted to Go's
// idiom of unblocking waits with channels rather than raw sync.Cond
// (which has no built-in timeout).
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1)}
}

func (s *signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *signal) Wait(timeout time.Duration) {
	select {
	case <-s.ch:
	case <-time.After(timeout):
	}
}

// Conn wraps one accepted client socket: a receive worker pushing decoded
// frames onto an inbound queue, and a send worker draining an outbound
// queue, both bounded-wait per spec.md §4.1/§5.
type Conn struct {
	netConn net.Conn
	log     *zap.Logger

	running atomic.Bool

	inMu  sync.Mutex
	inQ   []proto.MessageFrame
	inSig *signal

	outMu  sync.Mutex
	outQ   []proto.MessageFrame
	outSig *signal

	closeOnce sync.Once
	closeErr  error

	wg sync.WaitGroup

	onDisconnected func(error)
}

func newConn(netConn net.Conn, log *zap.Logger, onDisconnected func(error)) *Conn {
	c := &Conn{
		netConn:        netConn,
		log:            log,
		inSig:          newSignal(),
		outSig:         newSignal(),
		onDisconnected: onDisconnected,
	}
	c.running.Store(true)
	return c
}

func (c *Conn) start() {
	c.wg.Add(2)
	go c.receiveLoop()
	go c.sendLoop()
}

// waitInbound blocks for up to timeout for at least one inbound frame,
// then drains and returns every frame currently queued (possibly none, if
// the wait simply timed out). Draining the whole queue in one call
// minimizes lock hold time per spec.md §4.7.
func (c *Conn) waitInbound(timeout time.Duration) []proto.MessageFrame {
	c.inSig.Wait(timeout)

	c.inMu.Lock()
	defer c.inMu.Unlock()
	if len(c.inQ) == 0 {
		return nil
	}
	drained := c.inQ
	c.inQ = nil
	return drained
}

// send enqueues frame for delivery. Returns false if the connection is no
// longer running.
func (c *Conn) send(frame proto.MessageFrame) bool {
	if !c.running.Load() {
		return false
	}
	c.outMu.Lock()
	c.outQ = append(c.outQ, frame)
	c.outMu.Unlock()
	c.outSig.Notify()
	return true
}

// disconnect idempotently shuts the connection down and notifies
// onDisconnected once, outside of any lock.
func (c *Conn) disconnect(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		c.running.Store(false)
		_ = c.netConn.Close()
		c.inSig.Notify()
		c.outSig.Notify()
		if c.onDisconnected != nil {
			c.onDisconnected(cause)
		}
	})
}

// wait blocks until both workers have exited.
func (c *Conn) wait() {
	c.wg.Wait()
}

func (c *Conn) receiveLoop() {
	defer c.wg.Done()

	for c.running.Load() {
		lenBuf := make([]byte, lengthPrefixSize)
		if err := c.readExactly(lenBuf); err != nil {
			if c.running.Load() {
				c.log.Debug("receive loop: read error, disconnecting", zap.Error(err))
				c.disconnect(err)
			}
			return
		}

		n := binary.BigEndian.Uint32(lenBuf)
		if n > maxWireFrameSize {
			c.log.Warn("receive loop: frame exceeds maximum wire size, disconnecting", zap.Uint32("size", n))
			c.disconnect(ErrFrameTooLarge)
			return
		}

		body := make([]byte, n)
		if err := c.readExactly(body); err != nil {
			if c.running.Load() {
				c.disconnect(err)
			}
			return
		}

		frame, err := decodeFrameBody(body)
		if err != nil {
			// Malformed bytes are logged and discarded; the connection
			// stays open (spec.md §7: "offending bytes discarded").
			c.log.Warn("receive loop: discarding malformed frame", zap.Error(err))
			continue
		}

		c.inMu.Lock()
		c.inQ = append(c.inQ, frame)
		c.inMu.Unlock()
		c.inSig.Notify()
	}
}

// readExactly fills buf completely, retrying across short read-deadline
// timeouts without losing already-read bytes, and returns promptly once
// the connection is no longer running.
func (c *Conn) readExactly(buf []byte) error {
	read := 0
	for read < len(buf) {
		if !c.running.Load() {
			return net.ErrClosed
		}
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		n, err := c.netConn.Read(buf[read:])
		read += n
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}
	}
	return nil
}

func (c *Conn) sendLoop() {
	defer c.wg.Done()

	for c.running.Load() {
		c.outSig.Wait(queueWaitTimeout)

		c.outMu.Lock()
		pending := c.outQ
		c.outQ = nil
		c.outMu.Unlock()

		for _, frame := range pending {
			wire, err := encodeFrame(frame)
			if err != nil {
				c.log.Error("send loop: encode failed, dropping frame", zap.Error(err))
				continue
			}
			if err := c.writeFully(wire); err != nil {
				c.log.Debug("send loop: write error, disconnecting", zap.Error(err))
				c.disconnect(err)
				return
			}
		}
	}
}

func (c *Conn) writeFully(b []byte) error {
	written := 0
	for written < len(b) {
		n, err := c.netConn.Write(b[written:])
		written += n
		if err != nil {
			if errors.Is(err, io.ErrShortWrite) {
				continue
			}
			return err
		}
	}
	return nil
}
