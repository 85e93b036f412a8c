// Package system wires Transport, the Fragmenter/Assembler pair, the
// Dispatcher, and the Algorithm Scanner/Runner into the single message
// loop described in spec.md §4.7, and owns the deferred-shutdown
// shepherd goroutine required by §9 so a client-originated "stop"
// command never joins its own message loop.
package system

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/algo"
	"github.com/coregx/timetable/dispatch"
	"github.com/coregx/timetable/handlers"
	"github.com/coregx/timetable/proto"
	"github.com/coregx/timetable/transport"
)

// inboundWait bounds each message-loop iteration's wait for queued
// inbound frames (spec.md §4.7/§5: "bounded timeout ... ≤500ms").
const inboundWait = 500 * time.Millisecond

// System is the facade: it implements dispatch.Replier (so handlers can
// reply), handlers.ServerStatus and handlers.Shutdowner (so the Command
// handler can answer "status" and request shutdown), and
// transport.ConnEvents (so connect/disconnect also update metrics).
type System struct {
	log       *zap.Logger
	cfg       Config
	startTime time.Time

	transport  *transport.Server
	dispatcher *dispatch.Dispatcher
	assembler  *proto.Assembler
	scanner    *algo.Scanner
	runner     *algo.Runner
	metrics    *Metrics

	running         atomic.Bool
	shutdownRequest chan struct{}
	done            chan struct{}
	closeOnce       sync.Once
	wg              sync.WaitGroup
}

// New builds a System from cfg, wiring every handler spec.md §4.4
// describes against the given scanner/runner. The returned System has
// not started listening yet; call Start.
func New(cfg Config, log *zap.Logger) *System {
	s := &System{
		log:             log,
		cfg:             cfg,
		scanner:         algo.NewScanner(cfg.AlgosDir, log),
		runner:          algo.NewRunner(cfg.TempDir, log),
		assembler:       proto.NewAssembler(),
		metrics:         NewMetrics(),
		dispatcher:      dispatch.New(log),
		shutdownRequest: make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
	s.transport = transport.NewServer(s, log)

	algoHandler := handlers.NewAlgorithmHandler(s.scanner, s.runner, cfg.RunTimeoutSeconds, log)
	algoHandler.SetRunRecorder(s.metrics)

	s.dispatcher.Register(proto.Command, handlers.NewCommandHandler(s, s, log))
	s.dispatcher.Register(proto.Debug, handlers.NewDebugHandler(s, log))
	s.dispatcher.Register(proto.Data, handlers.NewDataHandler(log))
	s.dispatcher.Register(proto.Algorithm, algoHandler)

	return s
}

// Start binds the listening socket, brings up the optional metrics
// endpoint, and starts the accept loop, the message loop, and the
// shutdown shepherd (spec.md §4.7, §5).
func (s *System) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	if err := s.transport.Listen(addr); err != nil {
		return fmt.Errorf("system: listen on %s: %w", addr, err)
	}
	s.metrics.Serve(s.cfg.MetricsAddr, s.log)

	s.startTime = time.Now()
	s.running.Store(true)

	s.wg.Add(2)
	go s.acceptLoop()
	go s.messageLoop()
	go s.shepherd()

	s.log.Info("system started", zap.String("addr", addr), zap.String("algosDir", s.cfg.AlgosDir))
	return nil
}

// Stop tears the system down: stops any active algorithm run, closes
// the transport (disconnecting the client and the listener), waits for
// the accept/message loops to exit, and stops the metrics endpoint.
// Idempotent — safe to call more than once, including from the
// shepherd goroutine.
func (s *System) Stop() error {
	var err error
	s.closeOnce.Do(func() {
		s.log.Info("system stopping")
		s.running.Store(false)
		close(s.done)

		if s.runner.IsRunning() {
			_ = s.runner.Stop()
		}

		err = s.transport.Close()
		s.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.metrics.Shutdown(ctx)

		s.log.Info("system stopped")
	})
	return err
}

// acceptLoop repeatedly attempts to accept a client, stopping once
// Stop has been requested (spec.md §4.7: "the Transport's accept path
// is driven by the facade").
func (s *System) acceptLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		s.transport.Accept()
	}
}

// messageLoop is the single loop spec.md §4.7 describes: drain queued
// inbound frames, feed the Assembler, dispatch whatever frame
// completed a message, repeat until Stop.
func (s *System) messageLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		frames := s.transport.WaitInbound(inboundWait)
		for _, frame := range frames {
			s.handleFrame(frame)
		}
	}
}

func (s *System) handleFrame(frame proto.MessageFrame) {
	messageID, complete := s.assembler.AddFragment(frame)
	if !complete {
		return
	}
	payload, _ := s.assembler.GetAssembled(messageID)
	msgType, _ := s.assembler.GetMessageType(messageID)
	s.assembler.Cleanup(messageID)

	s.metrics.ObserveDispatch(string(msgType))
	if !s.dispatcher.Dispatch(messageID, []byte(payload), msgType, s) {
		s.log.Warn("message dispatch failed",
			zap.String("messageId", messageID), zap.String("type", string(msgType)))
	}
}

// shutdownFlushDelay is how long the shepherd waits after a shutdown
// request before actually tearing the transport down, so the "stop"
// reply the Command handler already enqueued has time to reach the send
// worker and go out on the wire (spec.md §4.4: "asynchronously trigger
// system shutdown after a short delay so the reply is flushed").
const shutdownFlushDelay = 150 * time.Millisecond

// shepherd is the deferred-shutdown worker spec.md §9/§5 requires: it
// is the only call site allowed to join the accept/message loops via
// Stop, so the Command handler's "stop" case (running on the message
// loop itself) never blocks on its own goroutine.
func (s *System) shepherd() {
	select {
	case <-s.shutdownRequest:
		s.log.Info("shutdown requested via command handler, flushing reply before teardown")
		time.Sleep(shutdownFlushDelay)
		_ = s.Stop()
	case <-s.done:
	}
}

// Reply implements dispatch.Replier: it fragments payload under
// messageId (so a reply always correlates to its request) and enqueues
// every resulting frame for delivery to the connected client.
func (s *System) Reply(messageID string, msgType proto.MessageType, payload []byte) error {
	frames := proto.FragmentWithID(string(payload), msgType, messageID)
	for _, f := range frames {
		if !s.transport.SendMessage(f) {
			return fmt.Errorf("system: no client connected to deliver reply %s", messageID)
		}
	}
	return nil
}

// RequestShutdown implements handlers.Shutdowner. It only signals the
// shepherd and returns immediately — it must never be called from a
// context that then waits on the message loop it is itself part of.
func (s *System) RequestShutdown() {
	select {
	case s.shutdownRequest <- struct{}{}:
	default:
	}
}

// Addr returns the bound listener's address. Only meaningful after a
// successful Start; used by tests and by operators who start the
// server with port 0 and need to learn the assigned port.
func (s *System) Addr() net.Addr {
	return s.transport.Addr()
}

// Running implements handlers.ServerStatus.
func (s *System) Running() bool {
	return s.running.Load()
}

// ClientConnected implements handlers.ServerStatus.
func (s *System) ClientConnected() bool {
	return s.transport.IsConnected()
}

// Uptime implements handlers.ServerStatus.
func (s *System) Uptime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Connected implements transport.ConnEvents.
func (s *System) Connected(remoteAddr string) {
	s.log.Info("client connected", zap.String("remote", remoteAddr))
	s.metrics.SetClientConnected(true)
}

// Disconnected implements transport.ConnEvents.
func (s *System) Disconnected(err error) {
	if err != nil {
		s.log.Info("client disconnected", zap.Error(err))
	} else {
		s.log.Info("client disconnected")
	}
	s.metrics.SetClientConnected(false)
}
