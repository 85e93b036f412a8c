package handlers

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/dispatch"
	"github.com/coregx/timetable/proto"
)

// ServerStatus is queried by the Command handler's "status" subcommand
// and the Debug handler's "server_info" subcommand. The system facade
// implements it; handlers depend only on this interface to avoid an
// import cycle.
type ServerStatus interface {
	Running() bool
	ClientConnected() bool
	Uptime() time.Duration
}

// Shutdowner is how the Command handler's "stop" subcommand requests
// system shutdown. RequestShutdown must only request the shutdown (set
// a flag, notify a shepherd) and return immediately — the command
// handler runs on the message loop, and a shepherd joining the message
// loop's own goroutine would deadlock (spec.md §9).
type Shutdowner interface {
	RequestShutdown()
}

// CommandHandler implements the "ping"/"status"/"stop" Command
// subcommands (spec.md §4.4, grounded on CommandHandler.cpp).
type CommandHandler struct {
	log    *zap.Logger
	status ServerStatus
	sd     Shutdowner
}

// NewCommandHandler constructs a CommandHandler.
func NewCommandHandler(status ServerStatus, sd Shutdowner, log *zap.Logger) *CommandHandler {
	return &CommandHandler{log: log, status: status, sd: sd}
}

func (h *CommandHandler) Handle(messageID string, payload []byte, r dispatch.Replier) {
	var req map[string]any
	if err := json.Unmarshal(payload, &req); err != nil {
		sendJSON(h.log, r, messageID, proto.Command, map[string]any{
			"status":     "error",
			"message":    "Invalid JSON format",
			"error_code": CodeInvalidJSON,
		})
		return
	}

	command, ok := req["command"].(string)
	if !ok {
		sendJSON(h.log, r, messageID, proto.Command, map[string]any{
			"status":     "error",
			"message":    "No 'command' field found in payload",
			"error_code": CodeMissingCommandField,
		})
		return
	}

	switch command {
	case "ping":
		h.handlePing(messageID, r)
	case "status":
		h.handleStatus(messageID, r)
	case "stop":
		h.handleStop(messageID, r)
	default:
		sendJSON(h.log, r, messageID, proto.Command, map[string]any{
			"status":             "error",
			"message":            "Unknown command: " + command,
			"error_code":         CodeUnknownCommand,
			"available_commands": []string{"stop", "status", "ping"},
		})
	}
}

func (h *CommandHandler) handlePing(messageID string, r dispatch.Replier) {
	sendJSON(h.log, r, messageID, proto.Command, map[string]any{
		"status":    "success",
		"command":   "ping",
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}

func (h *CommandHandler) handleStatus(messageID string, r dispatch.Replier) {
	sendJSON(h.log, r, messageID, proto.Command, map[string]any{
		"status":  "success",
		"command": "status",
		"data": map[string]any{
			"server_running":   h.status.Running(),
			"client_connected": h.status.ClientConnected(),
			"uptime":           h.status.Uptime().String(),
		},
	})
}

func (h *CommandHandler) handleStop(messageID string, r dispatch.Replier) {
	h.log.Info("executing stop command, shutting down server")
	sendJSON(h.log, r, messageID, proto.Command, map[string]any{
		"status":  "success",
		"command": "stop",
		"message": "Server shutdown initiated",
	})

	// Request shutdown asynchronously; RequestShutdown must not block
	// or join the message loop's own goroutine (spec.md §9).
	h.sd.RequestShutdown()
}
