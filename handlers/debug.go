package handlers

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/dispatch"
	"github.com/coregx/timetable/proto"
)

// DebugHandler implements the "print_payload"/"uptime"/"server_info"
// Debug subcommands (spec.md §4.4, grounded on DebugHandler.cpp). The
// sub-selector field is "debug" — see SPEC_FULL.md §9 for why that
// field name was chosen over "command".
type DebugHandler struct {
	log    *zap.Logger
	status ServerStatus
}

// NewDebugHandler constructs a DebugHandler.
func NewDebugHandler(status ServerStatus, log *zap.Logger) *DebugHandler {
	return &DebugHandler{log: log, status: status}
}

func (h *DebugHandler) Handle(messageID string, payload []byte, r dispatch.Replier) {
	var req map[string]any
	if err := json.Unmarshal(payload, &req); err != nil {
		sendJSON(h.log, r, messageID, proto.Debug, map[string]any{
			"status":     "error",
			"message":    "Invalid JSON format",
			"error_code": CodeInvalidJSON,
		})
		return
	}

	debugCmd, ok := req["debug"].(string)
	if !ok {
		sendJSON(h.log, r, messageID, proto.Debug, map[string]any{
			"status":     "error",
			"message":    "No 'debug' field found in payload",
			"error_code": CodeMissingDebugField,
		})
		return
	}

	switch debugCmd {
	case "print_payload":
		h.handlePrintPayload(messageID, req, r)
	case "uptime":
		h.handleUptime(messageID, r)
	case "server_info":
		h.handleServerInfo(messageID, r)
	default:
		sendJSON(h.log, r, messageID, proto.Debug, map[string]any{
			"status":             "error",
			"message":            "Unknown debug command: " + debugCmd,
			"error_code":         CodeUnknownDebugCommand,
			"available_commands": []string{"print_payload", "uptime", "server_info"},
		})
	}
}

func (h *DebugHandler) handlePrintPayload(messageID string, req map[string]any, r dispatch.Replier) {
	h.log.Info("debug print_payload", zap.String("messageId", messageID), zap.Any("payload", req))
	sendJSON(h.log, r, messageID, proto.Debug, map[string]any{
		"status":    "success",
		"debug":     "print_payload",
		"message":   "Payload printed to server console",
		"timestamp": time.Now().Unix(),
	})
}

func (h *DebugHandler) handleUptime(messageID string, r dispatch.Replier) {
	h.log.Info("debug uptime", zap.String("messageId", messageID), zap.Duration("uptime", h.status.Uptime()))
	sendJSON(h.log, r, messageID, proto.Debug, map[string]any{
		"status":            "success",
		"debug":             "uptime",
		"message":           "Uptime info printed to server console",
		"uptime_seconds":    h.status.Uptime().Seconds(),
		"current_timestamp": time.Now().Unix(),
	})
}

func (h *DebugHandler) handleServerInfo(messageID string, r dispatch.Replier) {
	sendJSON(h.log, r, messageID, proto.Debug, map[string]any{
		"status": "success",
		"debug":  "server_info",
		"data": map[string]any{
			"server_running":   h.status.Running(),
			"client_connected": h.status.ClientConnected(),
			"timestamp":        time.Now().Unix(),
		},
	})
}
