package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/algo"
	"github.com/coregx/timetable/dispatch"
	"github.com/coregx/timetable/proto"
)

// RunRecorder observes the terminal outcome of an algorithm run. It
// lets the system facade feed its Prometheus metrics (SPEC_FULL §6)
// without handlers importing system or a metrics library directly.
type RunRecorder interface {
	ObserveRun(result string, duration time.Duration)
}

// AlgorithmHandler implements the "list"/"run"/"stop"/"status"
// Algorithm subcommands (spec.md §4.4, grounded on
// AlgorithmHandler.cpp). Like Command and unlike Debug, its sub-selector
// field is "command", matching the original consistently.
type AlgorithmHandler struct {
	log            *zap.Logger
	scanner        *algo.Scanner
	runner         *algo.Runner
	recorder       RunRecorder
	defaultTimeout int
}

// NewAlgorithmHandler constructs an AlgorithmHandler. defaultTimeout is
// the per-run timeout (in seconds) handed to the Runner for every "run"
// request (spec.md §4.6, wired from system.Config.RunTimeoutSeconds); a
// request cannot override it. 0 defers to the Runner's own built-in
// default.
func NewAlgorithmHandler(scanner *algo.Scanner, runner *algo.Runner, defaultTimeout int, log *zap.Logger) *AlgorithmHandler {
	return &AlgorithmHandler{log: log, scanner: scanner, runner: runner, defaultTimeout: defaultTimeout}
}

// SetRunRecorder wires an optional observer of run outcomes. Nil (the
// default) disables the hook.
func (h *AlgorithmHandler) SetRunRecorder(r RunRecorder) {
	h.recorder = r
}

func (h *AlgorithmHandler) Handle(messageID string, payload []byte, r dispatch.Replier) {
	var req map[string]any
	if err := json.Unmarshal(payload, &req); err != nil {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Invalid JSON format",
			"error_code": CodeInvalidJSON,
		})
		return
	}

	command, ok := req["command"].(string)
	if !ok {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "No 'command' field found in payload",
			"error_code": CodeMissingCommandField,
		})
		return
	}

	switch command {
	case "list":
		h.handleList(messageID, r)
	case "run":
		h.handleRun(messageID, req, r)
	case "stop":
		h.handleStop(messageID, r)
	case "status":
		h.handleStatus(messageID, r)
	default:
		h.reply(messageID, r, map[string]any{
			"status":             "error",
			"message":            "Unknown algorithm command: " + command,
			"error_code":         CodeUnknownAlgorithmCommand,
			"available_commands": []string{"list", "run", "stop", "status"},
		})
	}
}

func (h *AlgorithmHandler) reply(messageID string, r dispatch.Replier, v any) {
	sendJSON(h.log, r, messageID, proto.Algorithm, v)
}

func (h *AlgorithmHandler) handleList(messageID string, r dispatch.Replier) {
	infos := h.scanner.ListAll()
	algorithms := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		entry := map[string]any{
			"name":             info.Name,
			"displayName":      info.DisplayName,
			"version":          info.Version,
			"description":      info.Description,
			"author":           info.Author,
			"type":             info.Type,
			"supportsProgress": info.SupportsProgress,
		}
		if len(info.Parameters) > 0 {
			entry["parameters"] = info.Parameters
		}
		algorithms = append(algorithms, entry)
	}

	h.reply(messageID, r, map[string]any{
		"status":     "success",
		"algorithms": algorithms,
	})
}

func (h *AlgorithmHandler) handleRun(messageID string, req map[string]any, r dispatch.Replier) {
	name, ok := req["name"].(string)
	if !ok || name == "" {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Missing 'name' field",
			"error_code": CodeMissingName,
		})
		return
	}

	data, ok := req["data"].(map[string]any)
	if !ok {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Missing 'data' field",
			"error_code": CodeMissingData,
		})
		return
	}

	config, _ := req["config"].(map[string]any)
	if config == nil {
		config = map[string]any{}
	}

	if h.runner.IsRunning() {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Algorithm is already running",
			"error_code": CodeAlreadyRunning,
		})
		return
	}

	if !h.scanner.Has(name) {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Algorithm not found: " + name,
			"error_code": CodeAlgorithmNotFound,
		})
		return
	}

	if configErrors := h.scanner.ValidateConfig(name, config); len(configErrors) > 0 {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Configuration validation failed",
			"error_code": CodeInvalidConfig,
			"errors":     configErrors,
		})
		return
	}

	path, err := h.scanner.PathOf(name)
	if err != nil {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Algorithm not found: " + name,
			"error_code": CodeAlgorithmNotFound,
		})
		return
	}

	runStart := time.Now()
	progressCb := func(progress float64, status string, raw map[string]any) {
		h.log.Debug("algorithm progress",
			zap.String("messageId", messageID), zap.Float64("progress", progress), zap.String("status", status))
		h.reply(messageID, r, map[string]any{
			"status":   "progress",
			"progress": progress,
			"details":  status,
			"raw":      raw,
		})
	}
	completionCb := func(result map[string]any) {
		if h.recorder != nil {
			h.recorder.ObserveRun(h.runner.GetStatus(), time.Since(runStart))
		}
		h.reply(messageID, r, map[string]any{
			"status":  "completed",
			"message": "Algorithm execution completed",
			"result":  result,
		})
	}

	if err := h.runner.Start(path, data, config, h.defaultTimeout, progressCb, completionCb); err != nil {
		code := CodeStartFailed
		if errors.Is(err, algo.ErrAlreadyRunning) {
			code = CodeAlreadyRunning
		}
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "Failed to start algorithm",
			"error_code": code,
		})
		return
	}

	h.reply(messageID, r, map[string]any{
		"status":    "started",
		"algorithm": name,
		"message":   "Algorithm execution started",
	})
}

func (h *AlgorithmHandler) handleStop(messageID string, r dispatch.Replier) {
	if err := h.runner.Stop(); err != nil {
		h.reply(messageID, r, map[string]any{
			"status":     "error",
			"message":    "No algorithm running",
			"error_code": CodeNotRunning,
		})
		return
	}
	h.reply(messageID, r, map[string]any{
		"status":  "success",
		"message": "Algorithm stopped",
	})
}

func (h *AlgorithmHandler) handleStatus(messageID string, r dispatch.Replier) {
	running := h.runner.IsRunning()
	algorithmStatus := map[string]any{
		"running":  running,
		"progress": h.runner.GetProgress(),
		"status":   h.runner.GetStatus(),
	}
	if !running {
		algorithmStatus["result"] = h.runner.GetResult()
	}

	h.reply(messageID, r, map[string]any{
		"status":           "success",
		"algorithm_status": algorithmStatus,
	})
}
