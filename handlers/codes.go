// Package handlers implements the four message handlers dispatched by
// MessageType: Command, Debug, Data, and Algorithm (spec.md §4.4).
package handlers

// Error codes returned in the error_code field of failure replies,
// named after the original implementation's literal strings so wire
// compatibility with the original's clients is preserved.
const (
	CodeMissingCommandField = "MISSING_COMMAND_FIELD"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeUnknownCommand      = "UNKNOWN_COMMAND"

	CodeMissingDebugField   = "MISSING_DEBUG_FIELD"
	CodeUnknownDebugCommand = "UNKNOWN_DEBUG_COMMAND"

	CodeUnknownAlgorithmCommand = "UNKNOWN_ALGORITHM_COMMAND"
	CodeMissingName             = "MISSING_NAME"
	CodeMissingData             = "MISSING_DATA"
	CodeAlreadyRunning          = "ALREADY_RUNNING"
	CodeAlgorithmNotFound       = "ALGORITHM_NOT_FOUND"
	CodeInvalidConfig           = "INVALID_CONFIG"
	CodeNotRunning              = "NOT_RUNNING"
	CodeStartFailed             = "START_FAILED"
)
