package algo

import "errors"

// Sentinel errors surfaced by the algo package.
var (
	// ErrAlreadyRunning is returned by Runner.Start when a run is already
	// in progress (spec.md §4.6: "at most one active child process").
	ErrAlreadyRunning = errors.New("algo: an algorithm is already running")

	// ErrNotFound is returned by Scanner.PathOf/Get for an unknown name.
	ErrNotFound = errors.New("algo: algorithm not found")

	// ErrNotRunning is returned by Runner.Stop when no run is active.
	ErrNotRunning = errors.New("algo: no algorithm is running")
)
