// Package algo discovers bundled algorithm executables, validates their
// run configurations against a declared parameter schema, and runs one
// of them at a time as a supervised child process (spec.md §4.5/§4.6).
package algo

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// executableName is the filename every algorithm directory must contain
// to be considered a runnable algorithm (spec.md §4.5).
const executableName = "algorithm"

// ParamSpec describes one entry of an algorithm's declared parameter
// schema, as found under "parameters" in info.json.
type ParamSpec struct {
	Type string   `json:"type"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// Info describes one discovered algorithm: its identity, metadata, and
// parameter schema.
type Info struct {
	Name             string               `json:"name"`
	DisplayName      string               `json:"displayName"`
	Path             string               `json:"-"`
	Version          string               `json:"version"`
	Description      string               `json:"description"`
	Author           string               `json:"author"`
	Type             string               `json:"type"`
	SupportsProgress bool                 `json:"supportsProgress"`
	Parameters       map[string]ParamSpec `json:"parameters,omitempty"`
}

// infoFromFile parses infoPath (an info.json) into an Info, stamping Path
// to the containing directory. A missing or malformed file yields a zero
// Info rather than an error — the caller falls back to a minimal Info
// derived from the directory name, matching the original scanner.
func infoFromFile(infoPath string) Info {
	var info Info

	data, err := os.ReadFile(infoPath)
	if err != nil {
		return info
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}
	}
	info.Path = filepath.Dir(infoPath)
	return info
}

// Valid reports whether info is usable: it has a name, a display name,
// a path, and that path contains an "algorithm" executable (spec.md
// §4.5).
func (info Info) Valid() bool {
	if info.Name == "" || info.DisplayName == "" || info.Path == "" {
		return false
	}
	fi, err := os.Stat(filepath.Join(info.Path, executableName))
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}
