package algo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Scanner discovers algorithms under a directory: one subdirectory per
// algorithm, each containing an "algorithm" executable and, optionally,
// an info.json describing it (spec.md §4.5).
type Scanner struct {
	log *zap.Logger
	dir string

	mu     sync.RWMutex
	byName map[string]Info
}

// NewScanner constructs a Scanner rooted at dir and performs an initial
// scan. Scan errors are logged, not returned — an empty or missing
// directory simply yields zero algorithms, matching the original's
// tolerant behavior.
func NewScanner(dir string, log *zap.Logger) *Scanner {
	s := &Scanner{log: log, dir: dir, byName: make(map[string]Info)}
	s.Rescan()
	return s
}

// Rescan re-reads the algorithms directory from disk, replacing the
// previously discovered set.
func (s *Scanner) Rescan() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("algorithm directory does not exist or cannot be read",
			zap.String("dir", s.dir), zap.Error(err))
		s.mu.Lock()
		s.byName = make(map[string]Info)
		s.mu.Unlock()
		return
	}

	found := make(map[string]Info, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		algoDir := filepath.Join(s.dir, entry.Name())
		if info, ok := loadAlgorithmDir(algoDir, entry.Name()); ok {
			found[info.Name] = info
			s.log.Info("loaded algorithm", zap.String("name", info.Name), zap.String("displayName", info.DisplayName))
		}
	}

	s.mu.Lock()
	s.byName = found
	s.mu.Unlock()
	s.log.Info("algorithm scan complete", zap.Int("count", len(found)))
}

// loadAlgorithmDir loads one algorithm directory, preferring info.json
// when present and valid, falling back to a minimal Info derived from
// the directory name (spec.md §4.5, grounded on AlgorithmScanner.cpp's
// loadAlgorithmFromDirectory).
func loadAlgorithmDir(algoDir, dirName string) (Info, bool) {
	if fi, err := os.Stat(filepath.Join(algoDir, executableName)); err != nil || !fi.Mode().IsRegular() {
		return Info{}, false
	}

	infoPath := filepath.Join(algoDir, "info.json")
	if _, err := os.Stat(infoPath); err == nil {
		info := infoFromFile(infoPath)
		if info.Valid() {
			return info, true
		}
	}

	info := Info{
		Name:        dirName,
		DisplayName: dirName,
		Description: "Algorithm: " + dirName,
		Path:        algoDir,
		Version:     "1.0.0",
	}
	if info.Valid() {
		return info, true
	}
	return Info{}, false
}

// ListAll returns every discovered algorithm.
func (s *Scanner) ListAll() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.byName))
	for _, info := range s.byName {
		out = append(out, info)
	}
	return out
}

// Names returns the names of every discovered algorithm.
func (s *Scanner) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	return out
}

// Has reports whether name was discovered.
func (s *Scanner) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byName[name]
	return ok
}

// Get returns the Info for name.
func (s *Scanner) Get(name string) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.byName[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return info, nil
}

// PathOf returns the directory holding name's executable.
func (s *Scanner) PathOf(name string) (string, error) {
	info, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

// ValidateConfig validates config against name's declared parameter
// schema, returning a list of human-readable error strings (empty if
// config is valid or name declares no schema).
func (s *Scanner) ValidateConfig(name string, config map[string]any) []string {
	info, err := s.Get(name)
	if err != nil {
		return []string{err.Error()}
	}
	return ValidateParameters(info.Parameters, config)
}
