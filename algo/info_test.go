package algo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInfoValidRequiresExecutable(t *testing.T) {
	dir := t.TempDir()
	info := Info{Name: "x", DisplayName: "X", Path: dir}
	if info.Valid() {
		t.Fatal("Info without an executable should be invalid")
	}

	if err := os.WriteFile(filepath.Join(dir, "algorithm"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !info.Valid() {
		t.Fatal("Info with an executable present should be valid")
	}
}

func TestInfoValidRequiresNameAndDisplayName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "algorithm"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if (Info{DisplayName: "X", Path: dir}).Valid() {
		t.Fatal("Info without a name should be invalid")
	}
	if (Info{Name: "x", Path: dir}).Valid() {
		t.Fatal("Info without a display name should be invalid")
	}
}
