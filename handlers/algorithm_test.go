package handlers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/algo"
)

func newTestAlgoHandler(t *testing.T) (*AlgorithmHandler, string) {
	t.Helper()
	algosDir := t.TempDir()
	simpleDir := filepath.Join(algosDir, "simple_test")
	if err := os.Mkdir(simpleDir, 0o755); err != nil {
		t.Fatal(err)
	}
	script := `#!/bin/sh
cat > "$2" <<'EOF'
{"status":"success","schedule":{"events":[]}}
EOF
exit 0
`
	if err := os.WriteFile(filepath.Join(simpleDir, "algorithm"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	infoJSON := `{"name":"simple_test","displayName":"Simple Test","parameters":{"delay":{"type":"int","min":0}}}`
	if err := os.WriteFile(filepath.Join(simpleDir, "info.json"), []byte(infoJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	scanner := algo.NewScanner(algosDir, zap.NewNop())
	runner := algo.NewRunner(t.TempDir(), zap.NewNop())
	return NewAlgorithmHandler(scanner, runner, 0, zap.NewNop()), algosDir
}

func TestAlgorithmHandlerList(t *testing.T) {
	h, _ := newTestAlgoHandler(t)
	r := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"list"}`), r)

	got := r.decoded[0]
	algorithms, ok := got["algorithms"].([]any)
	if !ok || len(algorithms) != 1 {
		t.Fatalf("expected exactly one algorithm, got %+v", got)
	}
	entry := algorithms[0].(map[string]any)
	if entry["name"] != "simple_test" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestAlgorithmHandlerRunNotFound(t *testing.T) {
	h, _ := newTestAlgoHandler(t)
	r := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"run","name":"ghost","data":{}}`), r)

	if r.decoded[0]["error_code"] != CodeAlgorithmNotFound {
		t.Fatalf("unexpected reply: %+v", r.decoded[0])
	}
}

func TestAlgorithmHandlerRunMissingFields(t *testing.T) {
	h, _ := newTestAlgoHandler(t)

	r1 := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"run"}`), r1)
	if r1.decoded[0]["error_code"] != CodeMissingName {
		t.Fatalf("expected MISSING_NAME, got %+v", r1.decoded[0])
	}

	r2 := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"run","name":"simple_test"}`), r2)
	if r2.decoded[0]["error_code"] != CodeMissingData {
		t.Fatalf("expected MISSING_DATA, got %+v", r2.decoded[0])
	}
}

func TestAlgorithmHandlerRunInvalidConfig(t *testing.T) {
	h, _ := newTestAlgoHandler(t)
	r := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"run","name":"simple_test","data":{},"config":{"delay":-1}}`), r)

	if r.decoded[0]["error_code"] != CodeInvalidConfig {
		t.Fatalf("unexpected reply: %+v", r.decoded[0])
	}
}

func TestAlgorithmHandlerRunSuccessThenCompletion(t *testing.T) {
	h, _ := newTestAlgoHandler(t)
	r := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"run","name":"simple_test","data":{"x":1}}`), r)

	if len(r.decoded) != 1 || r.decoded[0]["status"] != "started" {
		t.Fatalf("expected an immediate started reply, got %+v", r.decoded)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(r.decoded) >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if len(r.decoded) < 2 {
		t.Fatal("expected a second, completion reply correlated to the same messageId")
	}
	completion := r.decoded[1]
	if completion["status"] != "completed" {
		t.Fatalf("unexpected completion reply: %+v", completion)
	}
}

func TestAlgorithmHandlerRunRejectsWhileAlreadyRunning(t *testing.T) {
	h, algosDir := newTestAlgoHandler(t)
	slowDir := filepath.Join(algosDir, "slow")
	if err := os.Mkdir(slowDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(slowDir, "algorithm"), []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	h.scanner.Rescan()

	r1 := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"run","name":"slow","data":{}}`), r1)
	if r1.decoded[0]["status"] != "started" {
		t.Fatalf("expected first run to start, got %+v", r1.decoded[0])
	}
	defer h.runner.Stop()

	r2 := newFakeReplier()
	h.Handle("m2", []byte(`{"command":"run","name":"slow","data":{}}`), r2)
	if r2.decoded[0]["error_code"] != CodeAlreadyRunning {
		t.Fatalf("expected ALREADY_RUNNING, got %+v", r2.decoded[0])
	}
}

func TestAlgorithmHandlerStatusAndStop(t *testing.T) {
	h, _ := newTestAlgoHandler(t)

	r := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"status"}`), r)
	status, ok := r.decoded[0]["algorithm_status"].(map[string]any)
	if !ok || status["running"] != false {
		t.Fatalf("unexpected status reply: %+v", r.decoded[0])
	}

	r2 := newFakeReplier()
	h.Handle("m2", []byte(`{"command":"stop"}`), r2)
	if r2.decoded[0]["error_code"] != CodeNotRunning {
		t.Fatalf("expected NOT_RUNNING when nothing is active, got %+v", r2.decoded[0])
	}
}

func TestAlgorithmHandlerUnknownCommand(t *testing.T) {
	h, _ := newTestAlgoHandler(t)
	r := newFakeReplier()
	h.Handle("m1", []byte(`{"command":"nope"}`), r)

	if r.decoded[0]["error_code"] != CodeUnknownAlgorithmCommand {
		t.Fatalf("unexpected reply: %+v", r.decoded[0])
	}
}
