package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAuditLogger_AppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.jsonl")

	logger, err := NewAuditLogger(logPath, 0)
	if err != nil {
		t.Fatalf("NewAuditLogger error: %v", err)
	}
	defer logger.Close()

	if err := logger.Log("run_0000000001_aaaaaaaa", WorkerUpdate{Type: TypeWorkerUpdate, WorkerID: 1, Progress: 50}); err != nil {
		t.Fatalf("Log error: %v", err)
	}
	if err := logger.Log("run_0000000001_aaaaaaaa", Result{Type: TypeResult, OverallConfidence: 80}); err != nil {
		t.Fatalf("Log error: %v", err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("malformed JSONL line: %v", err)
		}
		entries = append(entries, entry)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["event_type"] != "worker_update" {
		t.Errorf("entry 0 event_type = %v, want worker_update", entries[0]["event_type"])
	}
	if entries[1]["event_type"] != "result" {
		t.Errorf("entry 1 event_type = %v, want result", entries[1]["event_type"])
	}
	if entries[0]["run_id"] != "run_0000000001_aaaaaaaa" {
		t.Errorf("entry 0 run_id = %v", entries[0]["run_id"])
	}
}

func TestAuditLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.jsonl")

	// Tiny max size so a handful of entries forces rotation.
	logger, err := NewAuditLogger(logPath, 256)
	if err != nil {
		t.Fatalf("NewAuditLogger error: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 20; i++ {
		if err := logger.Log("run_0000000001_aaaaaaaa", WorkerUpdate{
			Type:            TypeWorkerUpdate,
			WorkerID:        i,
			TaskDescription: "some task description to pad the entry out",
		}); err != nil {
			t.Fatalf("Log error: %v", err)
		}
	}

	archived, err := filepath.Glob(filepath.Join(dir, ArchiveDir, "*"+LogFileExtension))
	if err != nil {
		t.Fatalf("glob archive: %v", err)
	}
	if len(archived) == 0 {
		t.Error("expected at least one archived log file after rotation")
	}

	// Current file still exists and is within bounds.
	stat, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat current log: %v", err)
	}
	if stat.Size() > 256 {
		t.Errorf("current log size %d exceeds max", stat.Size())
	}
}
