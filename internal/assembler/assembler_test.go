package assembler

import (
	"strings"
	"testing"

	"github.com/hmiyata/cascade/internal/model"
)

func TestAssemble_Empty(t *testing.T) {
	out := New(0.6).Assemble(map[string]model.TaskOutcome{})

	if len(out.AssembledOutput) != 0 {
		t.Errorf("assembled_output has %d entries, want 0", len(out.AssembledOutput))
	}
	if len(out.FailedTasks) != 0 {
		t.Errorf("failed_tasks has %d entries, want 0", len(out.FailedTasks))
	}
	if out.TotalTasks != 0 || out.SuccessfulTasks != 0 {
		t.Errorf("counts = %d/%d, want 0/0", out.SuccessfulTasks, out.TotalTasks)
	}
}

func TestAssemble_FlagsLowConfidence(t *testing.T) {
	outcomes := map[string]model.TaskOutcome{
		"a": {Result: "solid result", Confidence: 0.9},
		"b": {Result: "shaky result", Confidence: 0.3},
		"c": {Result: "hopeless result", Confidence: 0.0},
	}

	out := New(0.6).Assemble(outcomes)

	if out.TotalTasks != 3 || out.SuccessfulTasks != 1 {
		t.Errorf("counts = %d/%d, want 1/3", out.SuccessfulTasks, out.TotalTasks)
	}
	if len(out.FailedTasks) != 2 {
		t.Fatalf("failed_tasks = %v, want 2 entries", out.FailedTasks)
	}
	if out.FailedTasks[0] != "b" || out.FailedTasks[1] != "c" {
		t.Errorf("failed_tasks = %v, want [b c]", out.FailedTasks)
	}

	if out.AssembledOutput["a"] != "solid result" {
		t.Errorf("passing task rewritten: %q", out.AssembledOutput["a"])
	}
	for id, wantPct := range map[string]string{"b": "30%", "c": "0%"} {
		entry := out.AssembledOutput[id]
		if !strings.Contains(entry, "LOW CONFIDENCE") {
			t.Errorf("task %s entry %q missing marker", id, entry)
		}
		if !strings.Contains(entry, wantPct) {
			t.Errorf("task %s entry %q missing percentage %s", id, entry, wantPct)
		}
		if !strings.Contains(entry, outcomes[id].Result) {
			t.Errorf("task %s entry %q does not preserve raw result", id, entry)
		}
	}
}

func TestAssemble_ThresholdTieIsSuccess(t *testing.T) {
	out := New(0.6).Assemble(map[string]model.TaskOutcome{
		"a": {Result: "exactly at threshold", Confidence: 0.6},
	})

	if len(out.FailedTasks) != 0 {
		t.Errorf("tie classified as failure: %v", out.FailedTasks)
	}
	if out.AssembledOutput["a"] != "exactly at threshold" {
		t.Errorf("tie result rewritten: %q", out.AssembledOutput["a"])
	}
	if out.SuccessfulTasks != 1 {
		t.Errorf("successful_tasks = %d, want 1", out.SuccessfulTasks)
	}
}

func TestNew_InvalidThresholdDefaults(t *testing.T) {
	for _, threshold := range []float64{0, -0.5, 1.5} {
		a := New(threshold)
		if a.threshold != defaultConfidenceThreshold {
			t.Errorf("New(%g).threshold = %g, want %g", threshold, a.threshold, defaultConfidenceThreshold)
		}
	}
}
