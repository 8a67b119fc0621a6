// Package assembler folds per-task outcomes into the final report,
// preserving low-confidence work instead of hiding it.
package assembler

import (
	"fmt"
	"math"
	"sort"

	"github.com/hmiyata/cascade/internal/model"
)

const defaultConfidenceThreshold = 0.6

// Assembler combines fragmented task outcomes. Its threshold is independent
// of the orchestrator's retry threshold: retries decide how hard the engine
// tries, assembly decides how the result is presented.
type Assembler struct {
	threshold float64
}

func New(confidenceThreshold float64) *Assembler {
	if confidenceThreshold <= 0 || confidenceThreshold > 1 {
		confidenceThreshold = defaultConfidenceThreshold
	}
	return &Assembler{threshold: confidenceThreshold}
}

// Assemble is pure and total: it never fails, and an empty outcome map
// yields an empty report. An outcome at exactly the threshold counts as
// successful.
func (a *Assembler) Assemble(outcomes map[string]model.TaskOutcome) model.AssembledOutput {
	assembled := make(map[string]string, len(outcomes))
	failed := make([]string, 0)

	for taskID, outcome := range outcomes {
		if outcome.Confidence < a.threshold {
			assembled[taskID] = lowConfidenceMarker(outcome)
			failed = append(failed, taskID)
		} else {
			assembled[taskID] = outcome.Result
		}
	}
	sort.Strings(failed)

	return model.AssembledOutput{
		AssembledOutput: assembled,
		FailedTasks:     failed,
		TotalTasks:      len(outcomes),
		SuccessfulTasks: len(outcomes) - len(failed),
	}
}

// lowConfidenceMarker keeps the raw result visible for diagnosis alongside
// the flag.
func lowConfidenceMarker(outcome model.TaskOutcome) string {
	pct := int(math.Round(outcome.Confidence * 100))
	return fmt.Sprintf("LOW CONFIDENCE (%d%%) - requires retry or user input: %s", pct, outcome.Result)
}
