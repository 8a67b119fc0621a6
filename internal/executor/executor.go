// Package executor provides the task-execution capability: given a typed
// task and a document, produce a result with a self-reported confidence
// score in [0,1]. Executors never fail hard — an unsupported task type or an
// internal panic becomes a confidence-0 outcome so one bad task cannot abort
// a run.
package executor

import (
	"fmt"
	"math"

	"github.com/hmiyata/cascade/internal/model"
)

// Executor executes a single task against the supplied document text.
type Executor interface {
	Name() string
	Execute(task model.Task, documentText string) model.TaskOutcome
}

// HeuristicExecutor is the default Executor: rule-based text processing with
// an injectable confidence perturbation (see noise.go).
type HeuristicExecutor struct {
	name    string
	perturb Perturbation
}

// NewHeuristic creates an executor. A nil perturbation means deterministic
// confidences.
func NewHeuristic(name string, perturb Perturbation) *HeuristicExecutor {
	if perturb == nil {
		perturb = NoNoise
	}
	return &HeuristicExecutor{name: name, perturb: perturb}
}

func (e *HeuristicExecutor) Name() string {
	return e.name
}

// Execute dispatches on the task type. The outcome's confidence has the
// perturbation applied and is rounded to 2 decimals.
func (e *HeuristicExecutor) Execute(task model.Task, documentText string) (outcome model.TaskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = model.TaskOutcome{
				Result:     fmt.Sprintf("executor panic while running %s task: %v", task.Type, r),
				Confidence: 0,
			}
		}
	}()

	var result string
	var confidence float64

	switch task.Type {
	case model.TaskTypeExtract:
		result, confidence = e.extract(documentText)
	case model.TaskTypeSummarize:
		result, confidence = e.summarize(documentText)
	case model.TaskTypeAnalyze:
		result, confidence = e.analyze(documentText)
	case model.TaskTypeValidate:
		result, confidence = e.validate(task, documentText)
	case model.TaskTypeGenerate:
		result, confidence = e.generate(task, documentText)
	case model.TaskTypeAggregate:
		result, confidence = e.aggregate(documentText)
	default:
		return model.TaskOutcome{
			Result:     fmt.Sprintf("unsupported task type: %s", task.Type),
			Confidence: 0,
		}
	}

	confidence = e.perturb(confidence)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.TaskOutcome{
		Result:     result,
		Confidence: round2(confidence),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
