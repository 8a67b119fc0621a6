package model

import "fmt"

// TaskType classifies the work a single task performs. Executors dispatch on
// it; unknown types are rejected at execution time, not at planning time.
type TaskType string

const (
	TaskTypeExtract   TaskType = "extract"
	TaskTypeSummarize TaskType = "summarize"
	TaskTypeAnalyze   TaskType = "analyze"
	TaskTypeValidate  TaskType = "validate"
	TaskTypeGenerate  TaskType = "generate"
	TaskTypeAggregate TaskType = "aggregate"
)

// TruthMode selects how a task's output is judged: grounded in the provided
// source material, or drawn from general knowledge.
type TruthMode string

const (
	TruthModeSourceOfTruth  TruthMode = "source_of_truth"
	TruthModeModelKnowledge TruthMode = "model_knowledge"
)

// Task is one unit of work inside a Plan. Worker is a 1-based lane number;
// tasks sharing a lane run strictly in order.
type Task struct {
	ID                  string    `json:"id" yaml:"id"`
	Type                TaskType  `json:"type" yaml:"type"`
	Description         string    `json:"description" yaml:"description"`
	Worker              int       `json:"worker" yaml:"worker"`
	TruthMode           TruthMode `json:"truth_mode" yaml:"truth_mode"`
	ConfidenceThreshold float64   `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// ExecutionPolicy is the plan-wide retry and scheduling contract. The
// orchestrator's retry loop gates on this threshold, not the per-task one.
type ExecutionPolicy struct {
	MaxRetries          int     `json:"max_retries" yaml:"max_retries"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	Parallel            bool    `json:"parallel" yaml:"parallel"`
}

// Plan is a fully specified execution request: the original intent, the task
// breakdown, and the policy governing retries and parallelism.
type Plan struct {
	Intent          string          `json:"intent" yaml:"intent"`
	Tasks           []Task          `json:"tasks" yaml:"tasks"`
	ExecutionPolicy ExecutionPolicy `json:"execution_policy" yaml:"execution_policy"`
}

// Validate checks structural soundness before execution. Task ids only need
// to be non-empty and unique; the id wire format is not enforced here so
// hand-written plans stay usable.
func (p Plan) Validate() error {
	if len(p.Tasks) == 0 {
		return fmt.Errorf("plan has no tasks")
	}
	if p.ExecutionPolicy.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", p.ExecutionPolicy.MaxRetries)
	}
	if t := p.ExecutionPolicy.ConfidenceThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("policy confidence_threshold must be in (0, 1], got %v", t)
	}

	seen := make(map[string]bool, len(p.Tasks))
	for i, task := range p.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task %d has an empty id", i)
		}
		if seen[task.ID] {
			return fmt.Errorf("duplicate task id %q", task.ID)
		}
		seen[task.ID] = true
		if task.Worker < 1 {
			return fmt.Errorf("task %q has invalid worker %d", task.ID, task.Worker)
		}
		if t := task.ConfidenceThreshold; t <= 0 || t > 1 {
			return fmt.Errorf("task %q confidence_threshold must be in (0, 1], got %v", task.ID, t)
		}
	}
	return nil
}

// WorkerLanes groups tasks by worker, preserving plan order within each lane.
func (p Plan) WorkerLanes() map[int][]Task {
	lanes := make(map[int][]Task)
	for _, task := range p.Tasks {
		lanes[task.Worker] = append(lanes[task.Worker], task)
	}
	return lanes
}
