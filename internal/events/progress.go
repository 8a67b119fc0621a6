// Package events defines the progress-event stream emitted during an
// orchestration run, plus the pub/sub bus and audit log that observe it.
package events

import (
	"github.com/hmiyata/cascade/internal/model"
)

// Type tags the progress-event variants.
type Type string

const (
	// TypeWorkerUpdate reports lane progress while a run is executing.
	TypeWorkerUpdate Type = "worker_update"
	// TypeResult is the single terminal event carrying the assembled report.
	TypeResult Type = "result"
)

// ProgressEvent is the tagged union streamed to consumers. Events are
// created by the orchestrator, consumed immediately by the transport layer,
// and never mutated after emission.
type ProgressEvent interface {
	EventType() Type
}

// WorkerUpdate describes the state of one worker lane. Confidence and
// Progress are integer percentages for display.
type WorkerUpdate struct {
	Type            Type               `json:"type"`
	WorkerID        int                `json:"worker_id"`
	Status          model.WorkerStatus `json:"status"`
	CurrentTask     int                `json:"current_task"`
	TotalTasks      int                `json:"total_tasks"`
	TaskDescription string             `json:"task_description"`
	Confidence      int                `json:"confidence"`
	Progress        int                `json:"progress"`
}

func (WorkerUpdate) EventType() Type { return TypeWorkerUpdate }

// Result closes the stream: exactly one per completed run. A cancelled run
// emits no Result, which is how callers detect incompleteness.
type Result struct {
	Type              Type                  `json:"type"`
	Assembled         model.AssembledOutput `json:"assembled"`
	OverallConfidence int                   `json:"overall_confidence"`
	TotalTasks        int                   `json:"total_tasks"`
	CompletedTasks    int                   `json:"completed_tasks"`
	Warnings          int                   `json:"warnings"`
}

func (Result) EventType() Type { return TypeResult }
