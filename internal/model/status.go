package model

import "fmt"

// TaskStatus tracks one task through the retry loop.
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusRetrying TaskStatus = "retrying"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
)

// WorkerStatus is the lane-level status carried on progress events.
type WorkerStatus string

const (
	WorkerStatusRunning  WorkerStatus = "running"
	WorkerStatusComplete WorkerStatus = "complete"
	WorkerStatusFailed   WorkerStatus = "failed"
)

var terminalTaskStatuses = map[TaskStatus]bool{
	TaskStatusComplete: true,
	TaskStatusFailed:   true,
}

// Task status transitions: pending → running, running ⇄ retrying until the
// retry budget is spent, then running → complete|failed. A task settles as
// complete even when its last attempt stayed under the threshold; the
// Assembler decides downstream handling from the confidence alone.
var validTaskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskStatusPending: {
		TaskStatusRunning: true,
	},
	TaskStatusRunning: {
		TaskStatusRetrying: true,
		TaskStatusComplete: true,
		TaskStatusFailed:   true,
	},
	TaskStatusRetrying: {
		TaskStatusRunning: true,
	},
}

func IsTaskTerminal(s TaskStatus) bool {
	return terminalTaskStatuses[s]
}

func ValidateTaskTransition(from, to TaskStatus) error {
	if IsTaskTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	allowed, ok := validTaskTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid task transition: %q → %q", from, to)
	}
	return nil
}
