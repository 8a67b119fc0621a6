// Package orchestrator drives a Plan to completion: it schedules tasks per
// worker lane, applies the bounded-retry policy against the confidence
// threshold, and emits the ordered progress-event stream ending in a single
// Result event.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmiyata/cascade/internal/assembler"
	"github.com/hmiyata/cascade/internal/events"
	"github.com/hmiyata/cascade/internal/executor"
	"github.com/hmiyata/cascade/internal/logging"
	"github.com/hmiyata/cascade/internal/model"
)

// ExecutorFactory creates the executor for one worker lane. Allows tests to
// inject deterministic executors.
type ExecutorFactory func(workerID int) executor.Executor

// Orchestrator executes Plans. Safe for concurrent use; each Run call
// re-executes everything from scratch and owns its intermediate state.
type Orchestrator struct {
	confidenceThreshold float64
	attemptTimeout      time.Duration
	// assemblerThreshold, when non-zero, decouples assembly flagging from
	// the retry threshold. Zero follows the run's effective threshold, which
	// is the reference behavior.
	assemblerThreshold float64

	executorFactory ExecutorFactory
	bus             *events.Bus
	audit           *events.AuditLogger
	logger          *logging.Logger
}

// New creates an Orchestrator from config.
func New(cfg model.OrchestratorConfig, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	temperature := cfg.NoiseTemperature

	return &Orchestrator{
		confidenceThreshold: threshold,
		attemptTimeout:      time.Duration(cfg.AttemptTimeoutSec) * time.Second,
		logger:              logger,
		executorFactory: func(workerID int) executor.Executor {
			return executor.NewHeuristic(
				fmt.Sprintf("worker-%d", workerID),
				executor.UniformNoise(temperature, nil),
			)
		},
	}
}

// SetExecutorFactory overrides how lane executors are created.
func (o *Orchestrator) SetExecutorFactory(f ExecutorFactory) {
	o.executorFactory = f
}

// SetEventBus mirrors every emitted progress event onto the bus for
// out-of-band consumers (dashboards, audit hooks).
func (o *Orchestrator) SetEventBus(bus *events.Bus) {
	o.bus = bus
}

// SetAuditLogger records every emitted progress event to the audit log.
func (o *Orchestrator) SetAuditLogger(audit *events.AuditLogger) {
	o.audit = audit
}

// SetAssemblerThreshold fixes the assembly flagging threshold independently
// of the retry threshold.
func (o *Orchestrator) SetAssemblerThreshold(threshold float64) {
	o.assemblerThreshold = threshold
}

// Run executes the plan against the document text, streaming progress events
// on the returned channel. The channel is closed after the terminal Result
// event, or without one if ctx is cancelled mid-run. The only error return
// is a malformed plan, which is a contract violation by the caller.
func (o *Orchestrator) Run(ctx context.Context, plan model.Plan, documentText string) (<-chan events.ProgressEvent, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("malformed plan: %w", err)
	}

	runID, err := model.GenerateID(model.IDTypeRun)
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	threshold := plan.ExecutionPolicy.ConfidenceThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = o.confidenceThreshold
	}

	run := &runState{
		orch:       o,
		runID:      runID,
		plan:       plan,
		document:   documentText,
		threshold:  threshold,
		maxRetries: plan.ExecutionPolicy.MaxRetries,
		outcomes:   make(map[string]model.TaskOutcome, len(plan.Tasks)),
		out:        make(chan events.ProgressEvent),
	}

	o.logger.Infof("run %s started: intent=%q tasks=%d parallel=%v threshold=%.2f",
		runID, plan.Intent, len(plan.Tasks), plan.ExecutionPolicy.Parallel, threshold)

	go func() {
		defer close(run.out)
		run.execute(ctx)
	}()

	return run.out, nil
}

// runState owns all intermediate per-task outcomes for the duration of one
// run; they are discarded once the final event is produced.
type runState struct {
	orch       *Orchestrator
	runID      string
	plan       model.Plan
	document   string
	threshold  float64
	maxRetries int

	mu       sync.Mutex
	outcomes map[string]model.TaskOutcome

	out chan events.ProgressEvent
}

func (r *runState) execute(ctx context.Context) {
	lanes := r.plan.WorkerLanes()

	if r.plan.ExecutionPolicy.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for workerID, tasks := range lanes {
			g.Go(func() error {
				return r.runLane(gctx, workerID, tasks)
			})
		}
		if err := g.Wait(); err != nil {
			r.orch.logger.Warnf("run %s cancelled: %v", r.runID, err)
			return
		}
	} else {
		workerIDs := make([]int, 0, len(lanes))
		for workerID := range lanes {
			workerIDs = append(workerIDs, workerID)
		}
		sort.Ints(workerIDs)
		for _, workerID := range workerIDs {
			if err := r.runLane(ctx, workerID, lanes[workerID]); err != nil {
				r.orch.logger.Warnf("run %s cancelled: %v", r.runID, err)
				return
			}
		}
	}

	r.finish(ctx)
}

// runLane executes one worker's tasks strictly sequentially. The returned
// error is always a context error; task failures never abort a lane.
func (r *runState) runLane(ctx context.Context, workerID int, tasks []model.Task) error {
	exec := r.orch.executorFactory(workerID)
	total := len(tasks)

	if !r.emit(ctx, events.WorkerUpdate{
		Type:            events.TypeWorkerUpdate,
		WorkerID:        workerID,
		Status:          model.WorkerStatusRunning,
		CurrentTask:     0,
		TotalTasks:      total,
		TaskDescription: "Starting...",
		Confidence:      0,
		Progress:        0,
	}) {
		return ctx.Err()
	}

	confidences := make([]float64, 0, total)
	for idx, task := range tasks {
		outcome, err := r.runTask(ctx, exec, workerID, task, idx, total)
		if err != nil {
			return err
		}

		r.mu.Lock()
		r.outcomes[task.ID] = outcome
		r.mu.Unlock()
		confidences = append(confidences, outcome.Confidence)

		if !r.emit(ctx, events.WorkerUpdate{
			Type:            events.TypeWorkerUpdate,
			WorkerID:        workerID,
			Status:          model.WorkerStatusRunning,
			CurrentTask:     idx + 1,
			TotalTasks:      total,
			TaskDescription: task.Description,
			Confidence:      pct(outcome.Confidence),
			Progress:        laneProgress(idx, total),
		}) {
			return ctx.Err()
		}
	}

	avg := mean(confidences)
	laneStatus := model.WorkerStatusComplete
	description := "Complete"
	if avg < r.threshold {
		laneStatus = model.WorkerStatusFailed
		description = "Failed - low confidence"
	}
	r.orch.logger.Debugf("run %s lane %d finished: avg_confidence=%.2f status=%s",
		r.runID, workerID, avg, laneStatus)

	if !r.emit(ctx, events.WorkerUpdate{
		Type:            events.TypeWorkerUpdate,
		WorkerID:        workerID,
		Status:          laneStatus,
		CurrentTask:     total,
		TotalTasks:      total,
		TaskDescription: description,
		Confidence:      pct(avg),
		Progress:        100,
	}) {
		return ctx.Err()
	}
	return nil
}

// runTask drives one task through the retry state machine:
// Pending → Running ⇄ Retrying, settling as Complete or Failed once the
// retry budget is spent. The last attempt's outcome is kept either way.
func (r *runState) runTask(ctx context.Context, exec executor.Executor, workerID int, task model.Task, idx, total int) (model.TaskOutcome, error) {
	status := model.TaskStatusPending
	progress := laneProgress(idx, total)

	var last model.TaskOutcome
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.TaskOutcome{}, err
		}

		if !r.emit(ctx, events.WorkerUpdate{
			Type:            events.TypeWorkerUpdate,
			WorkerID:        workerID,
			Status:          model.WorkerStatusRunning,
			CurrentTask:     idx + 1,
			TotalTasks:      total,
			TaskDescription: task.Description,
			Confidence:      pct(last.Confidence),
			Progress:        progress,
		}) {
			return model.TaskOutcome{}, ctx.Err()
		}

		r.transition(task.ID, &status, model.TaskStatusRunning)
		last = r.attempt(exec, task)

		// Retries gate on the policy-level threshold only; the task's own
		// threshold is assigned by the planner but deliberately not consulted
		// here (see DESIGN.md).
		if last.Confidence >= r.threshold {
			break
		}

		if attempt < r.maxRetries {
			r.transition(task.ID, &status, model.TaskStatusRetrying)
			r.orch.logger.Debugf("run %s task %s attempt %d below threshold: confidence=%.2f",
				r.runID, task.ID, attempt+1, last.Confidence)
			if !r.emit(ctx, events.WorkerUpdate{
				Type:            events.TypeWorkerUpdate,
				WorkerID:        workerID,
				Status:          model.WorkerStatusRunning,
				CurrentTask:     idx + 1,
				TotalTasks:      total,
				TaskDescription: fmt.Sprintf("Retrying (%d/%d): %s", attempt+1, r.maxRetries, task.Description),
				Confidence:      pct(last.Confidence),
				Progress:        progress,
			}) {
				return model.TaskOutcome{}, ctx.Err()
			}
		}
	}

	final := model.TaskStatusComplete
	if last.Confidence < r.threshold {
		final = model.TaskStatusFailed
	}
	r.transition(task.ID, &status, final)
	return last, nil
}

// attempt invokes the executor once, bounded by the per-attempt timeout when
// one is configured. A timeout is a normal confidence-0 outcome consuming
// one retry slot.
func (r *runState) attempt(exec executor.Executor, task model.Task) model.TaskOutcome {
	if r.orch.attemptTimeout <= 0 {
		return exec.Execute(task, r.document)
	}

	done := make(chan model.TaskOutcome, 1)
	go func() {
		done <- exec.Execute(task, r.document)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-time.After(r.orch.attemptTimeout):
		return model.TaskOutcome{
			Result:     fmt.Sprintf("attempt timed out after %s", r.orch.attemptTimeout),
			Confidence: 0,
		}
	}
}

// finish assembles the accumulated outcomes and emits the terminal Result.
func (r *runState) finish(ctx context.Context) {
	assemblerThreshold := r.orch.assemblerThreshold
	if assemblerThreshold <= 0 || assemblerThreshold > 1 {
		assemblerThreshold = r.threshold
	}
	assembled := assembler.New(assemblerThreshold).Assemble(r.outcomes)

	confidences := make([]float64, 0, len(r.outcomes))
	for _, outcome := range r.outcomes {
		confidences = append(confidences, outcome.Confidence)
	}
	overall := math.Round(mean(confidences)*100) / 100

	warnings := len(assembled.FailedTasks)
	r.orch.logger.Infof("run %s finished: overall_confidence=%.2f warnings=%d",
		r.runID, overall, warnings)

	r.emit(ctx, events.Result{
		Type:              events.TypeResult,
		Assembled:         assembled,
		OverallConfidence: pct(overall),
		TotalTasks:        len(r.plan.Tasks),
		CompletedTasks:    len(r.plan.Tasks) - warnings,
		Warnings:          warnings,
	})
}

// emit delivers one event to the stream consumer, mirroring it to the bus
// and audit log. Returns false when the context is cancelled before the
// consumer accepts the event.
func (r *runState) emit(ctx context.Context, event events.ProgressEvent) bool {
	select {
	case r.out <- event:
	case <-ctx.Done():
		return false
	}
	if r.orch.bus != nil {
		r.orch.bus.Publish(event)
	}
	if r.orch.audit != nil {
		if err := r.orch.audit.Log(r.runID, event); err != nil {
			r.orch.logger.Warnf("run %s audit log write failed: %v", r.runID, err)
		}
	}
	return true
}

// transition advances a task's status. An invalid transition is a bug in
// the scheduling loop, not a runtime condition, so it panics.
func (r *runState) transition(taskID string, status *model.TaskStatus, to model.TaskStatus) {
	if err := model.ValidateTaskTransition(*status, to); err != nil {
		panic(fmt.Sprintf("task %s: %v", taskID, err))
	}
	*status = to
}

func laneProgress(idx, total int) int {
	return int(math.Round(100 * float64(idx+1) / float64(total)))
}

func pct(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
