// Package planner decomposes a free-text user intent into a typed,
// worker-assigned Plan. Planning is pure: no I/O, no side effects, and
// deterministic for identical inputs except for generated task ids.
package planner

import (
	"fmt"
	"strings"

	"github.com/hmiyata/cascade/internal/model"
)

// maxWorkerLanes caps parallel fan-out regardless of task count.
const maxWorkerLanes = 5

const (
	defaultMaxRetries = 2

	// Global policy threshold. Tasks additionally carry their own threshold
	// (thresholdSourceOfTruth / thresholdModelKnowledge); the orchestrator's
	// retry loop gates on the policy-level value only.
	defaultConfidenceThreshold = 0.6

	thresholdSourceOfTruth  = 0.7
	thresholdModelKnowledge = 0.6
)

// taskTemplate is one step of a keyword rule before ids, lanes, and
// thresholds are assigned.
type taskTemplate struct {
	taskType    model.TaskType
	description string
}

// keywordRule maps an intent keyword to an ordered task breakdown. Rules are
// tested in order; the first keyword contained in the intent wins.
type keywordRule struct {
	keyword   string
	templates []taskTemplate
}

var planRules = []keywordRule{
	{
		keyword: "summarize",
		templates: []taskTemplate{
			{model.TaskTypeExtract, "Extract key points from the source material"},
			{model.TaskTypeSummarize, "Summarize the extracted content"},
			{model.TaskTypeAggregate, "Combine summaries into an overview"},
		},
	},
	{
		keyword: "analyze",
		templates: []taskTemplate{
			{model.TaskTypeExtract, "Extract relevant content for analysis"},
			{model.TaskTypeAnalyze, "Analyze structure and key themes"},
			{model.TaskTypeValidate, "Validate findings against the source"},
			{model.TaskTypeGenerate, "Generate analysis report"},
			{model.TaskTypeAggregate, "Aggregate findings into conclusions"},
		},
	},
	{
		keyword: "compare",
		templates: []taskTemplate{
			{model.TaskTypeExtract, "Extract claims from each source"},
			{model.TaskTypeAnalyze, "Compare positions across sources"},
			{model.TaskTypeGenerate, "Generate comparison report"},
		},
	},
	{
		keyword: "extract",
		templates: []taskTemplate{
			{model.TaskTypeExtract, "Extract structured data from the document"},
			{model.TaskTypeValidate, "Validate extracted fields"},
			{model.TaskTypeGenerate, "Generate extraction report"},
		},
	},
	{
		keyword: "validate",
		templates: []taskTemplate{
			{model.TaskTypeExtract, "Extract claims to check"},
			{model.TaskTypeValidate, "Validate claims against source material"},
			{model.TaskTypeGenerate, "Generate validation summary"},
		},
	},
}

// defaultTemplates is used when no keyword rule matches the intent.
var defaultTemplates = []taskTemplate{
	{model.TaskTypeExtract, "Extract relevant content"},
	{model.TaskTypeAnalyze, "Analyze the content"},
	{model.TaskTypeGenerate, "Generate final output"},
}

// truthTriggers force source-of-truth mode for every task in the plan when
// any of them appears in the intent.
var truthTriggers = []string{"latest", "current", "verify", "fact", "validate", "source"}

// Planner builds Plans from user intents.
type Planner struct {
	maxRetries          int
	confidenceThreshold float64
}

func New() *Planner {
	return &Planner{
		maxRetries:          defaultMaxRetries,
		confidenceThreshold: defaultConfidenceThreshold,
	}
}

// NewWithPolicy overrides the plan-wide retry budget and confidence
// threshold, e.g. from the server config.
func NewWithPolicy(maxRetries int, confidenceThreshold float64) *Planner {
	p := New()
	if maxRetries >= 0 {
		p.maxRetries = maxRetries
	}
	if confidenceThreshold > 0 && confidenceThreshold <= 1 {
		p.confidenceThreshold = confidenceThreshold
	}
	return p
}

// CreatePlan decomposes an intent into a Plan. It always returns a non-empty
// Plan; the only error path is task-id generation.
func (p *Planner) CreatePlan(intent string, numSources int) (model.Plan, error) {
	lowered := strings.ToLower(intent)

	templates := defaultTemplates
	for _, rule := range planRules {
		if strings.Contains(lowered, rule.keyword) {
			templates = rule.templates
			break
		}
	}

	planTruthMode := containsAny(lowered, truthTriggers)
	laneCount := len(templates)
	if laneCount > maxWorkerLanes {
		laneCount = maxWorkerLanes
	}

	tasks := make([]model.Task, 0, len(templates))
	for i, tmpl := range templates {
		id, err := model.GenerateID(model.IDTypeTask)
		if err != nil {
			return model.Plan{}, fmt.Errorf("generate task id: %w", err)
		}

		// Validation steps are grounded in sources even when the intent does
		// not ask for it.
		truthMode := model.TruthModeModelKnowledge
		if planTruthMode || tmpl.taskType == model.TaskTypeValidate {
			truthMode = model.TruthModeSourceOfTruth
		}

		threshold := thresholdModelKnowledge
		if truthMode == model.TruthModeSourceOfTruth {
			threshold = thresholdSourceOfTruth
		}

		tasks = append(tasks, model.Task{
			ID:                  id,
			Type:                tmpl.taskType,
			Description:         describe(tmpl, numSources),
			Worker:              (i % laneCount) + 1,
			TruthMode:           truthMode,
			ConfidenceThreshold: threshold,
		})
	}

	return model.Plan{
		Intent: intent,
		Tasks:  tasks,
		ExecutionPolicy: model.ExecutionPolicy{
			MaxRetries:          p.maxRetries,
			ConfidenceThreshold: p.confidenceThreshold,
			Parallel:            len(tasks) > 4,
		},
	}, nil
}

func describe(tmpl taskTemplate, numSources int) string {
	if numSources > 1 {
		return fmt.Sprintf("%s (%d sources)", tmpl.description, numSources)
	}
	return tmpl.description
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
