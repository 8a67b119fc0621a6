package model

import "testing"

func validPlan() Plan {
	return Plan{
		Intent: "summarize the report",
		Tasks: []Task{
			{ID: "task_0000000001_aaaaaaaa", Type: TaskTypeSummarize, Worker: 1, TruthMode: TruthModeModelKnowledge, ConfidenceThreshold: 0.6},
			{ID: "task_0000000001_bbbbbbbb", Type: TaskTypeGenerate, Worker: 2, TruthMode: TruthModeModelKnowledge, ConfidenceThreshold: 0.6},
		},
		ExecutionPolicy: ExecutionPolicy{MaxRetries: 2, ConfidenceThreshold: 0.6},
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr bool
	}{
		{"valid plan", func(p *Plan) {}, false},
		{"empty tasks", func(p *Plan) { p.Tasks = nil }, true},
		{"duplicate id", func(p *Plan) { p.Tasks[1].ID = p.Tasks[0].ID }, true},
		{"empty id", func(p *Plan) { p.Tasks[0].ID = "" }, true},
		{"zero worker", func(p *Plan) { p.Tasks[0].Worker = 0 }, true},
		{"negative retries", func(p *Plan) { p.ExecutionPolicy.MaxRetries = -1 }, true},
		{"zero policy threshold", func(p *Plan) { p.ExecutionPolicy.ConfidenceThreshold = 0 }, true},
		{"threshold above one", func(p *Plan) { p.Tasks[0].ConfidenceThreshold = 1.5 }, true},
		{"threshold exactly one", func(p *Plan) { p.Tasks[0].ConfidenceThreshold = 1.0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := validPlan()
			tt.mutate(&plan)
			err := plan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorkerLanes(t *testing.T) {
	plan := Plan{
		Tasks: []Task{
			{ID: "a", Worker: 1},
			{ID: "b", Worker: 2},
			{ID: "c", Worker: 1},
			{ID: "d", Worker: 2},
			{ID: "e", Worker: 1},
		},
	}

	lanes := plan.WorkerLanes()
	if len(lanes) != 2 {
		t.Fatalf("got %d lanes, want 2", len(lanes))
	}

	wantLane1 := []string{"a", "c", "e"}
	for i, task := range lanes[1] {
		if task.ID != wantLane1[i] {
			t.Errorf("lane 1 position %d = %s, want %s", i, task.ID, wantLane1[i])
		}
	}
	wantLane2 := []string{"b", "d"}
	for i, task := range lanes[2] {
		if task.ID != wantLane2[i] {
			t.Errorf("lane 2 position %d = %s, want %s", i, task.ID, wantLane2[i])
		}
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error: %v", err)
	}
}
