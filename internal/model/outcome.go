package model

// TaskOutcome is the result of one task after its retry loop has settled:
// the last attempt's output and the confidence the executor assigned to it.
type TaskOutcome struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
}

// AssembledOutput is the final report. Low-confidence tasks keep their output
// in AssembledOutput, flagged inline, and are listed in FailedTasks.
type AssembledOutput struct {
	AssembledOutput map[string]string `json:"assembled_output"`
	FailedTasks     []string          `json:"failed_tasks"`
	TotalTasks      int               `json:"total_tasks"`
	SuccessfulTasks int               `json:"successful_tasks"`
}
