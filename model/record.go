package model

import "time"

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StageSuccess  StageStatus = "success"
	StageFailed   StageStatus = "failed"
	StageDegraded StageStatus = "degraded"
)

// StageExecutionRecord is the audit record emitted for exactly one stage
// transition. Records are appended to the run's execution log in strict
// stage-execution order and never reordered or mutated retroactively.
type StageExecutionRecord struct {
	StageName  string        `json:"stage_name"`
	Status     StageStatus   `json:"status"`
	Duration   time.Duration `json:"duration"`
	Reasoning  string        `json:"reasoning_text,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
	Error      string        `json:"error,omitempty"`
}
