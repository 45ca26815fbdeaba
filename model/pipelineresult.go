package model

// Result warning markers rendered by the caller.
const (
	WarningLowConfidence  = "low_confidence"
	WarningWeakGrounding  = "claims_not_well_supported"
	WarningUnableToAnswer = "unable_to_answer"
)

// PipelineResult is the final bundle of one pipeline run. It is returned
// for every runtime condition including total failure; callers never see a
// bare error for anything but malformed options.
type PipelineResult struct {
	AnswerText   string                 `json:"answer_text"`
	Confidence   ConfidenceBreakdown    `json:"confidence"`
	Grounding    *GroundingResult       `json:"grounding,omitempty"`
	PassagesUsed []*RetrievedPassage    `json:"passages_used"`
	ExecutionLog []StageExecutionRecord `json:"execution_log"`
	Explanation  string                 `json:"explanation,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// HasWarning reports whether the result carries the given marker.
func (r *PipelineResult) HasWarning(w string) bool {
	for _, have := range r.Warnings {
		if have == w {
			return true
		}
	}
	return false
}
