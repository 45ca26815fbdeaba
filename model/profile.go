package model

// QueryProfile holds lightweight metadata extracted from the raw query.
// Created once per incoming query by the analyzer and read-only afterward.
type QueryProfile struct {
	RawQuery string   `json:"raw_query"`
	Keywords []string `json:"keywords,omitempty"`
	Topics   []string `json:"topics,omitempty"`
	// QualityScore is a well-formedness score in [0,1]; gibberish and
	// degenerate queries score low.
	QualityScore float64 `json:"quality_score"`
}
