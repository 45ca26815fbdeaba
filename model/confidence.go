package model

// ConfidenceBreakdown is the multi-factor confidence score of one answer.
// FinalScore is a convex combination of the four components and therefore
// always in [0,1]. Never mutated after creation.
type ConfidenceBreakdown struct {
	SimilarityComponent   float64 `json:"similarity_component"`
	CitationComponent     float64 `json:"citation_component"`
	QueryQualityComponent float64 `json:"query_quality_component"`
	LengthComponent       float64 `json:"length_component"`
	FinalScore            float64 `json:"final_score"`
	LowConfidence         bool    `json:"low_confidence"`
}
