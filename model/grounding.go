package model

import "github.com/google/uuid"

// ClaimVerdict classifies one factual claim against the retrieved passages.
type ClaimVerdict string

const (
	ClaimSupported          ClaimVerdict = "supported"
	ClaimPartiallySupported ClaimVerdict = "partially_supported"
	ClaimUnsupported        ClaimVerdict = "unsupported"
)

// ClaimEvidence links a verified claim to the passage and verbatim quote
// that supports it.
type ClaimEvidence struct {
	Claim     string    `json:"claim"`
	PassageID uuid.UUID `json:"passage_id"`
	Quote     string    `json:"quote"`
}

// ExtractionFailedSentinel is the single unverified claim reported when
// claim extraction itself failed.
const ExtractionFailedSentinel = "<extraction failed>"

// GroundingResult is the outcome of verifying an answer's factual claims
// against the retrieved passages. Score is a ratio bounded in [0,1] and is
// exactly 0.0 when no claims were extracted.
type GroundingResult struct {
	Score            float64         `json:"score"`
	VerifiedClaims   []string        `json:"verified_claims"`
	UnverifiedClaims []string        `json:"unverified_claims"`
	Evidence         []ClaimEvidence `json:"evidence,omitempty"`
}
