package model

import "github.com/google/uuid"

// DetailLevel controls how verbose the generated answer should be.
type DetailLevel string

const (
	DetailBasic    DetailLevel = "basic"
	DetailDetailed DetailLevel = "detailed"
	DetailDebug    DetailLevel = "debug"
)

// Citation is a single inline passage reference in a generated answer.
// SourceIndex is the 1-based number used in the [Source N] marker.
type Citation struct {
	SourceIndex int       `json:"source_index"`
	PassageID   uuid.UUID `json:"passage_id"`
}

// TokenUsage reports the token accounting of one model invocation.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// GeneratedAnswer is the output of the answer generator. Citations appear
// in the order the markers occur in Text; an answer generated without
// context always carries zero citations.
type GeneratedAnswer struct {
	Text       string     `json:"text"`
	Citations  []Citation `json:"citations"`
	TokenUsage TokenUsage `json:"token_usage"`
}
