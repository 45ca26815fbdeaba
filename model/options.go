package model

import (
	"fmt"

	"github.com/google/uuid"
)

// QueryOptions configures a single pipeline run.
type QueryOptions struct {
	// TopK is the desired passage count; 0 means the default of 5.
	TopK int `json:"top_k"`
	// IncludeGrounding enables the optional claim-verification stage.
	IncludeGrounding bool `json:"include_grounding"`
	// DetailLevel controls answer verbosity; empty means basic.
	DetailLevel DetailLevel `json:"detail_level,omitempty"`
	// DocumentAllowList restricts the caller's private scope to the given
	// documents. Nil means no restriction.
	DocumentAllowList []uuid.UUID `json:"document_allow_list,omitempty"`
}

// DefaultQueryOptions returns the options used when the caller passes none.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		TopK:             5,
		IncludeGrounding: false,
		DetailLevel:      DetailBasic,
	}
}

// Normalize fills zero values with defaults and validates the result.
// A malformed option set is a programming mistake and yields a
// ConfigurationError, the only error class the orchestrator propagates.
func (o *QueryOptions) Normalize() error {
	if o.TopK == 0 {
		o.TopK = 5
	}
	if o.TopK < 0 {
		return &ConfigurationError{Field: "top_k", Reason: fmt.Sprintf("must be positive, got %d", o.TopK)}
	}
	switch o.DetailLevel {
	case "":
		o.DetailLevel = DetailBasic
	case DetailBasic, DetailDetailed, DetailDebug:
	default:
		return &ConfigurationError{Field: "detail_level", Reason: fmt.Sprintf("unknown level %q", o.DetailLevel)}
	}
	return nil
}
