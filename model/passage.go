package model

import (
	"github.com/google/uuid"
)

// CollectionScope identifies a logical partition of the vector index.
// Scopes are never cross-contaminated; a query fans out over the scopes
// the caller is allowed to see.
type CollectionScope string

const (
	// ScopeGlobal is the shared, curated corpus.
	ScopeGlobal CollectionScope = "global"
)

// UserScope returns the private collection scope for a user.
func UserScope(userID uuid.UUID) CollectionScope {
	return CollectionScope("user." + userID.String())
}

// ProviderID identifies an embedding or language model provider.
// Embeddings from different providers are never mixed or compared.
type ProviderID string

const (
	ProviderLocal  ProviderID = "local"
	ProviderOpenAI ProviderID = "openai"
)

// RetrievedPassage is one passage returned by the retriever for a single
// pipeline run. It is immutable once created and discarded after the run
// unless the caller persists it for audit.
type RetrievedPassage struct {
	PassageID  uuid.UUID `json:"passage_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Text       string    `json:"text"`
	PageNumber *int      `json:"page_number,omitempty"`
	Section    string    `json:"section,omitempty"`
	// RawDistance is the provider-specific vector distance as reported by
	// the index. Not directly interpretable, see Similarity.
	RawDistance float64 `json:"raw_distance"`
	// Similarity is RawDistance calibrated into [0,1].
	Similarity float64 `json:"calibrated_similarity"`
	// Scope and ScopeRank record where the passage came from and its
	// original rank within that scope's result list (0-based). Used for
	// tie-breaking during the merge.
	Scope     CollectionScope `json:"scope"`
	ScopeRank int             `json:"scope_rank"`
	Metadata  Metadata        `json:"source_metadata,omitempty"`
}
