// Package vectorindex defines the similarity-search interface the
// retriever fans out over, plus the PostgreSQL/pgvector production store
// and an in-memory store for tests and examples.
package vectorindex

import (
	"context"

	"github.com/google/uuid"

	"github.com/averix/groundling/model"
)

// Hit is one raw nearest-neighbor result before calibration.
type Hit struct {
	PassageID  uuid.UUID
	DocumentID uuid.UUID
	Text       string
	PageNumber *int
	Section    string
	Distance   float64
	Metadata   model.Metadata
}

// Filter is an optional metadata predicate for a nearest-neighbor query.
// A hit matches when any keyword (or any topic) overlaps the hit's
// metadata string arrays. A nil or empty filter matches everything.
type Filter struct {
	Keywords []string
	Topics   []string
}

// IsEmpty reports whether the filter constrains nothing.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Keywords) == 0 && len(f.Topics) == 0)
}

// Query describes one per-scope nearest-neighbor request.
type Query struct {
	Scope     model.CollectionScope
	Provider  model.ProviderID
	Embedding []float32
	K         int
	Filter    *Filter
	// AllowedDocuments restricts results to the given documents; nil
	// means no restriction.
	AllowedDocuments []uuid.UUID
}

// Index is the read side of the similarity-search store. Implementations
// must be safe for concurrent use by many pipeline runs.
type Index interface {
	Query(ctx context.Context, q Query) ([]Hit, error)
}

// Passage is one indexable unit for the write side.
type Passage struct {
	PassageID  uuid.UUID
	DocumentID uuid.UUID
	Text       string
	PageNumber *int
	Section    string
	Embedding  []float32
	Metadata   model.Metadata
}

// Store is a full passage store: queryable and writable.
type Store interface {
	Index
	Upsert(ctx context.Context, scope model.CollectionScope, provider model.ProviderID, passages []Passage) error
	DeleteDocument(ctx context.Context, documentID uuid.UUID) (int, error)
}
