package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/averix/groundling/model"
)

type partitionKey struct {
	scope    model.CollectionScope
	provider model.ProviderID
}

// MemoryIndex is an in-memory cosine-distance Store for tests and
// examples. Safe for concurrent use.
type MemoryIndex struct {
	mu         sync.RWMutex
	partitions map[partitionKey][]Passage
}

// NewMemoryIndex creates an empty in-memory store.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		partitions: make(map[partitionKey][]Passage),
	}
}

// Upsert inserts or replaces passages by PassageID.
func (ix *MemoryIndex) Upsert(ctx context.Context, scope model.CollectionScope, provider model.ProviderID, passages []Passage) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	key := partitionKey{scope: scope, provider: provider}
	stored := ix.partitions[key]

	for _, p := range passages {
		if p.PassageID == uuid.Nil {
			p.PassageID = uuid.New()
		}
		replaced := false
		for i := range stored {
			if stored[i].PassageID == p.PassageID {
				stored[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			stored = append(stored, p)
		}
	}

	ix.partitions[key] = stored
	return nil
}

// Query performs a brute-force cosine-distance scan over one partition.
func (ix *MemoryIndex) Query(ctx context.Context, q Query) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.RetrievalError{Scope: q.Scope, Err: err}
	}

	ix.mu.RLock()
	stored := ix.partitions[partitionKey{scope: q.Scope, provider: q.Provider}]
	ix.mu.RUnlock()

	var hits []Hit
	for _, p := range stored {
		if !documentAllowed(p.DocumentID, q.AllowedDocuments) {
			continue
		}
		if !matchesFilter(p.Metadata, q.Filter) {
			continue
		}
		distance, err := cosineDistance(q.Embedding, p.Embedding)
		if err != nil {
			return nil, &model.RetrievalError{Scope: q.Scope, Err: err}
		}
		hits = append(hits, Hit{
			PassageID:  p.PassageID,
			DocumentID: p.DocumentID,
			Text:       p.Text,
			PageNumber: p.PageNumber,
			Section:    p.Section,
			Distance:   distance,
			Metadata:   p.Metadata,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if q.K > 0 && len(hits) > q.K {
		hits = hits[:q.K]
	}

	return hits, nil
}

// DeleteDocument removes every passage of a document across partitions.
func (ix *MemoryIndex) DeleteDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	deleted := 0
	for key, stored := range ix.partitions {
		kept := stored[:0]
		for _, p := range stored {
			if p.DocumentID == documentID {
				deleted++
				continue
			}
			kept = append(kept, p)
		}
		ix.partitions[key] = kept
	}
	return deleted, nil
}

func documentAllowed(id uuid.UUID, allowed []uuid.UUID) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == id {
			return true
		}
	}
	return false
}

func matchesFilter(metadata model.Metadata, filter *Filter) bool {
	if filter.IsEmpty() {
		return true
	}
	if len(filter.Keywords) > 0 && !anyOverlap(metadata.StringList(model.MetadataKeywords), filter.Keywords) {
		return false
	}
	if len(filter.Topics) > 0 && !anyOverlap(metadata.StringList(model.MetadataTopics), filter.Topics) {
		return false
	}
	return true
}

func anyOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
