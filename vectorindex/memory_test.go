package vectorindex

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averix/groundling/model"
)

func memPassage(documentID uuid.UUID, embedding []float32, keywords []string) Passage {
	return Passage{
		PassageID:  uuid.New(),
		DocumentID: documentID,
		Text:       "some passage text",
		Embedding:  embedding,
		Metadata: model.Metadata{
			model.MetadataKeywords: keywords,
			model.MetadataTopics:   []string{"testing"},
		},
	}
}

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("Query orders by cosine distance", func(t *testing.T) {
		index := NewMemoryIndex()
		documentID := uuid.New()
		near := memPassage(documentID, []float32{1, 0, 0}, nil)
		far := memPassage(documentID, []float32{0, 1, 0}, nil)
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{far, near}))

		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0},
			K:         10,
		})
		require.NoError(t, err, "Expected query to succeed")
		require.Len(t, hits, 2, "Expected both passages returned")
		assert.Equal(t, near.PassageID, hits[0].PassageID, "Expected the closest passage first")
		assert.InDelta(t, 0.0, hits[0].Distance, 1e-6, "Expected zero distance for an identical vector")
		assert.InDelta(t, 1.0, hits[1].Distance, 1e-6, "Expected distance 1 for an orthogonal vector")
	})

	t.Run("Partitions isolate scopes and providers", func(t *testing.T) {
		index := NewMemoryIndex()
		documentID := uuid.New()
		userScope := model.UserScope(uuid.New())
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{memPassage(documentID, []float32{1, 0}, nil)}))
		require.NoError(t, index.Upsert(ctx, userScope, model.ProviderLocal, []Passage{memPassage(documentID, []float32{1, 0}, nil)}))

		hits, err := index.Query(ctx, Query{Scope: userScope, Provider: model.ProviderLocal, Embedding: []float32{1, 0}, K: 10})
		require.NoError(t, err)
		assert.Len(t, hits, 1, "Expected only the private scope passage")

		hits, err = index.Query(ctx, Query{Scope: userScope, Provider: model.ProviderOpenAI, Embedding: []float32{1, 0}, K: 10})
		require.NoError(t, err)
		assert.Empty(t, hits, "Expected no passages from a different embedding space")
	})

	t.Run("Keyword filter matches metadata overlap", func(t *testing.T) {
		index := NewMemoryIndex()
		documentID := uuid.New()
		tagged := memPassage(documentID, []float32{1, 0}, []string{"alpha", "beta"})
		untagged := memPassage(documentID, []float32{1, 0}, []string{"gamma"})
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{tagged, untagged}))

		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0},
			K:         10,
			Filter:    &Filter{Keywords: []string{"beta"}},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1, "Expected only the matching passage")
		assert.Equal(t, tagged.PassageID, hits[0].PassageID, "Expected the keyword-tagged passage")
	})

	t.Run("Document allow list restricts results", func(t *testing.T) {
		index := NewMemoryIndex()
		allowedDoc := uuid.New()
		otherDoc := uuid.New()
		allowed := memPassage(allowedDoc, []float32{1, 0}, nil)
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{allowed, memPassage(otherDoc, []float32{1, 0}, nil)}))

		hits, err := index.Query(ctx, Query{
			Scope:            model.ScopeGlobal,
			Provider:         model.ProviderLocal,
			Embedding:        []float32{1, 0},
			K:                10,
			AllowedDocuments: []uuid.UUID{allowedDoc},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1, "Expected only the allowed document's passage")
		assert.Equal(t, allowed.PassageID, hits[0].PassageID)
	})

	t.Run("Upsert replaces by passage id", func(t *testing.T) {
		index := NewMemoryIndex()
		passage := memPassage(uuid.New(), []float32{1, 0}, nil)
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{passage}))

		passage.Text = "updated text"
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{passage}))

		hits, err := index.Query(ctx, Query{Scope: model.ScopeGlobal, Provider: model.ProviderLocal, Embedding: []float32{1, 0}, K: 10})
		require.NoError(t, err)
		require.Len(t, hits, 1, "Expected the passage replaced, not duplicated")
		assert.Equal(t, "updated text", hits[0].Text, "Expected the updated text")
	})

	t.Run("DeleteDocument removes across partitions", func(t *testing.T) {
		index := NewMemoryIndex()
		documentID := uuid.New()
		userScope := model.UserScope(uuid.New())
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{memPassage(documentID, []float32{1, 0}, nil)}))
		require.NoError(t, index.Upsert(ctx, userScope, model.ProviderLocal, []Passage{memPassage(documentID, []float32{1, 0}, nil)}))

		deleted, err := index.DeleteDocument(ctx, documentID)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted, "Expected both copies deleted")

		hits, err := index.Query(ctx, Query{Scope: model.ScopeGlobal, Provider: model.ProviderLocal, Embedding: []float32{1, 0}, K: 10})
		require.NoError(t, err)
		assert.Empty(t, hits, "Expected the global partition emptied")
	})

	t.Run("Truncates to k", func(t *testing.T) {
		index := NewMemoryIndex()
		documentID := uuid.New()
		passages := make([]Passage, 6)
		for i := range passages {
			passages[i] = memPassage(documentID, []float32{1, float32(i) * 0.1}, nil)
		}
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, passages))

		hits, err := index.Query(ctx, Query{Scope: model.ScopeGlobal, Provider: model.ProviderLocal, Embedding: []float32{1, 0}, K: 3})
		require.NoError(t, err)
		assert.Len(t, hits, 3, "Expected the result truncated to k")
	})

	t.Run("Dimension mismatch is a retrieval error", func(t *testing.T) {
		index := NewMemoryIndex()
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{memPassage(uuid.New(), []float32{1, 0, 0}, nil)}))

		_, err := index.Query(ctx, Query{Scope: model.ScopeGlobal, Provider: model.ProviderLocal, Embedding: []float32{1, 0}, K: 10})
		require.Error(t, err, "Expected a dimension mismatch to raise")
		var retrievalErr *model.RetrievalError
		assert.ErrorAs(t, err, &retrievalErr, "Expected a RetrievalError")
	})
}
