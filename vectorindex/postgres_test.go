package vectorindex

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averix/groundling/model"
)

const testDim = 4

func initIndex(t *testing.T) *PostgresIndex {
	db := initDB(t)
	index, err := NewPostgresIndex(db, testDim, true)
	require.NoError(t, err, "Expected NewPostgresIndex to not return an error")
	require.NotNil(t, index, "Expected NewPostgresIndex to return a non-nil instance")

	// Each test starts from an empty table.
	_, err = db.Instance.Exec(`TRUNCATE passages;`)
	require.NoError(t, err, "Expected truncating passages to not return an error")

	return index
}

func pgPassage(documentID uuid.UUID, embedding []float32, keywords, topics []string) Passage {
	page := 3
	return Passage{
		PassageID:  uuid.New(),
		DocumentID: documentID,
		Text:       "a stored passage",
		PageNumber: &page,
		Section:    "Section 1",
		Embedding:  embedding,
		Metadata: model.Metadata{
			model.MetadataKeywords: keywords,
			model.MetadataTopics:   topics,
		},
	}
}

func TestNewPostgresIndex(t *testing.T) {
	t.Run("Valid call NewPostgresIndex", func(t *testing.T) {
		index := initIndex(t)
		assert.NotNil(t, index.db, "Expected index to hold the database")
	})

	t.Run("Invalid call NewPostgresIndex with nil database", func(t *testing.T) {
		_, err := NewPostgresIndex(nil, testDim, false)
		assert.Error(t, err, "Expected error when creating PostgresIndex with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestPostgresUpsertAndQuery(t *testing.T) {
	index := initIndex(t)
	ctx := context.Background()
	documentID := uuid.New()

	near := pgPassage(documentID, []float32{1, 0, 0, 0}, []string{"alpha"}, []string{"topic-a"})
	far := pgPassage(documentID, []float32{0, 1, 0, 0}, []string{"beta"}, []string{"topic-b"})
	require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{near, far}))

	t.Run("Query orders by cosine distance", func(t *testing.T) {
		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0, 0},
			K:         10,
		})
		require.NoError(t, err, "Expected query to succeed")
		require.Len(t, hits, 2, "Expected both passages returned")
		assert.Equal(t, near.PassageID, hits[0].PassageID, "Expected the closest passage first")
		assert.InDelta(t, 0.0, hits[0].Distance, 1e-6, "Expected zero distance for an identical vector")
		assert.Equal(t, "Section 1", hits[0].Section, "Expected section carried through")
		require.NotNil(t, hits[0].PageNumber, "Expected page number carried through")
		assert.Equal(t, 3, *hits[0].PageNumber)
		assert.Equal(t, []string{"alpha"}, hits[0].Metadata.StringList(model.MetadataKeywords), "Expected metadata round-tripped")
	})

	t.Run("Keyword filter matches JSONB metadata", func(t *testing.T) {
		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0, 0},
			K:         10,
			Filter:    &Filter{Keywords: []string{"beta", "missing"}},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1, "Expected only the keyword-tagged passage")
		assert.Equal(t, far.PassageID, hits[0].PassageID)
	})

	t.Run("Topic filter matches JSONB metadata", func(t *testing.T) {
		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0, 0},
			K:         10,
			Filter:    &Filter{Topics: []string{"topic-a"}},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1, "Expected only the topic-tagged passage")
		assert.Equal(t, near.PassageID, hits[0].PassageID)
	})

	t.Run("Unmatched filter yields no hits", func(t *testing.T) {
		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0, 0},
			K:         10,
			Filter:    &Filter{Keywords: []string{"nothing"}},
		})
		require.NoError(t, err, "Expected an empty result, not an error")
		assert.Empty(t, hits, "Expected no hits for an unmatched filter")
	})

	t.Run("Scope partitions are isolated", func(t *testing.T) {
		userScope := model.UserScope(uuid.New())
		hits, err := index.Query(ctx, Query{
			Scope:     userScope,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0, 0},
			K:         10,
		})
		require.NoError(t, err)
		assert.Empty(t, hits, "Expected no hits from an empty scope")
	})

	t.Run("Upsert replaces by passage id", func(t *testing.T) {
		updated := near
		updated.Text = "updated passage text"
		require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{updated}))

		hits, err := index.Query(ctx, Query{
			Scope:     model.ScopeGlobal,
			Provider:  model.ProviderLocal,
			Embedding: []float32{1, 0, 0, 0},
			K:         1,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "updated passage text", hits[0].Text, "Expected the passage replaced")
	})
}

func TestPostgresAllowList(t *testing.T) {
	index := initIndex(t)
	ctx := context.Background()
	allowedDoc := uuid.New()
	otherDoc := uuid.New()

	require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{
		pgPassage(allowedDoc, []float32{1, 0, 0, 0}, nil, nil),
		pgPassage(otherDoc, []float32{1, 0, 0, 0}, nil, nil),
	}))

	t.Run("Allow list restricts documents", func(t *testing.T) {
		hits, err := index.Query(ctx, Query{
			Scope:            model.ScopeGlobal,
			Provider:         model.ProviderLocal,
			Embedding:        []float32{1, 0, 0, 0},
			K:                10,
			AllowedDocuments: []uuid.UUID{allowedDoc},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1, "Expected only the allowed document's passage")
		assert.Equal(t, allowedDoc, hits[0].DocumentID)
	})
}

func TestPostgresDeleteAndCount(t *testing.T) {
	index := initIndex(t)
	ctx := context.Background()
	documentID := uuid.New()
	userScope := model.UserScope(uuid.New())

	require.NoError(t, index.Upsert(ctx, model.ScopeGlobal, model.ProviderLocal, []Passage{pgPassage(documentID, []float32{1, 0, 0, 0}, nil, nil)}))
	require.NoError(t, index.Upsert(ctx, userScope, model.ProviderLocal, []Passage{pgPassage(documentID, []float32{0, 1, 0, 0}, nil, nil)}))

	t.Run("Count per partition", func(t *testing.T) {
		count, err := index.Count(ctx, model.ScopeGlobal, model.ProviderLocal)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Expected one passage in the global partition")
	})

	t.Run("DeleteDocument removes across scopes", func(t *testing.T) {
		deleted, err := index.DeleteDocument(ctx, documentID)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted, "Expected both copies deleted")

		count, err := index.Count(ctx, model.ScopeGlobal, model.ProviderLocal)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count, "Expected the global partition emptied")
	})
}

func TestPostgresChangeIndexType(t *testing.T) {
	index := initIndex(t)
	ctx := context.Background()

	t.Run("Switch to ivfflat and back to hnsw", func(t *testing.T) {
		err := index.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{"lists": 10})
		assert.NoError(t, err, "Expected switching to ivfflat to succeed")

		err = index.ChangeIndexType(ctx, "hnsw", map[string]interface{}{"m": 8, "ef_construction": 32})
		assert.NoError(t, err, "Expected switching back to hnsw to succeed")
	})

	t.Run("Unsupported index type fails", func(t *testing.T) {
		err := index.ChangeIndexType(ctx, "btree", nil)
		assert.Error(t, err, "Expected unsupported index type to fail")
	})
}
