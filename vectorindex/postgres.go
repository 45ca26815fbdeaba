package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/averix/groundling/helper"
	"github.com/averix/groundling/model"
	loadSql "github.com/averix/groundling/sql"
)

// PostgresIndex is the production Store backed by PostgreSQL with the
// pgvector extension. All queries go through the SQL functions loaded
// from the embedded passages.sql.
type PostgresIndex struct {
	db *helper.Database
}

// NewPostgresIndex creates the store, loading SQL functions and creating
// the passages table if needed. If force is true the SQL functions are
// reloaded even if they already exist.
func NewPostgresIndex(db *helper.Database, embeddingDim int, force bool) (*PostgresIndex, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	index := &PostgresIndex{db: db}

	err := loadSql.LoadPassagesSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load passages sql", err)
	}

	err = index.createTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized PostgresIndex", slog.Int("embedding_dim", embeddingDim))

	return index, nil
}

func (ix *PostgresIndex) createTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := ix.db.Instance.ExecContext(ctx, `SELECT init_passages($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("init passages table", err)
	}

	ix.db.Logger.Info("Checked/created table passages")

	return nil
}

// Upsert inserts or replaces passages in one scope/provider partition.
func (ix *PostgresIndex) Upsert(ctx context.Context, scope model.CollectionScope, provider model.ProviderID, passages []Passage) error {
	for i, p := range passages {
		id := p.PassageID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := ix.db.Instance.ExecContext(ctx,
			`SELECT insert_passage($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id,
			p.DocumentID,
			string(scope),
			string(provider),
			p.Text,
			p.PageNumber,
			p.Section,
			pgvector.NewVector(p.Embedding),
			p.Metadata,
		)
		if err != nil {
			return helper.NewError(fmt.Sprintf("insert passage %d", i), err)
		}
	}
	return nil
}

// Query performs a nearest-neighbor search in one scope/provider
// partition. Failures are reported as RetrievalError for the scope so the
// retriever can tolerate a single failed scope.
func (ix *PostgresIndex) Query(ctx context.Context, q Query) ([]Hit, error) {
	var keywords, topics interface{}
	if q.Filter != nil && len(q.Filter.Keywords) > 0 {
		keywords = pq.Array(q.Filter.Keywords)
	}
	if q.Filter != nil && len(q.Filter.Topics) > 0 {
		topics = pq.Array(q.Filter.Topics)
	}
	var allowed interface{}
	if len(q.AllowedDocuments) > 0 {
		ids := make([]string, len(q.AllowedDocuments))
		for i, id := range q.AllowedDocuments {
			ids[i] = id.String()
		}
		allowed = pq.Array(ids)
	}

	rows, err := ix.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_passages_by_similarity($1, $2, $3, $4, $5, $6, $7)`,
		string(q.Scope),
		string(q.Provider),
		pgvector.NewVector(q.Embedding),
		q.K,
		keywords,
		topics,
		allowed,
	)
	if err != nil {
		return nil, &model.RetrievalError{Scope: q.Scope, Err: helper.NewError("query", err)}
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		err := rows.Scan(
			&hit.PassageID,
			&hit.DocumentID,
			&hit.Text,
			&hit.PageNumber,
			&hit.Section,
			&hit.Distance,
			&hit.Metadata,
		)
		if err != nil {
			return nil, &model.RetrievalError{Scope: q.Scope, Err: helper.NewError("scan", err)}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.RetrievalError{Scope: q.Scope, Err: helper.NewError("rows", err)}
	}

	return hits, nil
}

// DeleteDocument removes every passage of a document across scopes and
// returns the number of deleted passages.
func (ix *PostgresIndex) DeleteDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var deleted int
	err := ix.db.Instance.QueryRowContext(ctx,
		`SELECT delete_passages_by_document($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("delete passages", err)
	}
	return deleted, nil
}

// Count returns the passage count of one scope/provider partition.
func (ix *PostgresIndex) Count(ctx context.Context, scope model.CollectionScope, provider model.ProviderID) (int64, error) {
	var count int64
	err := ix.db.Instance.QueryRowContext(ctx,
		`SELECT count_passages($1, $2)`,
		string(scope),
		string(provider),
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("count passages", err)
	}
	return count, nil
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (ix *PostgresIndex) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Drop existing index
	_, err := ix.db.Instance.ExecContext(ctx, `DROP INDEX IF EXISTS idx_passages_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	ix.db.Logger.Info("Dropped existing vector index")

	// Create new index based on type
	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_passages_embedding ON passages USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case "ivfflat":
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_passages_embedding ON passages USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	// Create the new index
	_, err = ix.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	ix.db.Logger.Info(fmt.Sprintf("Created %s index with params: %v", indexType, params))

	return nil
}
