// Package retrieval orchestrates multi-scope, metadata-boosted
// nearest-neighbor search and calibrates raw distances into similarity
// scores.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/averix/groundling/embedding"
	"github.com/averix/groundling/model"
	"github.com/averix/groundling/vectorindex"
)

// Engine fans a query out over collection scopes and merges the results.
type Engine struct {
	index      vectorindex.Index
	embeddings embedding.Gateway
	provider   model.ProviderID
	log        *slog.Logger
}

// NewEngine creates a retrieval engine. The provider selects which
// embedding space queries run in; it must match the space the passages
// were indexed with.
func NewEngine(index vectorindex.Index, embeddings embedding.Gateway, provider model.ProviderID, logger *slog.Logger) *Engine {
	return &Engine{
		index:      index,
		embeddings: embeddings,
		provider:   provider,
		log:        logger,
	}
}

type scopeResult struct {
	scope model.CollectionScope
	hits  []vectorindex.Hit
	err   error
}

// Retrieve embeds the query, queries every scope concurrently with the
// metadata filter fallback chain, then merges, calibrates and re-ranks.
// An empty result is a valid low-confidence outcome, not an error; an
// error is returned only when embedding fails or every scope failed.
func (e *Engine) Retrieve(ctx context.Context, query string, profile *model.QueryProfile, scopes []model.CollectionScope, opts model.QueryOptions) ([]*model.RetrievedPassage, error) {
	if len(scopes) == 0 {
		return nil, nil
	}

	vector, err := e.embeddings.Embed(ctx, query, e.provider)
	if err != nil {
		return nil, err
	}

	filters := filterChain(profile)

	results := make([]scopeResult, len(scopes))
	var wg sync.WaitGroup
	for i, scope := range scopes {
		wg.Add(1)
		go func(i int, scope model.CollectionScope) {
			defer wg.Done()
			hits, err := e.queryScope(ctx, scope, vector, opts, filters)
			results[i] = scopeResult{scope: scope, hits: hits, err: err}
		}(i, scope)
	}
	wg.Wait()

	var merged []*model.RetrievedPassage
	var firstErr error
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
			e.log.Warn("Scope query failed, continuing with remaining scopes",
				slog.String("scope", string(res.scope)),
				slog.String("error", res.err.Error()))
			continue
		}
		for rank, hit := range res.hits {
			merged = append(merged, &model.RetrievedPassage{
				PassageID:   hit.PassageID,
				DocumentID:  hit.DocumentID,
				Text:        hit.Text,
				PageNumber:  hit.PageNumber,
				Section:     hit.Section,
				RawDistance: hit.Distance,
				Similarity:  Calibrate(hit.Distance),
				Scope:       res.scope,
				ScopeRank:   rank,
				Metadata:    hit.Metadata,
			})
		}
	}

	// Partial scope failures are tolerated; only a total failure aborts.
	if failed == len(scopes) {
		return nil, firstErr
	}

	sortPassages(merged)
	if len(merged) > opts.TopK {
		merged = merged[:opts.TopK]
	}
	return merged, nil
}

// queryScope runs the metadata filter fallback chain for one scope:
// keywords first, then topics, then unfiltered, stopping at the first
// level that yields any result.
func (e *Engine) queryScope(ctx context.Context, scope model.CollectionScope, vector []float32, opts model.QueryOptions, filters []*vectorindex.Filter) ([]vectorindex.Hit, error) {
	q := vectorindex.Query{
		Scope:     scope,
		Provider:  e.provider,
		Embedding: vector,
		K:         opts.TopK,
	}
	// The allow-list restricts only the caller's private corpus; the
	// global corpus is curated and stays unrestricted.
	if scope != model.ScopeGlobal {
		q.AllowedDocuments = opts.DocumentAllowList
	}

	for _, filter := range filters {
		q.Filter = filter
		hits, err := e.index.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}
	return nil, nil
}

// filterChain builds the ordered filter fallback list from the profile.
// The unfiltered query is always the last resort.
func filterChain(profile *model.QueryProfile) []*vectorindex.Filter {
	var chain []*vectorindex.Filter
	if profile != nil && len(profile.Keywords) > 0 {
		chain = append(chain, &vectorindex.Filter{Keywords: profile.Keywords})
	}
	if profile != nil && len(profile.Topics) > 0 {
		chain = append(chain, &vectorindex.Filter{Topics: profile.Topics})
	}
	return append(chain, nil)
}

// sortPassages orders by calibrated similarity descending. Exact ties
// prefer the curated global scope, then the original per-scope rank.
func sortPassages(passages []*model.RetrievedPassage) {
	sort.SliceStable(passages, func(i, j int) bool {
		a, b := passages[i], passages[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		aGlobal := a.Scope == model.ScopeGlobal
		bGlobal := b.Scope == model.ScopeGlobal
		if aGlobal != bGlobal {
			return aGlobal
		}
		return a.ScopeRank < b.ScopeRank
	})
}
