// Package groundling is a retrieval-augmented answer pipeline: query
// analysis, multi-scope vector retrieval with calibrated similarities,
// cited answer generation, confidence scoring and optional claim-level
// grounding verification, driven by a linear stage orchestrator.
package groundling

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/averix/groundling/config"
	"github.com/averix/groundling/core/analyze"
	"github.com/averix/groundling/core/confidence"
	"github.com/averix/groundling/core/generate"
	"github.com/averix/groundling/core/grounding"
	"github.com/averix/groundling/core/pipeline"
	"github.com/averix/groundling/core/retrieval"
	"github.com/averix/groundling/embedding"
	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/helper"
	"github.com/averix/groundling/model"
	"github.com/averix/groundling/vectorindex"
)

// Groundling is the facade wiring gateways, index and pipeline stages
// together. One instance serves many concurrent queries.
type Groundling struct {
	DB           *helper.Database // nil when the in-memory index is used
	Store        vectorindex.Store
	Embeddings   *embedding.Registry
	LLM          gateway.LLM
	Orchestrator *pipeline.Orchestrator
	History      *pipeline.History

	provider model.ProviderID
	log      *slog.Logger
	closers  []func() error
}

// New builds a Groundling from the application configuration: embedding
// provider, LLM gateway and index backend per cfg, defaults elsewhere.
func New(cfg *config.AppConfig) (*Groundling, error) {
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	g := &Groundling{log: logger}

	embedder, err := buildEmbedder(cfg, g)
	if err != nil {
		return nil, helper.NewError("create embedding provider", err)
	}
	g.provider = embedder.Provider()
	g.Embeddings = embedding.NewRegistry(embedder)

	if cfg.LLM.OpenAI == nil {
		return nil, helper.NewError("create model gateway", fmt.Errorf("llm.openai configuration missing"))
	}
	llm, err := gateway.NewOpenAIClient(gateway.OpenAIConfig{
		BaseURL:   cfg.LLM.OpenAI.BaseURL,
		APIKeyEnv: cfg.LLM.OpenAI.APIKeyEnv,
		Model:     cfg.LLM.OpenAI.Model,
		Timeout:   time.Duration(cfg.LLM.OpenAI.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, helper.NewError("create model gateway", err)
	}
	g.LLM = llm

	store, err := buildStore(cfg, embedder.Dimension(), g)
	if err != nil {
		return nil, helper.NewError("create vector index", err)
	}
	g.Store = store

	g.wirePipeline(cfg.Pipeline.HistorySize)
	return g, nil
}

// NewWithComponents builds a Groundling from prebuilt collaborators.
// Used by tests and examples that bring their own store or gateways.
func NewWithComponents(store vectorindex.Store, embeddings *embedding.Registry, llm gateway.LLM, provider model.ProviderID, logger *slog.Logger) *Groundling {
	if logger == nil {
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
		}))
	}
	g := &Groundling{
		Store:      store,
		Embeddings: embeddings,
		LLM:        llm,
		provider:   provider,
		log:        logger,
	}
	g.wirePipeline(100)
	return g
}

func (g *Groundling) wirePipeline(historySize int) {
	analyzer := analyze.NewAnalyzer(g.LLM, g.provider, g.log)
	engine := retrieval.NewEngine(g.Store, g.Embeddings, g.provider, g.log)
	generator := generate.NewGenerator(g.LLM, g.provider, g.log)
	scorer := confidence.NewScorer()
	verifier := grounding.NewVerifier(g.LLM, g.provider, g.log)
	explainer := pipeline.NewExplainer(g.LLM, g.provider, g.log)

	g.Orchestrator = pipeline.NewOrchestrator(analyzer, engine, generator, scorer, verifier, explainer, g.log)
	g.History = pipeline.NewHistory(historySize)
}

// Ask runs one query through the pipeline and records the run summary.
// It returns an error only for malformed options.
func (g *Groundling) Ask(ctx context.Context, query string, scopes []model.CollectionScope, opts model.QueryOptions) (*model.PipelineResult, error) {
	started := time.Now()
	result, err := g.Orchestrator.Run(ctx, query, scopes, opts)
	if err != nil {
		return nil, err
	}

	state := pipeline.StateDone
	if result.HasWarning(model.WarningUnableToAnswer) {
		state = pipeline.StateFailed
	}
	g.History.Record(query, state, result, time.Since(started))
	return result, nil
}

// PassageInput is one passage handed to IndexPassages before embedding.
type PassageInput struct {
	DocumentID uuid.UUID
	Text       string
	PageNumber *int
	Section    string
	Keywords   []string
	Topics     []string
}

// IndexPassages embeds and upserts passages into the given scope. Each
// passage gets a fresh identifier; the returned ids parallel the input.
func (g *Groundling) IndexPassages(ctx context.Context, scope model.CollectionScope, inputs []PassageInput) ([]uuid.UUID, error) {
	passages := make([]vectorindex.Passage, 0, len(inputs))
	ids := make([]uuid.UUID, 0, len(inputs))
	for i, in := range inputs {
		vector, err := g.Embeddings.Embed(ctx, in.Text, g.provider)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embed passage %d", i), err)
		}
		id := uuid.New()
		ids = append(ids, id)
		passages = append(passages, vectorindex.Passage{
			PassageID:  id,
			DocumentID: in.DocumentID,
			Text:       in.Text,
			PageNumber: in.PageNumber,
			Section:    in.Section,
			Embedding:  vector,
			Metadata: model.Metadata{
				model.MetadataKeywords: in.Keywords,
				model.MetadataTopics:   in.Topics,
			},
		})
	}

	if err := g.Store.Upsert(ctx, scope, g.provider, passages); err != nil {
		return nil, helper.NewError("upsert passages", err)
	}
	g.log.Info("Indexed passages",
		slog.Int("count", len(passages)),
		slog.String("scope", string(scope)))
	return ids, nil
}

// DeleteDocument removes all passages of a document from every scope.
func (g *Groundling) DeleteDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	return g.Store.DeleteDocument(ctx, documentID)
}

// Close releases the database connection and any embedder resources.
func (g *Groundling) Close() error {
	var firstErr error
	for _, closer := range g.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.DB != nil && g.DB.Instance != nil {
		if err := g.DB.Instance.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildEmbedder(cfg *config.AppConfig, g *Groundling) (embedding.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "local", "":
		local, err := embedding.NewLocalEmbedder()
		if err != nil {
			return nil, err
		}
		g.closers = append(g.closers, local.Close)
		return local, nil
	case "openai":
		clientCfg := embedding.OpenAIConfig{}
		if c := cfg.Embedder.OpenAI; c != nil {
			clientCfg = embedding.OpenAIConfig{
				BaseURL:   c.BaseURL,
				APIKeyEnv: c.APIKeyEnv,
				Model:     c.Model,
				Timeout:   time.Duration(c.TimeoutSecs) * time.Second,
				Dimension: c.Dimension,
			}
		}
		return embedding.NewOpenAIClient(clientCfg)
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
}

func buildStore(cfg *config.AppConfig, embeddingDim int, g *Groundling) (vectorindex.Store, error) {
	switch cfg.Index.Type {
	case "memory", "":
		return vectorindex.NewMemoryIndex(), nil
	case "postgres":
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, err
		}
		g.DB = helper.NewDatabase("groundling", dbConfig, g.log)
		return vectorindex.NewPostgresIndex(g.DB, embeddingDim, false)
	default:
		return nil, fmt.Errorf("unknown index type %q", cfg.Index.Type)
	}
}
