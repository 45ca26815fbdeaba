package groundling

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averix/groundling/core/pipeline"
	"github.com/averix/groundling/embedding"
	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/model"
	"github.com/averix/groundling/vectorindex"
)

// hashEmbedder embeds by hashed token counts, deterministic and cheap.
type hashEmbedder struct{}

func (hashEmbedder) Provider() model.ProviderID { return model.ProviderLocal }
func (hashEmbedder) Dimension() int             { return 32 }

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, 32)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,?!")))
		vector[h.Sum32()%32] += 1
	}
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector, nil
}

// scriptedLLM serves the pipeline's prompt kinds with canned responses.
type scriptedLLM struct {
	answer      string
	generateErr error
}

func (s *scriptedLLM) Invoke(ctx context.Context, req gateway.InvokeRequest) (*gateway.InvokeResponse, error) {
	switch {
	case strings.Contains(req.SystemMessage, "search metadata"):
		return &gateway.InvokeResponse{Text: `{"keywords": ["capital", "france"], "topics": ["geography"]}`}, nil
	case strings.Contains(req.SystemMessage, "summarize"):
		return &gateway.InvokeResponse{Text: "A short run summary."}, nil
	default:
		if s.generateErr != nil {
			return nil, s.generateErr
		}
		return &gateway.InvokeResponse{Text: s.answer, PromptTokens: 10, CompletionTokens: 10}, nil
	}
}

func newTestGroundling(llm gateway.LLM) *Groundling {
	return NewWithComponents(
		vectorindex.NewMemoryIndex(),
		embedding.NewRegistry(hashEmbedder{}),
		llm,
		model.ProviderLocal,
		nil,
	)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	scopes := []model.CollectionScope{model.ScopeGlobal}

	t.Run("Empty corpus yields a low confidence context-free answer", func(t *testing.T) {
		g := newTestGroundling(&scriptedLLM{answer: "I have no passages, so this is general knowledge: Paris."})

		result, err := g.Ask(ctx, "What is the capital of France?", scopes, model.DefaultQueryOptions())
		require.NoError(t, err, "Expected the run to reach DONE")
		assert.Empty(t, result.PassagesUsed, "Expected no passages from an empty corpus")
		assert.Less(t, result.Confidence.FinalScore, 0.30, "Expected a low final score")
		assert.True(t, result.Confidence.LowConfidence, "Expected the low confidence flag")
		assert.True(t, result.HasWarning(model.WarningLowConfidence), "Expected the low confidence warning")
		assert.NotEmpty(t, result.Explanation, "Expected an explanation")
	})

	t.Run("Indexed passages are retrieved and cited", func(t *testing.T) {
		g := newTestGroundling(&scriptedLLM{
			answer: "The capital of France is Paris [Source 1], seat of the national government since centuries past.",
		})

		documentID := uuid.New()
		ids, err := g.IndexPassages(ctx, model.ScopeGlobal, []PassageInput{
			{
				DocumentID: documentID,
				Text:       "Paris is the capital of France and its largest city.",
				Keywords:   []string{"capital", "france"},
				Topics:     []string{"geography"},
			},
		})
		require.NoError(t, err, "Expected indexing to succeed")
		require.Len(t, ids, 1, "Expected one passage id")

		result, err := g.Ask(ctx, "What is the capital of France?", scopes, model.DefaultQueryOptions())
		require.NoError(t, err)
		require.Len(t, result.PassagesUsed, 1, "Expected the indexed passage retrieved")
		assert.Equal(t, ids[0], result.PassagesUsed[0].PassageID, "Expected the indexed passage id")
		assert.Greater(t, result.Confidence.FinalScore, 0.30, "Expected a usable confidence with a cited passage")
	})

	t.Run("Failed generation is recorded in history", func(t *testing.T) {
		g := newTestGroundling(&scriptedLLM{generateErr: fmt.Errorf("model down")})

		result, err := g.Ask(ctx, "a question", scopes, model.DefaultQueryOptions())
		require.NoError(t, err, "Expected a result, not an error, for runtime failure")
		assert.True(t, result.HasWarning(model.WarningUnableToAnswer), "Expected the unable-to-answer warning")
		assert.Equal(t, 0.0, result.Confidence.FinalScore, "Expected zero confidence")

		recent := g.History.Recent(1)
		require.Len(t, recent, 1, "Expected the run recorded")
		assert.Equal(t, pipeline.StateFailed, recent[0].State, "Expected the run recorded as failed")
	})

	t.Run("Malformed options propagate", func(t *testing.T) {
		g := newTestGroundling(&scriptedLLM{answer: "ok"})

		_, err := g.Ask(ctx, "a question", scopes, model.QueryOptions{TopK: -1})
		require.Error(t, err, "Expected malformed options to propagate")
		var configErr *model.ConfigurationError
		assert.ErrorAs(t, err, &configErr, "Expected a ConfigurationError")
	})
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes indexed passages", func(t *testing.T) {
		g := newTestGroundling(&scriptedLLM{answer: "ok"})
		documentID := uuid.New()

		_, err := g.IndexPassages(ctx, model.ScopeGlobal, []PassageInput{
			{DocumentID: documentID, Text: "first passage"},
			{DocumentID: documentID, Text: "second passage"},
		})
		require.NoError(t, err)

		deleted, err := g.DeleteDocument(ctx, documentID)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted, "Expected both passages deleted")
	})
}
