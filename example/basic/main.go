package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/averix/groundling"
	"github.com/averix/groundling/embedding"
	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/model"
	"github.com/averix/groundling/vectorindex"
)

// stubEmbedder maps token sets onto a small deterministic vector so the
// example runs without any model runtime. Texts sharing words land close
// together, which is all the retrieval demo needs.
type stubEmbedder struct{}

func (stubEmbedder) Provider() model.ProviderID { return model.ProviderLocal }
func (stubEmbedder) Dimension() int             { return 64 }

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, 64)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,?!")))
		vector[h.Sum32()%64] += 1
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

// stubLLM answers the pipeline's prompts with canned responses keyed on
// the system message, standing in for a real chat completions endpoint.
type stubLLM struct{}

func (stubLLM) Invoke(ctx context.Context, req gateway.InvokeRequest) (*gateway.InvokeResponse, error) {
	var text string
	switch {
	case strings.Contains(req.SystemMessage, "search metadata"):
		text = `{"keywords": ["pgvector", "similarity", "search"], "topics": ["databases"]}`
	case strings.Contains(req.SystemMessage, "atomic factual claims"):
		text = `["pgvector stores embeddings in PostgreSQL", "pgvector supports approximate nearest-neighbor search"]`
	case strings.Contains(req.SystemMessage, "one claim against"):
		text = `{"verdict": "supported", "source": 1, "quote": "pgvector adds vector similarity search to PostgreSQL"}`
	case strings.Contains(req.SystemMessage, "summarize"):
		text = "The answer was assembled from the two most similar passages in the corpus."
	default:
		text = "pgvector adds vector columns and similarity search to PostgreSQL [Source 1], " +
			"including approximate indexes for large collections [Source 2]."
	}
	return &gateway.InvokeResponse{Text: text, PromptTokens: 50, CompletionTokens: 30}, nil
}

func main() {
	g := groundling.NewWithComponents(
		vectorindex.NewMemoryIndex(),
		embedding.NewRegistry(stubEmbedder{}),
		stubLLM{},
		model.ProviderLocal,
		nil,
	)

	ctx := context.Background()
	documentID := uuid.New()

	fmt.Println("Indexing passages...")
	_, err := g.IndexPassages(ctx, model.ScopeGlobal, []groundling.PassageInput{
		{
			DocumentID: documentID,
			Text:       "pgvector adds vector similarity search to PostgreSQL with a dedicated column type.",
			Section:    "Overview",
			Keywords:   []string{"pgvector", "similarity"},
			Topics:     []string{"databases"},
		},
		{
			DocumentID: documentID,
			Text:       "HNSW and IVFFlat indexes let pgvector answer approximate nearest-neighbor queries on large collections.",
			Section:    "Indexing",
			Keywords:   []string{"hnsw", "ivfflat", "index"},
			Topics:     []string{"databases"},
		},
	})
	if err != nil {
		log.Fatalf("Failed to index passages: %v", err)
	}

	opts := model.DefaultQueryOptions()
	opts.IncludeGrounding = true

	query := "How does pgvector do similarity search?"
	fmt.Printf("\nAsking: %s\n", query)

	result, err := g.Ask(ctx, query, []model.CollectionScope{model.ScopeGlobal}, opts)
	if err != nil {
		log.Fatalf("Failed to run pipeline: %v", err)
	}

	fmt.Printf("\nAnswer: %s\n", result.AnswerText)
	fmt.Printf("Confidence: %.2f (low confidence: %v)\n", result.Confidence.FinalScore, result.Confidence.LowConfidence)
	if result.Grounding != nil {
		fmt.Printf("Grounding score: %.2f\n", result.Grounding.Score)
	}
	fmt.Printf("Passages used: %d\n", len(result.PassagesUsed))

	fmt.Println("\nExecution log:")
	for _, rec := range result.ExecutionLog {
		fmt.Printf("  %-9s %-9s %s\n", rec.StageName, rec.Status, rec.Reasoning)
	}
	fmt.Printf("\nExplanation: %s\n", result.Explanation)
}
