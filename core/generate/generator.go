// Package generate builds grounded prompts from retrieved passages and
// invokes the language model to produce a cited answer.
package generate

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/model"
)

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// citationPattern matches the fixed inline citation marker format.
var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// Generator produces cited answers from retrieved passages.
type Generator struct {
	llm       gateway.LLM
	provider  model.ProviderID
	maxTokens int
	log       *slog.Logger
}

// NewGenerator creates an answer generator.
func NewGenerator(llm gateway.LLM, provider model.ProviderID, logger *slog.Logger) *Generator {
	return &Generator{
		llm:       llm,
		provider:  provider,
		maxTokens: 2048,
		log:       logger,
	}
}

// Generate invokes the model with a grounded prompt, retrying transient
// failures up to 3 times with exponential backoff. With no passages a
// distinct no-context prompt is used and the answer always carries zero
// citations. After exhausting retries it fails with GenerationError.
func (g *Generator) Generate(ctx context.Context, query string, passages []*model.RetrievedPassage, detail model.DetailLevel) (*model.GeneratedAnswer, error) {
	req := gateway.InvokeRequest{
		Provider:    g.provider,
		MaxTokens:   g.maxTokens,
		Temperature: 0.2,
	}
	if len(passages) == 0 {
		req.Prompt = buildNoContextPrompt(query, detail)
		req.SystemMessage = noContextSystemMessage
	} else {
		req.Prompt = buildGroundedPrompt(query, passages, detail)
		req.SystemMessage = groundedSystemMessage
	}

	var resp *gateway.InvokeResponse
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err = g.llm.Invoke(ctx, req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, &model.GenerationError{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt < maxAttempts {
			delay := baseBackoff << (attempt - 1)
			g.log.Warn("Model invocation failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.String("error", err.Error()))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &model.GenerationError{Attempts: attempt, Err: ctx.Err()}
			}
		}
	}
	if err != nil {
		return nil, &model.GenerationError{Attempts: maxAttempts, Err: err}
	}

	answer := &model.GeneratedAnswer{
		Text: resp.Text,
		TokenUsage: model.TokenUsage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
		},
	}
	// A context-free answer never carries citations, whatever the model
	// emitted; that zero is the downstream low-confidence signal.
	if len(passages) > 0 {
		answer.Citations = parseCitations(resp.Text, passages)
	}
	return answer, nil
}

// parseCitations extracts [Source N] markers in order of occurrence,
// one citation per distinct source, dropping out-of-range numbers.
func parseCitations(text string, passages []*model.RetrievedPassage) []model.Citation {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool, len(matches))
	var citations []model.Citation
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(passages) || seen[n] {
			continue
		}
		seen[n] = true
		citations = append(citations, model.Citation{
			SourceIndex: n,
			PassageID:   passages[n-1].PassageID,
		})
	}
	return citations
}
