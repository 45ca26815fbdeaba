// Package analyze extracts lightweight metadata from the raw query and
// scores its well-formedness. The stage fails soft: retrieval can always
// proceed as pure vector search with an empty profile.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/model"
)

const extractionSystemMessage = `You extract search metadata from user questions. ` +
	`Respond with a single JSON object of the form ` +
	`{"keywords": ["..."], "topics": ["..."]} and nothing else. ` +
	`Keywords are the concrete terms worth matching literally; topics are ` +
	`broader subject areas. Lowercase everything, at most 8 of each.`

// Analyzer builds a QueryProfile per incoming query.
type Analyzer struct {
	llm      gateway.LLM
	provider model.ProviderID
	weights  QualityWeights
	log      *slog.Logger
}

// NewAnalyzer creates an analyzer using the given language model gateway.
func NewAnalyzer(llm gateway.LLM, provider model.ProviderID, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		llm:      llm,
		provider: provider,
		weights:  DefaultQualityWeights(),
		log:      logger,
	}
}

// Analyze extracts keywords and topics and scores query quality. The
// returned profile is always usable; the error, when non-nil, only
// signals that metadata extraction degraded to empty sets.
func (a *Analyzer) Analyze(ctx context.Context, query string) (*model.QueryProfile, error) {
	profile := &model.QueryProfile{
		RawQuery:     query,
		QualityScore: qualityScore(query, a.weights),
	}

	keywords, topics, err := a.extract(ctx, query)
	if err != nil {
		a.log.Warn("Query metadata extraction failed, continuing with empty profile",
			slog.String("error", err.Error()))
		return profile, err
	}

	profile.Keywords = keywords
	profile.Topics = topics
	return profile, nil
}

func (a *Analyzer) extract(ctx context.Context, query string) ([]string, []string, error) {
	resp, err := a.llm.Invoke(ctx, gateway.InvokeRequest{
		Prompt:        fmt.Sprintf("Question: %s", query),
		SystemMessage: extractionSystemMessage,
		Provider:      a.provider,
		MaxTokens:     256,
		Temperature:   0.0,
	})
	if err != nil {
		return nil, nil, err
	}

	var out struct {
		Keywords []string `json:"keywords"`
		Topics   []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &out); err != nil {
		return nil, nil, fmt.Errorf("parse extraction response: %w", err)
	}

	return dedupeLower(out.Keywords), dedupeLower(out.Topics), nil
}

// extractJSONObject tolerates models that wrap the JSON in prose or
// markdown fences.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func dedupeLower(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
