// Package grounding verifies that an answer's factual claims are
// traceable to the retrieved passages. Claim extraction and per-claim
// classification are two separate model calls; classifications are
// independent of each other, which keeps the stage idempotent and lets
// the per-claim calls run concurrently under a bounded fan-out.
package grounding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/model"
)

const extractionSystemMessage = `You split an answer into atomic factual claims. ` +
	`Respond with a single JSON array of claim strings and nothing else. ` +
	`Skip hedges, opinions and meta statements; keep each claim self-contained.`

const classificationSystemMessage = `You check one claim against numbered source passages. ` +
	`Respond with a single JSON object {"verdict": "supported" | "partially_supported" | "unsupported", ` +
	`"source": N, "quote": "..."} and nothing else. The quote must be a verbatim excerpt of the ` +
	`supporting passage; use source 0 and an empty quote when unsupported.`

// maxFanOut bounds concurrent claim classifications to respect rate
// limits on the model gateway.
const maxFanOut = 4

// Verifier checks generated answers against their retrieved passages.
type Verifier struct {
	llm      gateway.LLM
	provider model.ProviderID
	log      *slog.Logger
}

// NewVerifier creates a grounding verifier.
func NewVerifier(llm gateway.LLM, provider model.ProviderID, logger *slog.Logger) *Verifier {
	return &Verifier{
		llm:      llm,
		provider: provider,
		log:      logger,
	}
}

type claimVerdict struct {
	claim   string
	verdict model.ClaimVerdict
	source  int
	quote   string
}

// Verify extracts the answer's claims and classifies each against the
// passage set. When extraction itself fails the result carries the
// explicit sentinel and score 0.0 alongside a VerificationError, so the
// caller can record a degraded stage without losing the run.
func (v *Verifier) Verify(ctx context.Context, answer *model.GeneratedAnswer, passages []*model.RetrievedPassage) (*model.GroundingResult, error) {
	claims, err := v.extractClaims(ctx, answer.Text)
	if err != nil {
		v.log.Warn("Claim extraction failed", slog.String("error", err.Error()))
		return &model.GroundingResult{
			Score:            0.0,
			VerifiedClaims:   []string{},
			UnverifiedClaims: []string{model.ExtractionFailedSentinel},
		}, &model.VerificationError{Err: err}
	}

	if len(claims) == 0 {
		return &model.GroundingResult{
			Score:            0.0,
			VerifiedClaims:   []string{},
			UnverifiedClaims: []string{},
		}, nil
	}

	verdicts := v.classifyAll(ctx, claims, passages)

	result := &model.GroundingResult{
		VerifiedClaims:   []string{},
		UnverifiedClaims: []string{},
	}
	supported := 0
	partial := 0
	for _, cv := range verdicts {
		switch cv.verdict {
		case model.ClaimSupported:
			supported++
			result.VerifiedClaims = append(result.VerifiedClaims, cv.claim)
			result.Evidence = append(result.Evidence, model.ClaimEvidence{
				Claim:     cv.claim,
				PassageID: passageID(passages, cv.source),
				Quote:     cv.quote,
			})
		case model.ClaimPartiallySupported:
			partial++
			result.VerifiedClaims = append(result.VerifiedClaims, cv.claim)
			if cv.quote != "" {
				result.Evidence = append(result.Evidence, model.ClaimEvidence{
					Claim:     cv.claim,
					PassageID: passageID(passages, cv.source),
					Quote:     cv.quote,
				})
			}
		default:
			result.UnverifiedClaims = append(result.UnverifiedClaims, cv.claim)
		}
	}

	result.Score = (float64(supported) + 0.5*float64(partial)) / float64(len(claims))
	return result, nil
}

// classifyAll dispatches per-claim classifications concurrently with a
// bounded fan-out, preserving claim order in the output.
func (v *Verifier) classifyAll(ctx context.Context, claims []string, passages []*model.RetrievedPassage) []claimVerdict {
	verdicts := make([]claimVerdict, len(claims))
	sem := make(chan struct{}, maxFanOut)
	var wg sync.WaitGroup

	for i, claim := range claims {
		wg.Add(1)
		go func(i int, claim string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			verdicts[i] = v.classify(ctx, claim, passages)
		}(i, claim)
	}
	wg.Wait()

	return verdicts
}

// classify checks one claim. A failed classification counts as
// unsupported rather than failing the whole stage.
func (v *Verifier) classify(ctx context.Context, claim string, passages []*model.RetrievedPassage) claimVerdict {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[Source %d]\n%s\n\n", i+1, strings.TrimSpace(p.Text))
	}
	fmt.Fprintf(&b, "Claim: %s", claim)

	resp, err := v.llm.Invoke(ctx, gateway.InvokeRequest{
		Prompt:        b.String(),
		SystemMessage: classificationSystemMessage,
		Provider:      v.provider,
		MaxTokens:     512,
		Temperature:   0.0,
	})
	if err != nil {
		v.log.Warn("Claim classification failed, counting claim as unsupported",
			slog.String("error", err.Error()))
		return claimVerdict{claim: claim, verdict: model.ClaimUnsupported}
	}

	var out struct {
		Verdict string `json:"verdict"`
		Source  int    `json:"source"`
		Quote   string `json:"quote"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &out); err != nil {
		v.log.Warn("Claim classification returned malformed JSON",
			slog.String("error", err.Error()))
		return claimVerdict{claim: claim, verdict: model.ClaimUnsupported}
	}

	verdict := model.ClaimVerdict(out.Verdict)
	switch verdict {
	case model.ClaimSupported, model.ClaimPartiallySupported, model.ClaimUnsupported:
	default:
		verdict = model.ClaimUnsupported
	}

	return claimVerdict{
		claim:   claim,
		verdict: verdict,
		source:  out.Source,
		quote:   out.Quote,
	}
}

func (v *Verifier) extractClaims(ctx context.Context, answerText string) ([]string, error) {
	resp, err := v.llm.Invoke(ctx, gateway.InvokeRequest{
		Prompt:        fmt.Sprintf("Answer:\n%s", answerText),
		SystemMessage: extractionSystemMessage,
		Provider:      v.provider,
		MaxTokens:     1024,
		Temperature:   0.0,
	})
	if err != nil {
		return nil, err
	}

	var claims []string
	if err := json.Unmarshal([]byte(extractJSONArray(resp.Text)), &claims); err != nil {
		return nil, fmt.Errorf("parse claim list: %w", err)
	}

	out := claims[:0]
	for _, c := range claims {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func passageID(passages []*model.RetrievedPassage, source int) uuid.UUID {
	if source < 1 || source > len(passages) {
		return uuid.Nil
	}
	return passages[source-1].PassageID
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
