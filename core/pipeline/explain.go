package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/averix/groundling/gateway"
	"github.com/averix/groundling/model"
)

const explainSystemMessage = `You summarize how an answer pipeline arrived at its result ` +
	`for a non-technical reader. Two or three sentences, plain language, no JSON.`

// Explainer produces the human-readable run summary. With an LLM it
// narrates the stage records; without one, or when the model fails, it
// falls back to a templated summary built from the same records.
type Explainer struct {
	llm      gateway.LLM
	provider model.ProviderID
	log      *slog.Logger
}

// NewExplainer creates an explainer. llm may be nil, in which case every
// explanation is templated.
func NewExplainer(llm gateway.LLM, provider model.ProviderID, logger *slog.Logger) *Explainer {
	return &Explainer{
		llm:      llm,
		provider: provider,
		log:      logger,
	}
}

// Explain summarizes the run. The second return reports whether the
// explanation degraded to the template.
func (e *Explainer) Explain(ctx context.Context, r *run) (string, bool) {
	if e.llm == nil {
		return templateExplanation(r), false
	}

	resp, err := e.llm.Invoke(ctx, gateway.InvokeRequest{
		Prompt:        explainPrompt(r),
		SystemMessage: explainSystemMessage,
		Provider:      e.provider,
		MaxTokens:     256,
		Temperature:   0.3,
	})
	if err != nil {
		e.log.Warn("Explanation generation failed, using templated summary",
			slog.String("error", err.Error()))
		return templateExplanation(r), true
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return templateExplanation(r), true
	}
	return text, false
}

func explainPrompt(r *run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nStage log:\n", r.query)
	for _, rec := range r.log {
		fmt.Fprintf(&b, "- %s: %s", rec.StageName, rec.Status)
		if rec.Reasoning != "" {
			fmt.Fprintf(&b, " (%s)", rec.Reasoning)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nFinal confidence: %.2f\n", r.breakdown.FinalScore)
	return b.String()
}

// templateExplanation builds the fallback summary from the run state
// alone. It must work for every run shape, including degraded ones.
func templateExplanation(r *run) string {
	var b strings.Builder
	if len(r.passages) == 0 {
		b.WriteString("No matching passages were found, so the answer was generated without supporting context. ")
	} else {
		fmt.Fprintf(&b, "The answer was generated from %d retrieved passages", len(r.passages))
		if r.answer != nil && len(r.answer.Citations) > 0 {
			fmt.Fprintf(&b, " and cites %d of them", len(r.answer.Citations))
		}
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "Overall confidence is %.2f.", r.breakdown.FinalScore)
	if r.breakdown.LowConfidence {
		b.WriteString(" Confidence is low; treat the answer with caution.")
	}
	if r.grounding != nil {
		fmt.Fprintf(&b, " Claim verification scored %.2f.", r.grounding.Score)
	}
	return b.String()
}

// failureExplanation is the terminal summary for a FAILED run. It is
// attached to the result directly and emits no stage record.
func failureExplanation(r *run) string {
	return fmt.Sprintf("The pipeline could not produce an answer: generation failed after %d stages completed. "+
		"No answer content is available for this question.", len(r.log)-1)
}
