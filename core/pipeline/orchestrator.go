package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/averix/groundling/model"
)

// weakGroundingThreshold marks grounding scores that warrant the
// "claims not well supported" result marker.
const weakGroundingThreshold = 0.5

// failedAnswerText is returned when generation exhausts its retries and
// the run has no usable answer at all.
const failedAnswerText = "I'm sorry, I was unable to produce an answer to this question. " +
	"Please try again, or rephrase the question."

// Analyzer profiles the incoming query. Implementations should return a
// usable fallback profile alongside any error; the orchestrator records
// the error as a degraded stage and keeps the profile.
type Analyzer interface {
	Analyze(ctx context.Context, query string) (*model.QueryProfile, error)
}

// Retriever fetches calibrated passages for the query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, profile *model.QueryProfile, scopes []model.CollectionScope, opts model.QueryOptions) ([]*model.RetrievedPassage, error)
}

// Generator produces a cited answer from the passages.
type Generator interface {
	Generate(ctx context.Context, query string, passages []*model.RetrievedPassage, detail model.DetailLevel) (*model.GeneratedAnswer, error)
}

// Scorer computes the confidence breakdown. Pure, never fails.
type Scorer interface {
	Score(passages []*model.RetrievedPassage, answer *model.GeneratedAnswer, profile *model.QueryProfile) model.ConfidenceBreakdown
}

// Verifier checks the answer's claims against the passages.
type Verifier interface {
	Verify(ctx context.Context, answer *model.GeneratedAnswer, passages []*model.RetrievedPassage) (*model.GroundingResult, error)
}

// Orchestrator runs the stage machine. One Orchestrator serves many
// concurrent queries; all per-query state lives in the run.
type Orchestrator struct {
	analyzer  Analyzer
	retriever Retriever
	generator Generator
	scorer    Scorer
	verifier  Verifier
	explainer *Explainer
	log       *slog.Logger
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(analyzer Analyzer, retriever Retriever, generator Generator, scorer Scorer, verifier Verifier, explainer *Explainer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		analyzer:  analyzer,
		retriever: retriever,
		generator: generator,
		scorer:    scorer,
		verifier:  verifier,
		explainer: explainer,
		log:       logger,
	}
}

// Run executes one query through the pipeline. It returns an error only
// for malformed options; every runtime condition, including a failed
// generation, yields a PipelineResult carrying the partial execution log.
func (o *Orchestrator) Run(ctx context.Context, query string, scopes []model.CollectionScope, opts model.QueryOptions) (*model.PipelineResult, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	r := &run{
		query:   query,
		scopes:  scopes,
		opts:    opts,
		state:   StateStart,
		started: time.Now(),
	}
	o.log.Info("Pipeline run started",
		slog.String("query", query),
		slog.Int("scopes", len(scopes)),
		slog.Int("top_k", opts.TopK),
		slog.Bool("grounding", opts.IncludeGrounding))

	o.analyze(ctx, r)
	o.retrieve(ctx, r)
	if !o.generate(ctx, r) {
		return o.failedResult(r), nil
	}
	o.score(r)
	if opts.IncludeGrounding {
		o.ground(ctx, r)
	}
	o.explain(ctx, r)

	r.state = StateDone
	result := o.assemble(r)
	o.log.Info("Pipeline run finished",
		slog.String("state", string(r.state)),
		slog.Float64("final_score", result.Confidence.FinalScore),
		slog.Duration("duration", time.Since(r.started)))
	return result, nil
}

// analyze profiles the query. A failed profile extraction degrades the
// stage; a missing profile is replaced with a minimal one so the rest
// of the run never guards against nil.
func (o *Orchestrator) analyze(ctx context.Context, r *run) {
	start := time.Now()
	profile, err := o.analyzer.Analyze(ctx, r.query)
	if profile == nil {
		profile = &model.QueryProfile{RawQuery: r.query}
	}
	r.profile = profile

	rec := model.StageExecutionRecord{
		StageName:  StageAnalyze,
		Status:     model.StageSuccess,
		Duration:   time.Since(start),
		Confidence: floatPtr(profile.QualityScore),
		Reasoning: fmt.Sprintf("extracted %d keywords and %d topics, query quality %.2f",
			len(profile.Keywords), len(profile.Topics), profile.QualityScore),
	}
	if err != nil {
		rec.Status = model.StageDegraded
		rec.Error = err.Error()
		rec.Reasoning = "profile extraction failed, continuing with heuristic profile"
	}
	r.record(StateAnalyzed, rec)
}

// retrieve fetches passages. A total retrieval failure degrades to an
// empty passage set; the run continues with a context-free answer.
func (o *Orchestrator) retrieve(ctx context.Context, r *run) {
	start := time.Now()
	passages, err := o.retriever.Retrieve(ctx, r.query, r.profile, r.scopes, r.opts)
	r.passages = passages

	rec := model.StageExecutionRecord{
		StageName: StageRetrieve,
		Status:    model.StageSuccess,
		Duration:  time.Since(start),
		Reasoning: fmt.Sprintf("retrieved %d passages across %d scopes", len(passages), len(r.scopes)),
	}
	if len(passages) > 0 {
		rec.Confidence = floatPtr(passages[0].Similarity)
	}
	if err != nil {
		r.passages = nil
		rec.Status = model.StageDegraded
		rec.Error = err.Error()
		rec.Reasoning = "retrieval failed, continuing without passages"
	}
	r.record(StateRetrieved, rec)
}

// generate produces the answer. It is the one stage without a degraded
// fallback; retry exhaustion sends the run to FAILED. Returns whether
// the run may continue.
func (o *Orchestrator) generate(ctx context.Context, r *run) bool {
	start := time.Now()
	answer, err := o.generator.Generate(ctx, r.query, r.passages, r.opts.DetailLevel)
	if err != nil {
		r.record(StateFailed, model.StageExecutionRecord{
			StageName: StageGenerate,
			Status:    model.StageFailed,
			Duration:  time.Since(start),
			Error:     err.Error(),
			Reasoning: "model invocation exhausted retries, no usable answer",
		})
		o.log.Error("Pipeline run failed at generation", slog.String("error", err.Error()))
		return false
	}

	r.answer = answer
	r.record(StateGenerated, model.StageExecutionRecord{
		StageName: StageGenerate,
		Status:    model.StageSuccess,
		Duration:  time.Since(start),
		Reasoning: fmt.Sprintf("generated answer with %d citations, %d completion tokens",
			len(answer.Citations), answer.TokenUsage.CompletionTokens),
	})
	return true
}

func (o *Orchestrator) score(r *run) {
	start := time.Now()
	r.breakdown = o.scorer.Score(r.passages, r.answer, r.profile)
	r.record(StateScored, model.StageExecutionRecord{
		StageName:  StageScore,
		Status:     model.StageSuccess,
		Duration:   time.Since(start),
		Confidence: floatPtr(r.breakdown.FinalScore),
		Reasoning: fmt.Sprintf("confidence %.2f (similarity %.2f, citation %.2f, quality %.2f, length %.2f)",
			r.breakdown.FinalScore, r.breakdown.SimilarityComponent, r.breakdown.CitationComponent,
			r.breakdown.QueryQualityComponent, r.breakdown.LengthComponent),
	})
}

// ground runs claim verification. An extraction failure degrades the
// stage; the sentinel result is still attached to the run.
func (o *Orchestrator) ground(ctx context.Context, r *run) {
	start := time.Now()
	grounding, err := o.verifier.Verify(ctx, r.answer, r.passages)
	r.grounding = grounding

	rec := model.StageExecutionRecord{
		StageName: StageGround,
		Status:    model.StageSuccess,
		Duration:  time.Since(start),
	}
	if grounding != nil {
		rec.Confidence = floatPtr(grounding.Score)
		rec.Reasoning = fmt.Sprintf("verified %d of %d claims, grounding score %.2f",
			len(grounding.VerifiedClaims), len(grounding.VerifiedClaims)+len(grounding.UnverifiedClaims), grounding.Score)
	}
	if err != nil {
		rec.Status = model.StageDegraded
		rec.Error = err.Error()
		rec.Reasoning = "claim extraction failed, grounding score unavailable"
	}
	r.record(StateGrounded, rec)
}

// explain summarizes the run. It never fails the pipeline; a model
// failure degrades to the templated explanation.
func (o *Orchestrator) explain(ctx context.Context, r *run) {
	start := time.Now()
	explanation, degraded := o.explainer.Explain(ctx, r)
	r.explanation = explanation

	rec := model.StageExecutionRecord{
		StageName: StageExplain,
		Status:    model.StageSuccess,
		Duration:  time.Since(start),
		Reasoning: "summarized run for the caller",
	}
	if degraded {
		rec.Status = model.StageDegraded
		rec.Reasoning = "explanation model unavailable, used templated summary"
	}
	r.record(StateExplained, rec)
}

// assemble builds the final bundle for a run that reached DONE.
func (o *Orchestrator) assemble(r *run) *model.PipelineResult {
	result := &model.PipelineResult{
		AnswerText:   r.answer.Text,
		Confidence:   r.breakdown,
		Grounding:    r.grounding,
		PassagesUsed: r.passages,
		ExecutionLog: r.log,
		Explanation:  r.explanation,
	}
	if r.breakdown.LowConfidence {
		result.Warnings = append(result.Warnings, model.WarningLowConfidence)
	}
	if r.grounding != nil && r.grounding.Score < weakGroundingThreshold {
		result.Warnings = append(result.Warnings, model.WarningWeakGrounding)
	}
	return result
}

// failedResult builds the terminal bundle for a FAILED run: apologetic
// answer text, zero confidence and the partial execution log. Later
// stages emit no records, but the caller still gets a short explanation.
func (o *Orchestrator) failedResult(r *run) *model.PipelineResult {
	return &model.PipelineResult{
		AnswerText: failedAnswerText,
		Confidence: model.ConfidenceBreakdown{
			FinalScore:    0.0,
			LowConfidence: true,
		},
		PassagesUsed: r.passages,
		ExecutionLog: r.log,
		Explanation:  failureExplanation(r),
		Warnings:     []string{model.WarningUnableToAnswer, model.WarningLowConfidence},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
