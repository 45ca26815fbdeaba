package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/averix/groundling"
	"github.com/averix/groundling/config"
	"github.com/averix/groundling/helper"
	"github.com/averix/groundling/model"
)

// Runs the full pipeline against a throwaway pgvector container with
// local ONNX embeddings. Requires OPENAI_API_KEY (or a compatible
// endpoint via config.yaml) for the generation stages.
func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_PORT", dbPort)
	os.Setenv("DB_DATABASE", "database")
	os.Setenv("DB_USERNAME", "user")
	os.Setenv("DB_PASSWORD", "password")
	os.Setenv("DB_SCHEMA", "public")
	os.Setenv("DB_SSLMODE", "disable")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Index.Type = "postgres"
	if cfg.LLM.OpenAI == nil {
		cfg.LLM.OpenAI = &config.OpenAIClientConfig{}
	}

	g, err := groundling.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create groundling: %v", err)
	}
	defer g.Close()

	ctx := context.Background()
	documentID := uuid.New()

	fmt.Println("Indexing passages...")
	_, err = g.IndexPassages(ctx, model.ScopeGlobal, []groundling.PassageInput{
		{
			DocumentID: documentID,
			Text: "Retrieval-augmented generation grounds model answers in retrieved documents. " +
				"The retriever finds passages similar to the question and the generator cites them.",
			Section:  "Concepts",
			Keywords: []string{"retrieval", "generation", "grounding"},
			Topics:   []string{"rag"},
		},
		{
			DocumentID: documentID,
			Text: "Confidence scoring combines retrieval similarity, citation coverage, query quality " +
				"and answer length into a single calibrated score between zero and one.",
			Section:  "Scoring",
			Keywords: []string{"confidence", "scoring", "similarity"},
			Topics:   []string{"rag"},
		},
	})
	if err != nil {
		log.Fatalf("Failed to index passages: %v", err)
	}

	opts := model.DefaultQueryOptions()
	opts.IncludeGrounding = true
	opts.DetailLevel = model.DetailDetailed

	query := "How does retrieval-augmented generation keep answers grounded?"
	fmt.Printf("\nAsking: %s\n", query)

	result, err := g.Ask(ctx, query, []model.CollectionScope{model.ScopeGlobal}, opts)
	if err != nil {
		log.Fatalf("Failed to run pipeline: %v", err)
	}

	fmt.Printf("\nAnswer: %s\n", result.AnswerText)
	fmt.Printf("Confidence: %.2f\n", result.Confidence.FinalScore)
	if result.Grounding != nil {
		fmt.Printf("Grounding: %.2f (%d verified, %d unverified)\n",
			result.Grounding.Score, len(result.Grounding.VerifiedClaims), len(result.Grounding.UnverifiedClaims))
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	fmt.Println("\nExecution log:")
	for _, rec := range result.ExecutionLog {
		fmt.Printf("  %-9s %-9s %s\n", rec.StageName, rec.Status, rec.Reasoning)
	}
}
