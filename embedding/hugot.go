package embedding

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/averix/groundling/helper"
	"github.com/averix/groundling/model"
)

const (
	localModelName = "sentence-transformers/all-MiniLM-L6-v2"
	localDimension = 384
)

// LocalEmbedder generates embeddings with a local sentence transformer
// model. Uses all-MiniLM-L6-v2 which produces 384-dimensional vectors.
type LocalEmbedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

// NewLocalEmbedder downloads the model if needed and initializes a hugot
// session with the Go backend.
func NewLocalEmbedder() (*LocalEmbedder, error) {
	modelPath, err := helper.PrepareModel(localModelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &LocalEmbedder{
		session:  session,
		pipeline: sentencePipeline,
	}, nil
}

// Provider returns the provider identifier for local embeddings.
func (e *LocalEmbedder) Provider() model.ProviderID { return model.ProviderLocal }

// Dimension returns the embedding dimensionality.
func (e *LocalEmbedder) Dimension() int { return localDimension }

// Embed generates an embedding for the text.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}

	return result.Embeddings[0], nil
}

// Close destroys the hugot session.
func (e *LocalEmbedder) Close() error {
	return e.session.Destroy()
}
