// Package gateway provides the opaque language model invocation interface
// the pipeline stages call. The vendor wire protocol is not part of the
// pipeline's contract; any OpenAI-compatible endpoint will do.
package gateway

import (
	"context"

	"github.com/averix/groundling/model"
)

// InvokeRequest is one prompt sent to the language model.
type InvokeRequest struct {
	Prompt        string
	SystemMessage string
	Provider      model.ProviderID
	MaxTokens     int
	Temperature   float64
}

// InvokeResponse carries the model output and token accounting.
type InvokeResponse struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// LLM abstracts language model invocation for testability. Implementations
// must be stateless per call and safe for concurrent use by many pipeline
// runs.
type LLM interface {
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResponse, error)
}
