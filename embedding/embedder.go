package embedding

import (
	"context"
	"fmt"

	"github.com/averix/groundling/model"
)

// Gateway turns text into a fixed-length vector via a pluggable provider.
// Implementations must be safe for concurrent use by many pipeline runs.
type Gateway interface {
	Embed(ctx context.Context, text string, provider model.ProviderID) ([]float32, error)
}

// Embedder is a single provider implementation. Vectors from different
// providers are never mixed or compared, so each provider writes to its
// own index partition.
type Embedder interface {
	Provider() model.ProviderID
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Registry is a Gateway dispatching to registered providers.
type Registry struct {
	providers map[model.ProviderID]Embedder
}

// NewRegistry creates a registry over the given embedders.
func NewRegistry(embedders ...Embedder) *Registry {
	providers := make(map[model.ProviderID]Embedder, len(embedders))
	for _, e := range embedders {
		providers[e.Provider()] = e
	}
	return &Registry{providers: providers}
}

// Register adds or replaces a provider.
func (r *Registry) Register(e Embedder) {
	r.providers[e.Provider()] = e
}

// Embed generates an embedding with the named provider. Failures are
// reported as EmbeddingError.
func (r *Registry) Embed(ctx context.Context, text string, provider model.ProviderID) ([]float32, error) {
	e, ok := r.providers[provider]
	if !ok {
		return nil, &model.EmbeddingError{Provider: provider, Err: fmt.Errorf("no embedder registered")}
	}

	vector, err := e.Embed(ctx, text)
	if err != nil {
		return nil, &model.EmbeddingError{Provider: provider, Err: err}
	}
	if len(vector) == 0 {
		return nil, &model.EmbeddingError{Provider: provider, Err: fmt.Errorf("empty embedding returned")}
	}

	return vector, nil
}
