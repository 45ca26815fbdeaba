package model

import "fmt"

// EmbeddingError reports a provider failure while embedding text.
type EmbeddingError struct {
	Provider ProviderID
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding via %s: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports that the vector index was unreachable or failed
// for one collection scope. A single failed scope does not abort retrieval
// as long as another scope succeeds.
type RetrievalError struct {
	Scope CollectionScope
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval in scope %s: %v", e.Scope, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError reports that the language model invocation failed after
// exhausting all retries.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// VerificationError reports a grounding claim-check failure.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("claim verification: %v", e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// ConfigurationError indicates malformed options, a programming mistake
// rather than a runtime condition. It is the only error class that
// propagates out of the orchestrator.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Field, e.Reason)
}
