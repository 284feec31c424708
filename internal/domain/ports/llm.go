// Package ports defines interfaces for external service communication.
package ports

import "context"

// LLMClient defines the interface for LLM operations.
type LLMClient interface {
	// Answer replies to a question about a family, given a plain-text
	// summary of the tree as context.
	Answer(ctx context.Context, question, familyContext string) (string, error)
}
