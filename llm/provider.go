// Package llm provides model access for prompt-driven object generation.
package llm

import "context"

// Provider generates a JSON object for a prompt. Implementations must
// return a body that unmarshals into the caller's expected shape.
type Provider interface {
	GenerateObject(ctx context.Context, prompt string, temperature float32) ([]byte, error)
}
