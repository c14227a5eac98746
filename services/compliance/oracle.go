package compliance

import "context"

// Oracle is the external analysis backend used for compliance reviews.
// Analyze sends a system instruction plus a user prompt and returns the
// backend's textual analysis.
type Oracle interface {
	Name() string
	Analyze(ctx context.Context, systemPrompt, prompt string) (string, error)
}
