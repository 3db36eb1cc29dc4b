// Package responder provides the gateway to the reply-generating
// backend. The conversation service treats any error from it the same
// way: the turn completes with a fallback reply instead of failing.
package responder

import "context"

// Responder produces a reply for the latest user message.
// Implementations may block for the duration of generation; callers
// bound the call with a context timeout. Single attempt, no retries.
type Responder interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
