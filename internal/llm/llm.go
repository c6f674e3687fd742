// Package llm abstracts the chat-completion providers used for email
// drafting, research summaries, and résumé parsing.
package llm

import (
	"context"

	"github.com/go-faster/errors"
)

var ErrEmptyResponse = errors.New("llm returned empty response")

// Request is a single-turn completion. Temperature 0 means provider
// default; MaxTokens 0 means no explicit cap.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to the Client interface, mostly for tests.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
