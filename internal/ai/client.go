// Package ai provides the model transports behind the engine's Writer and
// Checker calls: an Anthropic Messages client, an OpenAI-compatible client,
// and a deterministic mock for tests and offline play. The engine talks to
// the Client interface only; provider selection happens at wiring time.
package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PromptKind selects which configured model serves a request.
type PromptKind string

const (
	KindWriter  PromptKind = "writer"
	KindChecker PromptKind = "checker"
)

// Request is a single model call.
type Request struct {
	Kind      PromptKind
	System    string
	User      string
	MaxTokens int
	// JSONMode asks the provider for a JSON-only completion where the API
	// supports it. Providers without native support rely on the prompt.
	JSONMode bool
}

// Client is the transport behind the AI phases of a turn. Generate blocks
// until the full completion is available. GenerateStream delivers text
// chunks through recv as they arrive and returns the concatenated text;
// the returned text must equal what a Generate call would have produced.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request, recv func(chunk string)) (string, error)
}

// Options carries the provider wiring shared by the HTTP transports.
type Options struct {
	APIKey       string
	BaseURL      string // empty: provider default
	WriterModel  string
	CheckerModel string
	MaxTokens    int // default cap when a request does not set one
}

func (o Options) model(kind PromptKind) string {
	if kind == KindChecker {
		return o.CheckerModel
	}
	return o.WriterModel
}

func (o Options) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return 1024
}

// New builds a Client for the named provider: "mock", "anthropic" or
// "openai".
func New(provider string, opts Options, log *zap.Logger) (Client, error) {
	switch provider {
	case "mock", "":
		return NewMock(), nil
	case "anthropic":
		return NewAnthropic(opts, log), nil
	case "openai":
		return NewOpenAI(opts, log), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", provider)
	}
}
