package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// Temperature is the sampling temperature used for every call.
const Temperature = 0.7

// DefaultBaseURL is used when no endpoint is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// ErrStreamConsumed is yielded when a completion stream is iterated twice.
var ErrStreamConsumed = errors.New("completion stream already consumed")

// Compile-time interface check
var _ Completer = (*Gateway)(nil)

// ChatCompletionsService defines the interface for making chat completion API calls.
// This abstraction enables testing without calling the real API.
type ChatCompletionsService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
	NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// Config is the immutable gateway configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Gateway implements Completer against an OpenAI-compatible endpoint.
type Gateway struct {
	completions ChatCompletionsService
	model       string
	timeout     time.Duration
}

// NewGateway creates a gateway for the configured endpoint and model.
// The underlying client's retries are disabled.
func NewGateway(cfg Config) *Gateway {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(NormalizeBaseURL(cfg.BaseURL)+"/"),
		option.WithMaxRetries(0),
	)
	return &Gateway{
		completions: client.Chat.Completions,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
	}
}

// NormalizeBaseURL trims trailing slashes and falls back to DefaultBaseURL.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return DefaultBaseURL
	}
	return trimmed
}

// ModelName returns the configured model identifier.
func (g *Gateway) ModelName() string {
	return g.model
}

// Complete runs a single completion and returns the assistant text.
// In ModeJSON the endpoint is asked for a JSON object response.
func (g *Gateway) Complete(ctx context.Context, system string, conversation []Message, mode Mode) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var opts []option.RequestOption
	if mode == ModeJSON {
		opts = append(opts, option.WithJSONSet("response_format", map[string]string{"type": "json_object"}))
	}

	resp, err := g.completions.New(ctx, g.params(system, conversation), opts...)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion failed: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream runs a free-text completion and yields content increments.
// A transport failure is yielded as the final element.
func (g *Gateway) Stream(ctx context.Context, system string, conversation []Message) iter.Seq2[string, error] {
	var consumed atomic.Bool
	return func(yield func(string, error) bool) {
		if consumed.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}

		ctx, cancel := g.withTimeout(ctx)
		defer cancel()

		stream := g.completions.NewStreaming(ctx, g.params(system, conversation))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("completion stream failed: %w", err))
		}
	}
}

func (g *Gateway) params(system string, conversation []Message) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(conversation)+1)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range conversation {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Messages:    openai.F(messages),
		Model:       openai.F(openai.ChatModel(g.model)),
		Temperature: openai.F(Temperature),
	}
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Collect folds a text stream into a single string. It stops at the first error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for delta, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(delta)
	}
	return b.String(), nil
}
