// Package llm provides the dual-provider chat-completion client consumed
// by the synthesis engine (C9) and, through it, specialists that escalate
// to an LLM for finding synthesis (spec §6's "OpenAI-compatible chat
// completions" surface, and spec §9's note that a second Anthropic-native
// provider is offered behind the same interface).
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/charlieshreck/homelab-graph/internal/config"
)

// Request is one chat-completion call: a system prompt, a user prompt
// (typically the rendered findings/alert), and the decoding knobs spec §6
// names (temperature 0.2-0.3, max_tokens 500, forced JSON object output).
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Client is the provider-agnostic surface the synthesis engine calls.
// Complete must never panic; callers treat any returned error as "LLM
// unavailable this call" and fall back to rule-based synthesis (spec §7's
// "Triage LLM failure" row).
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds a Client from cfg.LLM. When cfg.LLM.Enabled() is false it
// returns a disabled client (no breaker) whose Complete always errors, so
// callers that skip the Enabled check still get a clean error instead of a
// nil dereference; otherwise the provider client is wrapped in a circuit
// breaker.
func New(cfg config.LLMConfig) Client {
	if !cfg.Enabled() {
		return disabledClient{}
	}
	var inner Client
	switch cfg.Provider {
	case "anthropic":
		inner = newAnthropicClient(cfg)
	default:
		inner = newOpenAICompatClient(cfg)
	}
	return &breakerClient{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm-" + cfg.Provider,
			MaxRequests: 1,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
	}
}

type disabledClient struct{}

func (disabledClient) Complete(ctx context.Context, req Request) (string, error) {
	return "", fmt.Errorf("llm: no provider configured")
}

// breakerClient wraps any Client with a circuit breaker (spec §9's "when
// the breaker is open or the call errors, synthesis falls through to the
// rule-based path").
type breakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

func (c *breakerClient) Complete(ctx context.Context, req Request) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// anthropicClient implements Client over the Anthropic Messages API.
type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropicClient(cfg config.LLMConfig) *anthropicClient {
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	return &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 500
	}
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}

// openAICompatClient implements Client over any OpenAI-compatible chat
// completions endpoint (a hosted provider or a local server), per spec
// §6's external interface.
type openAICompatClient struct {
	llm llms.Model
}

func newOpenAICompatClient(cfg config.LLMConfig) *openAICompatClient {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return &openAICompatClient{llm: nil}
	}
	return &openAICompatClient{llm: model}
}

func (c *openAICompatClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.llm == nil {
		return "", fmt.Errorf("llm: openai-compatible client failed to initialize")
	}
	temperature := float64(req.Temperature)
	if temperature == 0 {
		temperature = 0.2
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt),
	}
	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithJSONMode(),
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("openai-compatible generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai-compatible generate: empty response")
	}
	return resp.Choices[0].Content, nil
}
