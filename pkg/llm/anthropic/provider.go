package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nyan-bot/pkg/llm"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-3-sonnet-20240229"
	DefaultMaxTokens = 1000
)

type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// Ensure AnthropicProvider implements LLMProvider
var _ llm.LLMProvider = &AnthropicProvider{}

// NewAnthropicProvider builds a Messages API client. An empty baseURL keeps the SDK default.
func NewAnthropicProvider(apiKey, baseURL, model string, maxTokens int) *AnthropicProvider {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(120 * time.Second),
		// the sequencer turns a failed call into the fallback answer, retrying would hold the slot
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{
		Model:     p.model,
		MaxTokens: p.maxTokens,
	}, options...)

	// system turns travel in their own field
	system := opts.SystemPrompt
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case llm.RoleAssistant, "model":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content (stop_reason %q)", string(resp.StopReason))
	}

	return sb.String(), nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
