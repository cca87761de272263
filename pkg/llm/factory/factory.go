package factory

import (
	"fmt"

	"nyan-bot/pkg/llm"
	"nyan-bot/pkg/llm/anthropic"
	"nyan-bot/pkg/llm/huggingface"
	"nyan-bot/pkg/llm/ollama"
)

const (
	ProviderAnthropic   = "anthropic"
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
)

type Settings struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case ProviderAnthropic, "":
		if s.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return anthropic.NewAnthropicProvider(s.APIKey, s.BaseURL, s.Model, s.MaxTokens), nil
	case ProviderOllama:
		if s.Model == "" {
			return nil, fmt.Errorf("ollama provider requires a model name")
		}
		return ollama.NewOllamaProvider(s.BaseURL, s.Model, s.MaxTokens), nil
	case ProviderHuggingFace:
		if s.Model == "" {
			return nil, fmt.Errorf("huggingface provider requires a model name")
		}
		return huggingface.NewHuggingFaceProvider(s.APIKey, s.BaseURL, s.Model, s.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
