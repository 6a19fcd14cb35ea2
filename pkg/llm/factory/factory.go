package factory

import (
	"fmt"

	"ai-quiz-generator-be/pkg/llm"
	"ai-quiz-generator-be/pkg/llm/ollama"
	"ai-quiz-generator-be/pkg/llm/openai"
)

type Config struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIKey     string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
