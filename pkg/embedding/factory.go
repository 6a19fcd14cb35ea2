package embedding

import "fmt"

type Config struct {
	Provider      string // "ollama", "openai" or "gemini"
	Model         string
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIKey     string
	GeminiKey     string
}

func NewProvider(cfg Config) (EmbeddingProvider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires OPENAI_API_KEY")
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires GOOGLE_GEMINI_API_KEY")
		}
		return NewGeminiProvider(cfg.GeminiKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
