package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProviderConfig - настройки всех провайдеров, используется только выбранный
type ProviderConfig struct {
	Name          string
	Model         string
	Dimensions    int
	Timeout       time.Duration
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaURL     string
	GeminiKey     string
}

// NewProvider создаёт провайдера по имени. Отсутствие ключа проверяется
// здесь, до любого сетевого вызова.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Name) {
	case "openai", "":
		p, err := NewOpenAI(OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, logger), nil
	case "gemini":
		p, err := NewGemini(ctx, cfg.GeminiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Name)
	}
}
