package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/philippgille/chromem-go"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
)

// Ollama - локальный провайдер через embedding-функцию chromem.
// Ollama принимает один текст на вызов, батч обходится последовательно.
type Ollama struct {
	baseURL string
	model   string
	embed   chromem.EmbeddingFunc
	client  *http.Client
	logger  *slog.Logger
}

func NewOllama(baseURL, model string, logger *slog.Logger) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		embed:   chromem.NewEmbeddingFuncOllama(model, baseURL+"/api"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger,
	}
}

func (o *Ollama) Model() string {
	return o.model
}

func (o *Ollama) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, t := range texts {
		v, err := o.embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("ollama: text %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Ping проверяет, что Ollama запущена, и скачивает модель, если её нет
func (o *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not running or not reachable at %s: %w", o.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama is not reachable at %s: status %d", o.baseURL, resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("ollama: decode tags: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == o.model || strings.TrimSuffix(m.Name, ":latest") == o.model {
			o.logger.Info("Model is available", "model", o.model)
			return nil
		}
	}

	o.logger.Info("Model not found, pulling...", "model", o.model)
	return o.pull(ctx)
}

func (o *Ollama) pull(ctx context.Context) error {
	b, err := json.Marshal(struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}{Name: o.model, Stream: false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/pull", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("ollama: create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Скачивание модели может идти дольше обычного таймаута
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to pull model %s: %w", o.model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to pull model %s: status %d: %s", o.model, resp.StatusCode, string(body))
	}
	o.logger.Info("Model pulled successfully", "model", o.model)
	return nil
}
