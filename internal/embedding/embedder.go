package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMissingCredentials = errors.New("embedding provider credentials are missing")
	ErrCountMismatch      = errors.New("embedding count mismatch")
	ErrEmptyResponse      = errors.New("embedding provider returned no vectors")
)

const (
	DefaultBatchSize  = 96
	DefaultBatchDelay = 200 * time.Millisecond
)

// Provider - внешний сервис эмбеддингов, один запрос на батч
type Provider interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Embedder режет тексты на батчи и вызывает провайдера последовательно,
// сохраняя порядок. Повторов нет: любая ошибка батча фатальна.
type Embedder struct {
	provider  Provider
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewEmbedder(p Provider, batchSize int, delay time.Duration, logger *slog.Logger) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Embedder{
		provider:  p,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

func (e *Embedder) Model() string {
	return e.provider.Model()
}

// Embed возвращает по вектору на каждый текст, в том же порядке
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	total := (len(texts) + e.batchSize - 1) / e.batchSize

	for start, n := 0, 1; start < len(texts); start, n = start+e.batchSize, n+1 {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vecs, err := e.provider.BatchEmbed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", n, total, err)
		}
		if len(vecs) == 0 {
			return nil, fmt.Errorf("batch %d/%d: %w", n, total, ErrEmptyResponse)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("batch %d/%d: %w: sent %d texts, got %d vectors", n, total, ErrCountMismatch, len(batch), len(vecs))
		}
		for i, v := range vecs {
			if len(v) == 0 {
				return nil, fmt.Errorf("batch %d/%d: %w: empty vector at %d", n, total, ErrEmptyResponse, start+i)
			}
		}

		out = append(out, vecs...)
		e.logger.Debug("Batch embedded", "batch", n, "of", total, "size", len(batch))
	}
	return out, nil
}
