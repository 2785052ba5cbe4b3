package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"kbindex/internal/chunker"
	"kbindex/internal/config"
	"kbindex/internal/embedding"
	"kbindex/internal/source"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	normalizer *source.Normalizer
	primary    *chunker.Factory
	derived    *chunker.Factory
	provider   embedding.Provider
	dryRun     bool
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	roots := source.Roots{
		PapersMD:   cfg.Path(cfg.PapersMDDir),
		Papers:     cfg.Path(cfg.PapersDir),
		Notes:      cfg.Path(cfg.NotesDir),
		Videos:     cfg.Path(cfg.VideosDir),
		PaperIndex: cfg.Path(cfg.PaperIndex),
	}
	opts := source.Options{
		DefaultPaperLicense: cfg.DefaultPaperLicense,
		PDFFallback:         cfg.PDFFallback,
		PapersURL:           source.WebPath(cfg.Root, cfg.PapersDir),
		NotesURL:            source.WebPath(cfg.Root, cfg.NotesDir),
		VideosURL:           source.WebPath(cfg.Root, cfg.VideosDir),
	}

	method, err := chunker.ParseMethod(cfg.ChunkMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	app := &App{
		cfg:        cfg,
		logger:     logger,
		normalizer: source.NewNormalizer(roots, opts, logger),
		primary: chunker.NewFactory(chunker.Config{
			TargetChars:  cfg.ChunkSize,
			OverlapChars: cfg.ChunkOverlap,
		}, method),
		derived: chunker.NewFactory(chunker.Config{
			TargetChars:  cfg.DerivedChunkSize,
			OverlapChars: cfg.DerivedChunkOverlap,
		}, method),
	}

	return app, nil
}

// SetDryRun включает режим без эмбеддингов и записи индекса
func (a *App) SetDryRun(v bool) {
	a.dryRun = v
}

// SetProvider подменяет провайдера эмбеддингов
func (a *App) SetProvider(p embedding.Provider) {
	a.provider = p
}

// Init проверяет предусловия до начала работы: обязательные корни и ключи провайдера
func (a *App) Init(ctx context.Context) error {
	if err := source.CheckRoots(a.cfg.Roots(), a.cfg.RequiredRoots); err != nil {
		return err
	}
	if a.dryRun || a.provider != nil {
		return nil
	}

	p, err := embedding.NewProvider(ctx, embedding.ProviderConfig{
		Name:          a.cfg.EmbedProvider,
		Model:         a.cfg.EmbedModel,
		Dimensions:    a.cfg.EmbedDim,
		Timeout:       a.cfg.EmbedTimeout,
		OpenAIKey:     a.cfg.OpenAIKey,
		OpenAIBaseURL: a.cfg.OpenAIBaseURL,
		OllamaURL:     a.cfg.OllamaURL,
		GeminiKey:     a.cfg.GeminiKey,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}

	// Ollama: проверяем доступность и наличие модели
	if o, ok := p.(*embedding.Ollama); ok {
		if err := o.Ping(ctx); err != nil {
			return fmt.Errorf("ollama model check failed: %w", err)
		}
	}

	a.provider = p
	a.logger.Info("Embedding provider ready", "provider", a.cfg.EmbedProvider, "model", p.Model())
	return nil
}

func (a *App) Close() error {
	if c, ok := a.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
