package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

// Имена корней источников для REQUIRE_ROOTS
const (
	RootPapersMD = "papers_md"
	RootPapers   = "papers"
	RootNotes    = "notes"
	RootVideos   = "videos"
)

type Config struct {
	Root          string   `env:"KB_ROOT" envDefault:"."`
	PapersMDDir   string   `env:"PAPERS_MD_DIR" envDefault:"public/papers_md"`
	PapersDir     string   `env:"PAPERS_DIR" envDefault:"public/papers"`
	NotesDir      string   `env:"NOTES_DIR" envDefault:"docs/papers_notes"`
	VideosDir     string   `env:"VIDEOS_DIR" envDefault:"docs/videos"`
	PaperIndex    string   `env:"PAPER_INDEX" envDefault:"public/papers/index.json"`
	OutputDir     string   `env:"OUTPUT_DIR" envDefault:"public/kb_index"`
	RequiredRoots []string `env:"REQUIRE_ROOTS" envSeparator:","`

	ChunkSize           int    `env:"CHUNK_SIZE" envDefault:"1200"`
	ChunkOverlap        int    `env:"CHUNK_OVERLAP" envDefault:"200"`
	DerivedChunkSize    int    `env:"DERIVED_CHUNK_SIZE" envDefault:"1000"`
	DerivedChunkOverlap int    `env:"DERIVED_CHUNK_OVERLAP" envDefault:"120"`
	ChunkMethod         string `env:"CHUNK_METHOD" envDefault:"text"`

	EmbedProvider   string        `env:"EMBED_PROVIDER" envDefault:"openai"`
	EmbedModel      string        `env:"EMBED_MODEL"`
	EmbedDim        int           `env:"EMBED_DIM" envDefault:"0"`
	EmbedBatchSize  int           `env:"EMBED_BATCH_SIZE" envDefault:"96"`
	EmbedBatchDelay time.Duration `env:"EMBED_BATCH_DELAY" envDefault:"200ms"`
	EmbedTimeout    time.Duration `env:"EMBED_TIMEOUT" envDefault:"60s"`
	OpenAIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OllamaURL       string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	GeminiKey       string        `env:"GEMINI_API_KEY"`

	IndexVersion        string `env:"INDEX_VERSION" envDefault:"1.0"`
	ShardSize           int    `env:"SHARD_SIZE" envDefault:"0"`
	ChromemExport       string `env:"CHROMEM_EXPORT"`
	DefaultPaperLicense string `env:"DEFAULT_PAPER_LICENSE" envDefault:"cc by"`
	ClaimIDStrategy     string `env:"CLAIM_ID_STRATEGY" envDefault:"position"`
	PDFFallback         bool   `env:"PDF_FALLBACK" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Init(cfg interface{}) error {
	return env.Parse(cfg)
}

// Load читает конфиг из окружения и проверяет его
func Load() (*Config, error) {
	var cfg Config
	if err := Init(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("%w: KB_ROOT", ErrMissingRequired)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: OUTPUT_DIR", ErrMissingRequired)
	}
	if c.ChunkSize <= 0 || c.DerivedChunkSize <= 0 {
		return fmt.Errorf("%w: chunk sizes must be positive", ErrInvalid)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalid)
	}
	if c.DerivedChunkOverlap < 0 || c.DerivedChunkOverlap >= c.DerivedChunkSize {
		return fmt.Errorf("%w: DERIVED_CHUNK_OVERLAP must be in [0, DERIVED_CHUNK_SIZE)", ErrInvalid)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive", ErrInvalid)
	}
	if c.EmbedDim < 0 || c.ShardSize < 0 {
		return fmt.Errorf("%w: EMBED_DIM and SHARD_SIZE must not be negative", ErrInvalid)
	}
	switch c.ClaimIDStrategy {
	case "position", "content":
	default:
		return fmt.Errorf("%w: CLAIM_ID_STRATEGY %q", ErrInvalid, c.ClaimIDStrategy)
	}
	for _, r := range c.RequiredRoots {
		switch strings.TrimSpace(r) {
		case RootPapersMD, RootPapers, RootNotes, RootVideos:
		default:
			return fmt.Errorf("%w: unknown root %q in REQUIRE_ROOTS", ErrInvalid, r)
		}
	}
	return nil
}

// Path разрешает путь относительно KB_ROOT
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Roots возвращает абсолютные пути корней источников по именам
func (c *Config) Roots() map[string]string {
	return map[string]string{
		RootPapersMD: c.Path(c.PapersMDDir),
		RootPapers:   c.Path(c.PapersDir),
		RootNotes:    c.Path(c.NotesDir),
		RootVideos:   c.Path(c.VideosDir),
	}
}

// Level разбирает LOG_LEVEL, неизвестное значение даёт info
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
