package app

import (
	"context"
	"fmt"
	"path/filepath"

	"kbindex/internal/embedding"
	"kbindex/internal/index"
)

// indexRecords считает эмбеддинги, собирает записи и пишет шарды и манифест
func (a *App) indexRecords(ctx context.Context, records []index.ChunkRecord) (*index.Manifest, []index.ChunkRecord, error) {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	embedder := embedding.NewEmbedder(a.provider, a.cfg.EmbedBatchSize, a.cfg.EmbedBatchDelay, a.logger)
	a.logger.Info("🧮 Embedding chunks", "chunks", len(texts), "model", embedder.Model(), "batch_size", a.cfg.EmbedBatchSize)
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed: %w", err)
	}

	assembled, dim, err := index.Assemble(records, vecs, a.cfg.EmbedDim)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: %w", err)
	}

	w := index.NewWriter(a.outputDir(), index.WriterOptions{
		Version:        a.cfg.IndexVersion,
		EmbeddingModel: embedder.Model(),
		ShardSize:      a.cfg.ShardSize,
	}, a.logger)
	m, err := w.Write(assembled, dim)
	if err != nil {
		return nil, nil, fmt.Errorf("write index: %w", err)
	}
	return m, assembled, nil
}

// exportChromem дополнительно сохраняет индекс как коллекцию chromem
func (a *App) exportChromem(ctx context.Context, records []index.ChunkRecord, model string) (string, error) {
	if a.cfg.ChromemExport == "" {
		return "", nil
	}
	path := a.cfg.Path(a.cfg.ChromemExport)
	if err := index.ExportChromem(ctx, path, index.DefaultCollection, records, model); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) outputDir() string {
	return filepath.Clean(a.cfg.Path(a.cfg.OutputDir))
}
