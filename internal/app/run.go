package app

import (
	"context"
	"fmt"
	"time"

	"kbindex/internal/index"
	"kbindex/internal/source"
)

// Result - итог одной сборки
type Result struct {
	Manifest  *index.Manifest
	Counts    map[source.Kind]int
	Records   int
	Issues    []source.Issue
	ChromemDB string
	DryRun    bool
	OutputDir string
	Duration  time.Duration
}

// Run выполняет полную пересборку: обход источников, чанкинг, эмбеддинги, запись индекса.
// При любой фатальной ошибке манифест не пишется.
func (a *App) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if !a.dryRun && a.provider == nil {
		return nil, fmt.Errorf("app is not initialized: no embedding provider")
	}

	corpus, err := a.normalizer.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect sources: %w", err)
	}

	records, err := a.chunkCorpus(corpus)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Counts:    countKinds(records),
		Records:   len(records),
		Issues:    corpus.Issues,
		DryRun:    a.dryRun,
		OutputDir: a.outputDir(),
	}

	if a.dryRun {
		res.Duration = time.Since(start)
		a.logSummary(res)
		return res, nil
	}

	m, assembled, err := a.indexRecords(ctx, records)
	if err != nil {
		return nil, err
	}
	res.Manifest = m

	res.ChromemDB, err = a.exportChromem(ctx, assembled, m.EmbeddingModel)
	if err != nil {
		// Основной индекс уже записан и согласован, экспорт вторичен
		a.logger.Warn("⚠️  Chromem export failed", "error", err)
	}

	res.Duration = time.Since(start)
	a.logSummary(res)
	return res, nil
}

func countKinds(records []index.ChunkRecord) map[source.Kind]int {
	counts := map[source.Kind]int{}
	for _, r := range records {
		counts[source.Kind(r.Kind)]++
	}
	return counts
}

func (a *App) logSummary(res *Result) {
	a.logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if res.DryRun {
		a.logger.Info("📊 Dry run summary (nothing written)")
	} else {
		a.logger.Info("📊 KB index built", "dir", res.OutputDir)
	}
	a.logger.Info("   Chunks",
		"total", res.Records,
		"paper", res.Counts[source.KindPaper],
		"note", res.Counts[source.KindNote],
		"video_note", res.Counts[source.KindVideoNote],
		"video_claim", res.Counts[source.KindVideoClaim],
	)
	if res.Manifest != nil {
		a.logger.Info("   Manifest",
			"model", res.Manifest.EmbeddingModel,
			"dim", res.Manifest.EmbeddingDim,
			"files", len(res.Manifest.Files),
		)
	}
	if res.ChromemDB != "" {
		a.logger.Info("   💾 Chromem DB", "path", res.ChromemDB)
	}
	if len(res.Issues) > 0 {
		a.logger.Warn("   ❌ Skipped sources", "count", len(res.Issues))
		for _, is := range res.Issues {
			a.logger.Warn("      " + is.String())
		}
	}
	a.logger.Info("   ⏱  Took", "duration", res.Duration.Round(time.Millisecond))
	a.logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}
