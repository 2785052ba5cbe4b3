package app

import (
	"fmt"

	"kbindex/internal/chunker"
	"kbindex/internal/index"
	"kbindex/internal/source"
)

// chunkCorpus превращает корпус в плоский список записей без векторов.
// Порядок: документы в порядке корпуса, затем утверждения.
func (a *App) chunkCorpus(corpus *source.Corpus) ([]index.ChunkRecord, error) {
	var records []index.ChunkRecord
	seen := map[string]bool{}

	add := func(r index.ChunkRecord, path string) {
		if seen[r.ID] {
			a.logger.Warn("⚠️  Duplicate chunk id, skipping", "id", r.ID, "path", path)
			corpus.Issues = append(corpus.Issues, source.Issue{Path: path, Err: fmt.Errorf("duplicate chunk id %s", r.ID)})
			return
		}
		seen[r.ID] = true
		records = append(records, r)
	}

	for _, doc := range corpus.Documents {
		chunkr := a.chunkerFor(doc)
		chunks := chunkr.Chunk(doc.Body)
		if len(chunks) == 0 {
			a.logger.Debug("Document has no text", "path", doc.Path)
			continue
		}
		a.logger.Debug("📦 Document split", "id", doc.NaturalKey, "kind", doc.Kind, "chunks", len(chunks), "chunker", chunkr.Name())

		for _, ch := range chunks {
			add(index.ChunkRecord{
				ID:        doc.ChunkID(ch.Index),
				Text:      ch.Text,
				Kind:      string(doc.Kind),
				License:   doc.License,
				PMID:      doc.PMID,
				VideoID:   doc.VideoID,
				Title:     doc.Title,
				SourceURL: doc.SourceURL,
			}, doc.Path)
		}
	}

	strategy := source.ClaimIDStrategy(a.cfg.ClaimIDStrategy)
	for _, c := range corpus.Claims {
		add(index.ChunkRecord{
			ID:        c.RecordID(strategy, len(records)),
			Text:      c.Text,
			Kind:      string(source.KindVideoClaim),
			License:   source.LicenseDerived,
			VideoID:   c.VideoID,
			Title:     c.Title,
			SourceURL: c.SourceURL,
		}, c.Path)
	}

	return records, nil
}

// chunkerFor: статьи режутся основным бюджетом, производные тексты - укороченным
func (a *App) chunkerFor(doc source.Document) chunker.Chunker {
	if doc.Kind == source.KindPaper {
		return a.primary.Chunker()
	}
	return a.derived.Chunker()
}
