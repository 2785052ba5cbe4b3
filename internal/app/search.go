package app

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"kbindex/internal/index"
)

// ProbeResult - результат поиска записи по её собственному вектору
type ProbeResult struct {
	ID         string
	TopID      string
	Similarity float32
}

// ProbeExport загружает экспорт chromem и ищет первые n записей по их же векторам.
// Для целой коллекции TopID совпадает с ID, кроме записей с одинаковым текстом.
func ProbeExport(ctx context.Context, path string, records []index.ChunkRecord, n int) ([]ProbeResult, error) {
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, "", index.DefaultCollection); err != nil {
		return nil, fmt.Errorf("failed to import DB: %w", err)
	}
	coll := db.GetCollection(index.DefaultCollection, nil)
	if coll == nil {
		return nil, fmt.Errorf("collection '%s' not found", index.DefaultCollection)
	}
	if coll.Count() != len(records) {
		return nil, fmt.Errorf("collection holds %d documents, index %d", coll.Count(), len(records))
	}

	n = min(n, len(records))
	results := make([]ProbeResult, 0, n)
	for _, r := range records[:n] {
		found, err := coll.QueryEmbedding(ctx, r.Embedding, 1, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		res := ProbeResult{ID: r.ID}
		if len(found) > 0 {
			res.TopID = found[0].ID
			res.Similarity = found[0].Similarity
		}
		results = append(results, res)
	}
	return results, nil
}
