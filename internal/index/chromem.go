package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
)

const DefaultCollection = "kb"

var errPrecomputed = errors.New("embeddings are precomputed at build time")

// ExportChromem сохраняет записи в файл БД chromem (gob, gzip).
// Векторы уже посчитаны, embedding-функция коллекции не вызывается.
func ExportChromem(ctx context.Context, path, collection string, records []ChunkRecord, model string) error {
	if collection == "" {
		collection = DefaultCollection
	}
	db := chromem.NewDB()
	noEmbed := func(context.Context, string) ([]float32, error) { return nil, errPrecomputed }

	coll, err := db.CreateCollection(collection, map[string]string{"embedding_model": model}, noEmbed)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	if len(records) > 0 {
		docs := make([]chromem.Document, 0, len(records))
		for _, r := range records {
			docs = append(docs, chromem.Document{
				ID:        r.ID,
				Content:   r.Text,
				Embedding: r.Embedding,
				Metadata:  recordMetadata(r),
			})
		}
		if err := coll.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("add documents: %w", err)
		}
	}

	if err := db.ExportToFile(path, true, "", collection); err != nil {
		return fmt.Errorf("export chromem db: %w", err)
	}
	return nil
}

func recordMetadata(r ChunkRecord) map[string]string {
	md := map[string]string{
		"kind":    r.Kind,
		"license": r.License,
	}
	for k, v := range map[string]string{
		"pmid":      r.PMID,
		"videoId":   r.VideoID,
		"title":     r.Title,
		"sourceUrl": r.SourceURL,
	} {
		if v != "" {
			md[k] = v
		}
	}
	return md
}
