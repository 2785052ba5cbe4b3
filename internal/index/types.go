package index

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch = errors.New("records and embeddings length mismatch")
	ErrDimMismatch    = errors.New("embedding dimension mismatch")
	ErrDuplicateID    = errors.New("duplicate chunk id")
	ErrInvalidIndex   = errors.New("invalid index")
)

const (
	ManifestFile   = "manifest.json"
	DefaultVersion = "1.0"
)

// ChunkRecord - единица хранения: текст чанка, его происхождение и вектор
type ChunkRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Kind      string    `json:"kind"`
	License   string    `json:"license"`
	PMID      string    `json:"pmid,omitempty"`
	VideoID   string    `json:"videoId,omitempty"`
	Title     string    `json:"title,omitempty"`
	SourceURL string    `json:"sourceUrl,omitempty"`
}

// Manifest пишется последним и является признаком завершённой сборки
type Manifest struct {
	Version        string   `json:"version"`
	CreatedAt      int64    `json:"created_at"`
	EmbeddingModel string   `json:"embedding_model"`
	EmbeddingDim   int      `json:"embedding_dim"`
	TotalChunks    int      `json:"total_chunks"`
	Files          []string `json:"files"`
}

// ShardName возвращает имя файла шарда по номеру
func ShardName(i int) string {
	return fmt.Sprintf("chunks-%03d.json", i)
}

// Assemble склеивает записи с векторами по позиции.
// expectedDim=0 означает: размерность берётся из первого вектора.
func Assemble(records []ChunkRecord, embeddings [][]float32, expectedDim int) ([]ChunkRecord, int, error) {
	if len(records) != len(embeddings) {
		return nil, 0, fmt.Errorf("%w: %d records, %d embeddings", ErrLengthMismatch, len(records), len(embeddings))
	}

	dim := expectedDim
	seen := make(map[string]struct{}, len(records))
	out := make([]ChunkRecord, len(records))
	for i, r := range records {
		if _, dup := seen[r.ID]; dup {
			return nil, 0, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}

		vec := embeddings[i]
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, 0, fmt.Errorf("%w: record %s has %d, want %d", ErrDimMismatch, r.ID, len(vec), dim)
		}
		r.Embedding = vec
		out[i] = r
	}
	return out, dim, nil
}
