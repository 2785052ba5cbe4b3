package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type WriterOptions struct {
	Version        string
	EmbeddingModel string
	// ShardSize=0 пишет все записи в один шард
	ShardSize int
}

// Writer пишет шарды, затем манифест. Старый манифест удаляется первым,
// поэтому прерванная сборка не оставляет манифест на чужие шарды.
type Writer struct {
	dir    string
	opts   WriterOptions
	now    func() time.Time
	logger *slog.Logger
}

func NewWriter(dir string, opts WriterOptions, logger *slog.Logger) *Writer {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, opts: opts, now: time.Now, logger: logger}
}

func (w *Writer) Write(records []ChunkRecord, dim int) (*Manifest, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	manifestPath := filepath.Join(w.dir, ManifestFile)
	if err := os.Remove(manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove old manifest: %w", err)
	}

	shards := partition(records, w.opts.ShardSize)
	files := make([]string, 0, len(shards))
	for i, shard := range shards {
		name := ShardName(i)
		if err := writeJSON(filepath.Join(w.dir, name), shard, false); err != nil {
			return nil, fmt.Errorf("write shard %s: %w", name, err)
		}
		files = append(files, name)
		w.logger.Debug("Shard written", "file", name, "records", len(shard))
	}

	if err := w.removeStale(files); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:        w.opts.Version,
		CreatedAt:      w.now().Unix(),
		EmbeddingModel: w.opts.EmbeddingModel,
		EmbeddingDim:   dim,
		TotalChunks:    len(records),
		Files:          files,
	}
	if err := writeJSON(manifestPath, m, true); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// removeStale удаляет шарды прошлых сборок, которых нет в новом манифесте
func (w *Writer) removeStale(keep []string) error {
	matches, err := filepath.Glob(filepath.Join(w.dir, "chunks-*.json"))
	if err != nil {
		return err
	}
	kept := make(map[string]bool, len(keep))
	for _, f := range keep {
		kept[f] = true
	}
	for _, m := range matches {
		if kept[filepath.Base(m)] {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale shard: %w", err)
		}
		w.logger.Debug("Stale shard removed", "file", filepath.Base(m))
	}
	return nil
}

func partition(records []ChunkRecord, size int) [][]ChunkRecord {
	if records == nil {
		records = []ChunkRecord{}
	}
	if size <= 0 || len(records) <= size {
		return [][]ChunkRecord{records}
	}
	var out [][]ChunkRecord
	for start := 0; start < len(records); start += size {
		out = append(out, records[start:min(start+size, len(records))])
	}
	return out
}

// writeJSON пишет во временный файл и переименовывает его
func writeJSON(path string, v any, indent bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
