package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadManifest читает manifest.json каталога индекса
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrInvalidIndex, err)
	}
	return &m, nil
}

// Load читает манифест и все его шарды в порядке сборки
func Load(dir string) (*Manifest, []ChunkRecord, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	var records []ChunkRecord
	for _, name := range m.Files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read shard %s: %v", ErrInvalidIndex, name, err)
		}
		var shard []ChunkRecord
		if err := json.Unmarshal(data, &shard); err != nil {
			return nil, nil, fmt.Errorf("%w: decode shard %s: %v", ErrInvalidIndex, name, err)
		}
		records = append(records, shard...)
	}
	return m, records, nil
}

// Verify проверяет согласованность манифеста и шардов
func Verify(dir string) (*Manifest, error) {
	m, records, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if m.TotalChunks != len(records) {
		return m, fmt.Errorf("%w: manifest declares %d chunks, shards hold %d", ErrInvalidIndex, m.TotalChunks, len(records))
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return m, fmt.Errorf("%w: record without id", ErrInvalidIndex)
		}
		if _, dup := seen[r.ID]; dup {
			return m, fmt.Errorf("%w: %v: %s", ErrInvalidIndex, ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
		if len(r.Embedding) != m.EmbeddingDim {
			return m, fmt.Errorf("%w: %v: record %s has %d, manifest %d", ErrInvalidIndex, ErrDimMismatch, r.ID, len(r.Embedding), m.EmbeddingDim)
		}
	}
	return m, nil
}
