package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// PaperMeta - запись библиографического индекса
type PaperMeta struct {
	PMID      looseString `json:"pmid"`
	Title     string      `json:"title"`
	License   string      `json:"license"`
	PDFURL    string      `json:"pdf_url"`
	LocalPath string      `json:"local_path"`
	Source    string      `json:"source"`
}

// PaperIndex - метаданные статей по PMID
type PaperIndex map[string]PaperMeta

// LoadPaperIndex читает index.json вида {"papers": [...]}.
// Отсутствующий файл даёт пустой индекс без ошибки.
func LoadPaperIndex(path string) (PaperIndex, error) {
	idx := PaperIndex{}
	if path == "" {
		return idx, nil
	}
	data, err := readBytes(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	} else if err != nil {
		return idx, fmt.Errorf("read paper index: %w", err)
	}

	var doc struct {
		Papers []PaperMeta `json:"papers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return idx, fmt.Errorf("decode paper index: %w", err)
	}
	for _, p := range doc.Papers {
		if p.PMID == "" {
			continue
		}
		idx[string(p.PMID)] = p
	}
	return idx, nil
}

// looseString принимает и строку, и число
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = looseString(n.String())
	return nil
}
