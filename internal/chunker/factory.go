package chunker

import (
	"fmt"
	"strings"
)

// Method - способ подготовки текста перед нарезкой
type Method string

const (
	MethodText     Method = "text"
	MethodMarkdown Method = "markdown"
)

// ParseMethod разбирает CHUNK_METHOD, пустое значение означает text
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "":
		return MethodText, nil
	case "markdown", "md":
		return MethodMarkdown, nil
	default:
		return "", fmt.Errorf("unknown chunking method: %s", s)
	}
}

// Factory хранит бюджет нарезки и выдаёт chunker нужного метода
type Factory struct {
	config Config
	method Method
}

func NewFactory(config Config, method Method) *Factory {
	return &Factory{config: config, method: method}
}

func (f *Factory) Config() Config { return f.config }

func (f *Factory) Chunker() Chunker {
	if f.method == MethodMarkdown {
		return NewMarkdownChunker(f.config)
	}
	return NewTextChunker(f.config)
}
