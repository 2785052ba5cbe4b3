package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownChunker убирает markdown-разметку и дальше работает как TextChunker.
// Каждый блок верхнего уровня (заголовок, параграф, список, код) становится параграфом.
type MarkdownChunker struct {
	text *TextChunker
}

// NewMarkdownChunker создаёт новый markdown chunker
func NewMarkdownChunker(config Config) *MarkdownChunker {
	return &MarkdownChunker{text: NewTextChunker(config)}
}

func (m *MarkdownChunker) Name() string {
	return "markdown"
}

func (m *MarkdownChunker) Chunk(content string) []Chunk {
	return m.text.Chunk(PlainText(content))
}

// PlainText рендерит markdown в простой текст, блоки разделены пустой строкой
func PlainText(content string) string {
	source := []byte(NormalizeNewlines(content))
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := strings.TrimSpace(extractText(n, source)); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, paragraphSep)
}

// extractText извлекает текст из блока AST, вложенные блоки идут с новой строки
func extractText(node ast.Node, source []byte) string {
	var buf strings.Builder

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			if entering {
				lines := v.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				buf.Write(v.Segment.Value(source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(v.Value)
			}
		default:
			if !entering && n != node && n.Type() == ast.TypeBlock && !strings.HasSuffix(buf.String(), "\n") {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}
