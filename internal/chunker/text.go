package chunker

import (
	"strings"
	"unicode/utf8"
)

// Разделитель параграфов внутри чанка
const paragraphSep = "\n\n"

// TextChunker жадно набирает параграфы в чанк до TargetChars,
// следующий чанк начинается с хвоста предыдущего
type TextChunker struct {
	config Config
}

// NewTextChunker создаёт новый paragraph chunker
func NewTextChunker(config Config) *TextChunker {
	return &TextChunker{config: config}
}

func (s *TextChunker) Name() string {
	return "text"
}

// Config возвращает параметры chunker'а
func (s *TextChunker) Config() Config {
	return s.config
}

func (s *TextChunker) Chunk(content string) []Chunk {
	paragraphs := SplitByParagraphs(NormalizeNewlines(content))
	return finalize(s.pack(paragraphs), s.config.HardCap())
}

// pack набирает параграфы в буфер; счётчик учитывает 2 символа разделителя на параграф.
// Параграф больше TargetChars не режется и становится отдельным чанком.
func (s *TextChunker) pack(paragraphs []string) []string {
	var chunks []string
	var buf []string
	curr := 0

	for _, para := range paragraphs {
		n := utf8.RuneCountInString(para)

		// Параграф помещается в текущий чанк
		if curr+n+2 <= s.config.TargetChars {
			buf = append(buf, para)
			curr += n + 2
			continue
		}

		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, paragraphSep))
		}

		// Новый буфер начинается с хвоста только что сброшенного чанка
		if s.config.OverlapChars > 0 && len(chunks) > 0 {
			tail := GetLastNChars(chunks[len(chunks)-1], s.config.OverlapChars)
			buf = []string{tail, para}
			curr = utf8.RuneCountInString(tail) + n + 2
		} else {
			buf = []string{para}
			curr = n
		}
	}

	// Последний чанк
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, paragraphSep))
	}

	return chunks
}
