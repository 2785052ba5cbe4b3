package chunker

import (
	"regexp"
	"strings"
)

// Пустая строка (возможно с пробелами) между параграфами
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// NormalizeNewlines приводит \r\n и \r к \n
func NormalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// GetLastNChars возвращает последние N символов строки для overlap
func GetLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

// TruncateChars обрезает строку до N символов
func TruncateChars(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// SplitByParagraphs разбивает текст на параграфы по пустым строкам
func SplitByParagraphs(text string) []string {
	paragraphs := paragraphBreak.Split(text, -1)
	var result []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// finalize обрезает пробелы, ограничивает длину и нумерует чанки
func finalize(texts []string, hardCap int) []Chunk {
	chunks := make([]Chunk, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(TruncateChars(strings.TrimSpace(t), hardCap))
		if t == "" {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: t})
	}
	return chunks
}
