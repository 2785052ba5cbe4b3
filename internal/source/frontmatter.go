package source

import "strings"

const fmDelim = "---"

// ParseFrontMatter отделяет заголовок `key: value` от тела.
// Без закрывающего разделителя весь текст считается телом, ok=false.
func ParseFrontMatter(md string) (meta map[string]string, body string, ok bool) {
	meta = map[string]string{}
	if !strings.HasPrefix(md, fmDelim) {
		return meta, md, false
	}
	end := strings.Index(md[len(fmDelim):], "\n"+fmDelim)
	if end < 0 {
		return meta, md, false
	}
	end += len(fmDelim)

	header := strings.TrimSpace(md[len(fmDelim):end])
	body = strings.TrimLeft(md[end+len("\n"+fmDelim):], "\n")

	for _, line := range strings.Split(header, "\n") {
		k, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		meta[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return meta, body, true
}
