package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Roots - каталоги и файлы источников
type Roots struct {
	PapersMD   string
	Papers     string
	Notes      string
	Videos     string
	PaperIndex string
}

type Options struct {
	DefaultPaperLicense string
	PDFFallback         bool

	// Веб-префиксы для sourceUrl
	PapersURL string
	NotesURL  string
	VideosURL string
}

type Normalizer struct {
	roots  Roots
	opts   Options
	logger *slog.Logger
}

func NewNormalizer(roots Roots, opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{roots: roots, opts: opts, logger: logger}
}

// CheckRoots проверяет, что обязательные корни существуют и являются каталогами
func CheckRoots(roots map[string]string, required []string) error {
	for _, name := range required {
		name = strings.TrimSpace(name)
		dir, ok := roots[name]
		if !ok {
			return fmt.Errorf("%w: unknown root %q", ErrMissingRoot, name)
		}
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %s (%s): %v", ErrMissingRoot, name, dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s (%s) is not a directory", ErrMissingRoot, name, dir)
		}
	}
	return nil
}

// Collect обходит все источники: статьи, конспекты, заметки и утверждения к видео.
// Ошибка возвращается только при отмене контекста.
func (n *Normalizer) Collect(ctx context.Context) (*Corpus, error) {
	c := &Corpus{}

	idx, err := LoadPaperIndex(n.roots.PaperIndex)
	if err != nil {
		n.skip(c, n.roots.PaperIndex, err)
	}

	if err := n.collectPapers(ctx, c, idx); err != nil {
		return nil, err
	}
	if err := n.collectNotes(ctx, c, idx); err != nil {
		return nil, err
	}
	if err := n.collectVideos(ctx, c); err != nil {
		return nil, err
	}

	n.logger.Info("📚 Sources collected",
		"papers", c.Count(KindPaper),
		"notes", c.Count(KindNote),
		"video_notes", c.Count(KindVideoNote),
		"video_claims", c.Count(KindVideoClaim),
		"issues", len(c.Issues),
	)
	return c, nil
}

func (n *Normalizer) collectPapers(ctx context.Context, c *Corpus, idx PaperIndex) error {
	files, err := listFiles(n.roots.PapersMD, ".md")
	if err != nil {
		n.skip(c, n.roots.PapersMD, err)
	}

	seen := map[string]bool{}
	var docs []Document
	for _, fp := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		pmid := stem(fp)
		text, err := readText(fp)
		if err != nil {
			n.skip(c, fp, err)
			continue
		}
		fm, body := n.frontMatter(fp, text)
		meta := idx[pmid]
		docs = append(docs, Document{
			Kind:       KindPaper,
			NaturalKey: "PMID:" + pmid,
			PMID:       pmid,
			Title:      firstNonEmpty(fm["title"], meta.Title),
			License:    normLicense(fm["license"], meta.License, n.opts.DefaultPaperLicense),
			SourceURL:  n.paperURL(pmid, meta),
			Body:       body,
			Path:       fp,
		})
		seen[pmid] = true
	}

	if n.opts.PDFFallback {
		pdfs, err := listFiles(n.roots.Papers, ".pdf")
		if err != nil {
			n.skip(c, n.roots.Papers, err)
		}
		for _, fp := range pdfs {
			if err := ctx.Err(); err != nil {
				return err
			}
			pmid := stem(fp)
			if seen[pmid] {
				continue
			}
			body, err := readPDF(fp)
			if err != nil {
				n.skip(c, fp, err)
				continue
			}
			meta := idx[pmid]
			n.logger.Debug("Paper text taken from PDF", "pmid", pmid)
			docs = append(docs, Document{
				Kind:       KindPaper,
				NaturalKey: "PMID:" + pmid,
				PMID:       pmid,
				Title:      meta.Title,
				License:    normLicense(meta.License, n.opts.DefaultPaperLicense),
				SourceURL:  n.paperURL(pmid, meta),
				Body:       body,
				Path:       fp,
			})
		}
	}

	sortDocuments(docs)
	c.Documents = append(c.Documents, n.dedupDocuments(c, docs)...)
	return nil
}

func (n *Normalizer) collectNotes(ctx context.Context, c *Corpus, idx PaperIndex) error {
	files, err := listFiles(n.roots.Notes, ".md")
	if err != nil {
		n.skip(c, n.roots.Notes, err)
	}

	var docs []Document
	for _, fp := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		pmid := stem(fp)
		text, err := readText(fp)
		if err != nil {
			n.skip(c, fp, err)
			continue
		}
		fm, body := n.frontMatter(fp, text)
		docs = append(docs, Document{
			Kind:       KindNote,
			NaturalKey: "PMID:" + pmid,
			PMID:       pmid,
			Title:      firstNonEmpty(fm["title"], idx[pmid].Title),
			License:    LicenseDerived,
			SourceURL:  path.Join(n.opts.NotesURL, filepath.Base(fp)),
			Body:       body,
			Path:       fp,
		})
	}

	sortDocuments(docs)
	c.Documents = append(c.Documents, n.dedupDocuments(c, docs)...)
	return nil
}

// paperURL: локальный PDF, затем pdf_url и source из индекса
func (n *Normalizer) paperURL(pmid string, meta PaperMeta) string {
	if n.roots.Papers != "" {
		if info, err := os.Stat(filepath.Join(n.roots.Papers, pmid+".pdf")); err == nil && !info.IsDir() {
			return path.Join(n.opts.PapersURL, pmid+".pdf")
		}
	}
	return firstNonEmpty(meta.PDFURL, meta.Source)
}

func (n *Normalizer) frontMatter(fp, text string) (map[string]string, string) {
	fm, body, ok := ParseFrontMatter(text)
	if !ok && strings.HasPrefix(text, fmDelim) {
		n.logger.Warn("⚠️  Unterminated front matter, using whole text as body", "path", fp)
	}
	return fm, body
}

func (n *Normalizer) skip(c *Corpus, path string, err error) {
	n.logger.Warn("⚠️  Skipping source", "path", path, "error", err)
	c.issue(path, err)
}

// WebPath превращает каталог источника в веб-путь от корня базы.
// Абсолютный каталог вне root сводится к "/"+имя каталога.
func WebPath(root, dir string) string {
	if dir == "" {
		return "/"
	}
	if !filepath.IsAbs(dir) {
		return path.Join("/", filepath.ToSlash(filepath.Clean(dir)))
	}
	if absRoot, err := filepath.Abs(root); err == nil && root != "" {
		rel, err := filepath.Rel(absRoot, dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return path.Join("/", filepath.ToSlash(rel))
		}
	}
	return "/" + filepath.Base(dir)
}

// listFiles возвращает файлы каталога с расширением ext, отсутствие каталога не ошибка
func listFiles(dir, ext string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func readText(fp string) (string, error) {
	b, err := readBytes(fp)
	return string(b), err
}

// readBytes читает файл, выбрасывая невалидные UTF-8 байты до разбора JSON
func readBytes(fp string) ([]byte, error) {
	b, err := os.ReadFile(fp)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(b) {
		return b, nil
	}
	return bytes.ToValidUTF8(b, nil), nil
}

func stem(fp string) string {
	base := filepath.Base(fp)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].NaturalKey < docs[j].NaturalKey
	})
}

// dedupDocuments оставляет первый документ на каждый ключ (7.MD раньше 7.md), остальные уходят в issues
func (n *Normalizer) dedupDocuments(c *Corpus, docs []Document) []Document {
	out := docs[:0]
	seen := map[string]string{}
	for _, d := range docs {
		if first, ok := seen[d.NaturalKey]; ok {
			n.skip(c, d.Path, fmt.Errorf("duplicate %s %s, already taken from %s", d.Kind, d.NaturalKey, first))
			continue
		}
		seen[d.NaturalKey] = d.Path
		out = append(out, d)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
