package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testNormalizer(root string, opts Options) *Normalizer {
	roots := Roots{
		PapersMD:   filepath.Join(root, "public/papers_md"),
		Papers:     filepath.Join(root, "public/papers"),
		Notes:      filepath.Join(root, "docs/papers_notes"),
		Videos:     filepath.Join(root, "docs/videos"),
		PaperIndex: filepath.Join(root, "public/papers/index.json"),
	}
	if opts.DefaultPaperLicense == "" {
		opts.DefaultPaperLicense = "cc by"
	}
	opts.PapersURL = "/public/papers"
	opts.NotesURL = "/docs/papers_notes"
	opts.VideosURL = "/docs/videos"
	return NewNormalizer(roots, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCollect_Papers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers/index.json"), `{"papers": [
		{"pmid": "200", "title": "Index Title", "license": "CC BY-NC", "pdf_url": "https://example.org/200.pdf"},
		{"pmid": 300, "title": "Numeric PMID", "source": "https://pubmed.example/300"}
	]}`)
	writeFile(t, filepath.Join(root, "public/papers_md/300.md"), "Body 300")
	writeFile(t, filepath.Join(root, "public/papers_md/200.md"), "---\ntitle: \"FM Title\"\n---\nBody 200")
	writeFile(t, filepath.Join(root, "public/papers_md/100.md"), "---\nlicense: CC0\n---\nBody 100")
	writeFile(t, filepath.Join(root, "public/papers/100.pdf"), "%PDF-1.4")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, corpus.Documents, 3)

	p100, p200, p300 := corpus.Documents[0], corpus.Documents[1], corpus.Documents[2]

	assert.Equal(t, "PMID:100", p100.NaturalKey)
	assert.Equal(t, "cc0", p100.License)
	assert.Equal(t, "/public/papers/100.pdf", p100.SourceURL)
	assert.Equal(t, "", p100.Title)
	assert.Equal(t, "Body 100", p100.Body)

	assert.Equal(t, "FM Title", p200.Title)
	assert.Equal(t, "cc by-nc", p200.License)
	assert.Equal(t, "https://example.org/200.pdf", p200.SourceURL)

	assert.Equal(t, "Numeric PMID", p300.Title)
	assert.Equal(t, "cc by", p300.License)
	assert.Equal(t, "https://pubmed.example/300", p300.SourceURL)
	assert.Equal(t, "paper:PMID:300:c2", p300.ChunkID(2))
}

func TestCollect_NotesAreDerived(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers/index.json"), `{"papers": [{"pmid": "42", "title": "From Index"}]}`)
	writeFile(t, filepath.Join(root, "docs/papers_notes/42.md"), "Note body")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, corpus.Documents, 1)

	note := corpus.Documents[0]
	assert.Equal(t, KindNote, note.Kind)
	assert.Equal(t, "From Index", note.Title)
	assert.Equal(t, LicenseDerived, note.License)
	assert.Equal(t, "/docs/papers_notes/42.md", note.SourceURL)
	assert.Equal(t, "note:PMID:42:c0", note.ChunkID(0))
}

func TestCollect_KindOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/videos/b_vid/notes.md"), "video notes")
	writeFile(t, filepath.Join(root, "docs/papers_notes/1.md"), "note")
	writeFile(t, filepath.Join(root, "public/papers_md/9.md"), "paper")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, corpus.Documents, 3)

	assert.Equal(t, KindPaper, corpus.Documents[0].Kind)
	assert.Equal(t, KindNote, corpus.Documents[1].Kind)
	assert.Equal(t, KindVideoNote, corpus.Documents[2].Kind)
}

func TestCollect_Videos(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/videos/z_dir/meta.json"), `{"id": "yt_A", "title": "Zone 2", "url": "https://youtu.be/A"}`)
	writeFile(t, filepath.Join(root, "docs/videos/z_dir/notes.md"), "Notes A")
	writeFile(t, filepath.Join(root, "docs/videos/a_dir/notes.md"), "Notes B")
	writeFile(t, filepath.Join(root, "docs/videos/a_dir/claims.json"), `[{"id": "c1", "text": "Claim text"}, {"id": "", "text": "   "}]`)

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, corpus.Documents, 2)
	assert.Equal(t, "a_dir", corpus.Documents[0].VideoID)
	assert.Equal(t, "a dir", corpus.Documents[0].Title)
	assert.Equal(t, "/docs/videos/a_dir/notes.md", corpus.Documents[0].SourceURL)
	assert.Equal(t, "yt_A", corpus.Documents[1].VideoID)
	assert.Equal(t, "Zone 2", corpus.Documents[1].Title)
	assert.Equal(t, "https://youtu.be/A", corpus.Documents[1].SourceURL)
	assert.Equal(t, "video_note:yt_A:c0", corpus.Documents[1].ChunkID(0))

	require.Len(t, corpus.Claims, 1)
	claim := corpus.Claims[0]
	assert.Equal(t, "c1", claim.ID)
	assert.Equal(t, "Claim text", claim.Text)
	assert.Equal(t, "/docs/videos/a_dir/claims.json", claim.SourceURL)
	assert.Equal(t, "video_claim:c1", claim.RecordID(ClaimIDPosition, 7))
	assert.Empty(t, corpus.Issues)
}

func TestCollect_MalformedInputsDegrade(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers/index.json"), `{"papers": [`)
	writeFile(t, filepath.Join(root, "public/papers_md/1.md"), "---\ntitle: never closed\n\nBody")
	writeFile(t, filepath.Join(root, "docs/videos/v1/meta.json"), `not json`)
	writeFile(t, filepath.Join(root, "docs/videos/v1/claims.json"), `{"id": "c1"}`)
	writeFile(t, filepath.Join(root, "docs/videos/v2/claims.json"), `["just a string", {"id": 5, "text": "ok"}]`)

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, corpus.Documents, 1)
	assert.Equal(t, "---\ntitle: never closed\n\nBody", corpus.Documents[0].Body)
	assert.Equal(t, "", corpus.Documents[0].Title)

	require.Len(t, corpus.Claims, 1)
	assert.Equal(t, "5", corpus.Claims[0].ID)
	assert.Equal(t, "v2", corpus.Claims[0].VideoID)

	// индекс, meta.json, claims.json v1 и строковый элемент v2
	assert.Len(t, corpus.Issues, 4)
}

func TestCollect_UnreadableFileIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers_md/1.md"), "ok")
	bad := filepath.Join(root, "public/papers_md/2.md")
	writeFile(t, bad, "secret")
	require.NoError(t, os.Chmod(bad, 0o000))

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, corpus.Documents, 1)
	require.Len(t, corpus.Issues, 1)
	assert.Equal(t, bad, corpus.Issues[0].Path)
}

func TestCollect_DuplicateVideoIDKeepsFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/videos/a/meta.json"), `{"id": "same"}`)
	writeFile(t, filepath.Join(root, "docs/videos/a/notes.md"), "first")
	writeFile(t, filepath.Join(root, "docs/videos/b/meta.json"), `{"id": "same"}`)
	writeFile(t, filepath.Join(root, "docs/videos/b/notes.md"), "second")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, corpus.Documents, 1)
	assert.Equal(t, "first", corpus.Documents[0].Body)
	assert.Len(t, corpus.Issues, 1)
}

func TestCollect_CaseVariantFilesKeepFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/papers_notes/7.MD"), "only one short chunk")
	writeFile(t, filepath.Join(root, "docs/papers_notes/7.md"), strings.Repeat("U", 900)+"\n\n"+strings.Repeat("V", 900))
	writeFile(t, filepath.Join(root, "public/papers_md/8.md"), "paper body")
	writeFile(t, filepath.Join(root, "public/papers_md/8.Md"), "other paper body")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, corpus.Documents, 2)
	paper, note := corpus.Documents[0], corpus.Documents[1]
	assert.Equal(t, KindPaper, paper.Kind)
	assert.Equal(t, "other paper body", paper.Body)
	assert.Equal(t, KindNote, note.Kind)
	assert.Equal(t, "only one short chunk", note.Body)
	assert.Equal(t, "PMID:7", note.NaturalKey)

	require.Len(t, corpus.Issues, 2)
	assert.Equal(t, filepath.Join(root, "public/papers_md/8.md"), corpus.Issues[0].Path)
	assert.Equal(t, filepath.Join(root, "docs/papers_notes/7.md"), corpus.Issues[1].Path)
	assert.Contains(t, corpus.Issues[1].Err.Error(), "duplicate note PMID:7")
}

func TestCollect_MissingRootsAreEmpty(t *testing.T) {
	corpus, err := testNormalizer(t.TempDir(), Options{}).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, corpus.Documents)
	assert.Empty(t, corpus.Claims)
	assert.Empty(t, corpus.Issues)
}

func TestCollect_CanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers_md/1.md"), "ok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testNormalizer(root, Options{}).Collect(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCollect_InvalidUTF8IsDropped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers_md/1.md"), "ok\xff text")
	writeFile(t, filepath.Join(root, "public/papers/index.json"), "{\"papers\": [{\"pmid\": \"1\", \"title\": \"Ti\xfetle\"}]}")
	writeFile(t, filepath.Join(root, "docs/videos/v/meta.json"), "{\"id\": \"v1\", \"title\": \"Ta\xc3lk\"}")
	writeFile(t, filepath.Join(root, "docs/videos/v/claims.json"), "[{\"id\": \"c1\", \"text\": \"ab\xffcd\"}]")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)
	require.Empty(t, corpus.Issues)
	require.Len(t, corpus.Documents, 1)
	assert.Equal(t, "ok text", corpus.Documents[0].Body)
	assert.Equal(t, "Title", corpus.Documents[0].Title)

	require.Len(t, corpus.Claims, 1)
	assert.Equal(t, "abcd", corpus.Claims[0].Text)
	assert.Equal(t, "Talk", corpus.Claims[0].Title)
	assert.Equal(t, "v1", corpus.Claims[0].VideoID)
}

func TestCheckRoots(t *testing.T) {
	root := t.TempDir()
	notes := filepath.Join(root, "notes")
	require.NoError(t, os.Mkdir(notes, 0o755))
	file := filepath.Join(root, "file")
	writeFile(t, file, "x")

	roots := map[string]string{
		"notes":  notes,
		"videos": filepath.Join(root, "missing"),
		"papers": file,
	}

	assert.NoError(t, CheckRoots(roots, nil))
	assert.NoError(t, CheckRoots(roots, []string{"notes"}))

	for _, name := range []string{"videos", "papers", "slides"} {
		err := CheckRoots(roots, []string{name})
		assert.True(t, errors.Is(err, ErrMissingRoot), name)
	}
}

func TestClaimRecordID(t *testing.T) {
	anon := Claim{VideoID: "vid", Text: "Some claim"}

	assert.Equal(t, "video_claim:claim:vid:12", anon.RecordID(ClaimIDPosition, 12))

	a := anon.RecordID(ClaimIDContent, 1)
	b := anon.RecordID(ClaimIDContent, 99)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "video_claim:claim:vid:"))

	other := Claim{VideoID: "vid", Text: "Other claim"}
	assert.NotEqual(t, a, other.RecordID(ClaimIDContent, 1))
}

func TestWebPath(t *testing.T) {
	tests := []struct {
		root, dir, want string
	}{
		{"/srv/kb", "public/papers", "/public/papers"},
		{"/srv/kb", "./docs/videos/", "/docs/videos"},
		{"/srv/kb", "/srv/kb/public/papers", "/public/papers"},
		{"/srv/kb/", "/srv/kb/docs/papers_notes/", "/docs/papers_notes"},
		{"/srv/kb", "/data/papers", "/papers"},
		{"/srv/kb", "/srv/kbx/papers", "/papers"},
		{"", "/srv/kb/papers", "/papers"},
		{"/srv/kb", "", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WebPath(tt.root, tt.dir), "%s + %s", tt.root, tt.dir)
	}
}

func TestCollect_VideoNoteTitlePrecedence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/videos/with_fm/notes.md"), "---\ntitle: From Notes\n---\nBody")
	writeFile(t, filepath.Join(root, "docs/videos/with_meta/meta.json"), `{"title": "From Meta"}`)
	writeFile(t, filepath.Join(root, "docs/videos/with_meta/notes.md"), "---\ntitle: Ignored\n---\nBody")

	corpus, err := testNormalizer(root, Options{}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, corpus.Documents, 2)

	assert.Equal(t, "From Notes", corpus.Documents[0].Title)
	assert.Equal(t, "Body", corpus.Documents[0].Body)
	assert.Equal(t, "From Meta", corpus.Documents[1].Title)
}

func TestCollect_PDFFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public/papers_md/1.md"), "Extracted text")
	writeFile(t, filepath.Join(root, "public/papers/1.pdf"), "%PDF-1.4 not really")
	writeFile(t, filepath.Join(root, "public/papers/2.pdf"), "garbage")

	corpus, err := testNormalizer(root, Options{PDFFallback: true}).Collect(context.Background())
	require.NoError(t, err)

	// 1.pdf уже покрыт markdown-версией, 2.pdf не читается
	require.Len(t, corpus.Documents, 1)
	assert.Equal(t, "Extracted text", corpus.Documents[0].Body)
	require.Len(t, corpus.Issues, 1)
	assert.Equal(t, filepath.Join(root, "public/papers/2.pdf"), corpus.Issues[0].Path)
}
