package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	videoMetaFile   = "meta.json"
	videoNotesFile  = "notes.md"
	videoClaimsFile = "claims.json"
)

type videoMeta struct {
	ID    looseString `json:"id"`
	Title string      `json:"title"`
	URL   string      `json:"url"`
}

type rawClaim struct {
	ID   looseString `json:"id"`
	Text string      `json:"text"`
}

type video struct {
	dir       string
	id        string
	title     string
	metaTitle string
	url       string
}

func (n *Normalizer) collectVideos(ctx context.Context, c *Corpus) error {
	if n.roots.Videos == "" {
		return nil
	}
	entries, err := os.ReadDir(n.roots.Videos)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		n.skip(c, n.roots.Videos, err)
		return nil
	}

	var videos []video
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(n.roots.Videos, e.Name())
		meta, err := readVideoMeta(dir)
		if err != nil {
			n.skip(c, filepath.Join(dir, videoMetaFile), err)
		}
		videos = append(videos, video{
			dir:       dir,
			id:        firstNonEmpty(string(meta.ID), e.Name()),
			title:     firstNonEmpty(meta.Title, strings.ReplaceAll(e.Name(), "_", " ")),
			metaTitle: strings.TrimSpace(meta.Title),
			url:       strings.TrimSpace(meta.URL),
		})
	}
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].id < videos[j].id
	})

	var kept []video
	seen := map[string]bool{}
	for _, v := range videos {
		if seen[v.id] {
			n.skip(c, v.dir, fmt.Errorf("duplicate video id %q", v.id))
			continue
		}
		seen[v.id] = true
		kept = append(kept, v)
	}

	for _, v := range kept {
		if err := ctx.Err(); err != nil {
			return err
		}
		fp := filepath.Join(v.dir, videoNotesFile)
		text, err := readText(fp)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			n.skip(c, fp, err)
			continue
		}
		fm, body := n.frontMatter(fp, text)
		c.Documents = append(c.Documents, Document{
			Kind:       KindVideoNote,
			NaturalKey: v.id,
			VideoID:    v.id,
			Title:      firstNonEmpty(v.metaTitle, fm["title"], v.title),
			License:    LicenseDerived,
			SourceURL:  firstNonEmpty(v.url, n.videoURL(v, videoNotesFile)),
			Body:       body,
			Path:       fp,
		})
	}

	for _, v := range kept {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.collectClaims(c, v)
	}
	return nil
}

func (n *Normalizer) collectClaims(c *Corpus, v video) {
	fp := filepath.Join(v.dir, videoClaimsFile)
	data, err := readBytes(fp)
	if errors.Is(err, os.ErrNotExist) {
		return
	} else if err != nil {
		n.skip(c, fp, err)
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		n.skip(c, fp, fmt.Errorf("decode claims: %w", err))
		return
	}

	for i, item := range items {
		var rc rawClaim
		if err := json.Unmarshal(item, &rc); err != nil {
			n.skip(c, fmt.Sprintf("%s[%d]", fp, i), err)
			continue
		}
		text := strings.TrimSpace(rc.Text)
		if text == "" {
			continue
		}
		c.Claims = append(c.Claims, Claim{
			ID:        strings.TrimSpace(string(rc.ID)),
			Text:      text,
			VideoID:   v.id,
			Title:     v.title,
			SourceURL: firstNonEmpty(v.url, n.videoURL(v, videoClaimsFile)),
			Path:      fp,
		})
	}
}

func (n *Normalizer) videoURL(v video, file string) string {
	return path.Join(n.opts.VideosURL, filepath.Base(v.dir), file)
}

// readVideoMeta читает meta.json, при отсутствии или ошибке возвращает пустые метаданные
func readVideoMeta(dir string) (videoMeta, error) {
	var meta videoMeta
	data, err := readBytes(filepath.Join(dir, videoMetaFile))
	if errors.Is(err, os.ErrNotExist) {
		return meta, nil
	} else if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return videoMeta{}, fmt.Errorf("decode video meta: %w", err)
	}
	return meta, nil
}
