package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrMissingRoot = errors.New("required source root is missing")

type Kind string

const (
	KindPaper      Kind = "paper"
	KindNote       Kind = "note"
	KindVideoNote  Kind = "video_note"
	KindVideoClaim Kind = "video_claim"
)

// LicenseDerived помечает производный текст (конспекты, заметки к видео)
const LicenseDerived = "derived"

// Document - одна единица корпуса до разбиения на чанки
type Document struct {
	Kind       Kind
	NaturalKey string
	PMID       string
	VideoID    string
	Title      string
	License    string
	SourceURL  string
	Body       string
	Path       string
}

// ChunkID строит идентификатор чанка документа
func (d Document) ChunkID(index int) string {
	return fmt.Sprintf("%s:%s:c%d", d.Kind, d.NaturalKey, index)
}

// Claim - атомарное утверждение из claims.json, не разбивается на чанки
type Claim struct {
	ID        string
	Text      string
	VideoID   string
	Title     string
	SourceURL string
	Path      string
}

type ClaimIDStrategy string

const (
	ClaimIDPosition ClaimIDStrategy = "position"
	ClaimIDContent  ClaimIDStrategy = "content"
)

// RecordID возвращает идентификатор записи утверждения.
// position - число записей, выпущенных до этого утверждения.
func (c Claim) RecordID(strategy ClaimIDStrategy, position int) string {
	id := c.ID
	if id == "" {
		switch strategy {
		case ClaimIDContent:
			id = "claim:" + c.VideoID + ":" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.VideoID+"\n"+c.Text)).String()
		default:
			id = fmt.Sprintf("claim:%s:%d", c.VideoID, position)
		}
	}
	return string(KindVideoClaim) + ":" + id
}

// Issue - некритичная проблема со входным файлом
type Issue struct {
	Path string
	Err  error
}

func (i Issue) String() string {
	return i.Path + ": " + i.Err.Error()
}

// Corpus - результат обхода источников
type Corpus struct {
	Documents []Document
	Claims    []Claim
	Issues    []Issue
}

// Count возвращает число документов каждого вида
func (c *Corpus) Count(kind Kind) int {
	if kind == KindVideoClaim {
		return len(c.Claims)
	}
	n := 0
	for _, d := range c.Documents {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (c *Corpus) issue(path string, err error) {
	c.Issues = append(c.Issues, Issue{Path: path, Err: err})
}

func normLicense(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}
