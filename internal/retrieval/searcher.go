// Package retrieval defines the document search capability the extractor
// depends on, plus a deterministic local-directory implementation so the
// engine runs without a vector store.
package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Document is one retrieved chunk.
type Document struct {
	Citation string `json:"citation"`
	Content  string `json:"content"`
}

// Searcher is the retrieval capability. The extraction stage is its only
// caller; retrieved content never reaches any other stage.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// DirSearcher scores plain-text documents from a local directory by
// keyword overlap with the query. Deterministic: ties break on filename.
type DirSearcher struct {
	docs []Document
}

// NewDirSearcher loads every .txt and .md file under dir.
func NewDirSearcher(dir string) (*DirSearcher, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: read documents dir")
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "retrieval: read %s", e.Name())
		}
		docs = append(docs, Document{
			Citation: e.Name(),
			Content:  string(data),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Citation < docs[j].Citation })
	return &DirSearcher{docs: docs}, nil
}

// NewStaticSearcher wraps a fixed document set, mainly for tests.
func NewStaticSearcher(docs []Document) *DirSearcher {
	return &DirSearcher{docs: docs}
}

// Search returns up to k documents ordered by descending term overlap.
// Documents with zero overlap are excluded. An empty result is not an
// error; the extractor degrades to an empty fact set.
func (s *DirSearcher) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}

	terms := queryTerms(query)

	type scored struct {
		doc   Document
		score int
	}
	var results []scored
	for _, d := range s.docs {
		lower := strings.ToLower(d.Content)
		score := 0
		for _, t := range terms {
			score += strings.Count(lower, t)
		}
		if score > 0 {
			results = append(results, scored{doc: d, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]Document, 0, k)
	for i, r := range results {
		if i >= k {
			break
		}
		out = append(out, r.doc)
	}
	return out, nil
}

// queryTerms lowercases and drops stopwords and short tokens.
func queryTerms(query string) []string {
	stop := map[string]bool{
		"the": true, "is": true, "are": true, "was": true, "were": true,
		"what": true, "how": true, "why": true, "our": true, "their": true,
		"and": true, "for": true, "with": true, "this": true, "that": true,
	}
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var terms []string
	for _, f := range fields {
		if len(f) < 3 || stop[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}
