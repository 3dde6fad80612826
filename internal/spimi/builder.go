package spimi

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/irindex/irindex/internal/errors"
)

// nonPositionalBuilder accumulates (doc_id, tf) postings.
type nonPositionalBuilder struct {
	postings map[string]map[uint32]int
}

func newNonPositionalBuilder() *nonPositionalBuilder {
	return &nonPositionalBuilder{postings: make(map[string]map[uint32]int)}
}

func (b *nonPositionalBuilder) AddDocument(docID uint32, tokens []string) {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	for term, tf := range counts {
		docs, ok := b.postings[term]
		if !ok {
			docs = make(map[uint32]int)
			b.postings[term] = docs
		}
		docs[docID] += tf
	}
}

func (b *nonPositionalBuilder) TermCount() int { return len(b.postings) }

func (b *nonPositionalBuilder) Flush(runPath string) error {
	terms := make([]string, 0, len(b.postings))
	for term := range b.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	f, err := os.Create(runPath) // #nosec G304 -- runPath is generated by this process
	if err != nil {
		return errors.NewIOError(runPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, term := range terms {
		docs := b.postings[term]
		docIDs := make([]uint32, 0, len(docs))
		for id := range docs {
			docIDs = append(docIDs, id)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

		var sb strings.Builder
		sb.WriteString(term)
		for _, id := range docIDs {
			fmt.Fprintf(&sb, ";%d:%d", id, docs[id])
		}
		sb.WriteByte('\n')
		if _, err := w.WriteString(sb.String()); err != nil {
			return errors.NewIOError(runPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.NewIOError(runPath, err)
	}

	b.postings = make(map[string]map[uint32]int)
	return nil
}

// positionalBuilder accumulates (doc_id, positions[]) postings.
type positionalBuilder struct {
	postings map[string]map[uint32][]int
}

func newPositionalBuilder() *positionalBuilder {
	return &positionalBuilder{postings: make(map[string]map[uint32][]int)}
}

func (b *positionalBuilder) AddDocument(docID uint32, tokens []string) {
	for i, term := range tokens {
		docs, ok := b.postings[term]
		if !ok {
			docs = make(map[uint32][]int)
			b.postings[term] = docs
		}
		docs[docID] = append(docs[docID], i)
	}
}

func (b *positionalBuilder) TermCount() int { return len(b.postings) }

func (b *positionalBuilder) Flush(runPath string) error {
	terms := make([]string, 0, len(b.postings))
	for term := range b.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	f, err := os.Create(runPath) // #nosec G304 -- runPath is generated by this process
	if err != nil {
		return errors.NewIOError(runPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, term := range terms {
		docs := b.postings[term]
		docIDs := make([]uint32, 0, len(docs))
		for id := range docs {
			docIDs = append(docIDs, id)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

		var sb strings.Builder
		sb.WriteString(term)
		for _, id := range docIDs {
			positions := docs[id]
			strs := make([]string, len(positions))
			for i, p := range positions {
				strs[i] = fmt.Sprintf("%d", p)
			}
			fmt.Fprintf(&sb, ";%d:%s", id, strings.Join(strs, ","))
		}
		sb.WriteByte('\n')
		if _, err := w.WriteString(sb.String()); err != nil {
			return errors.NewIOError(runPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.NewIOError(runPath, err)
	}

	b.postings = make(map[string]map[uint32][]int)
	return nil
}
