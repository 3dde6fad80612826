// Package indexwriter produces the dictionary, two-character prefix jump
// table, and metadata record that sit alongside the postings file written
// by internal/spimi, and reads the jump table, metadata and document norms
// back for internal/query. The dictionary file is parsed by
// internal/query's Locator directly.
package indexwriter

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/persistence"
	"github.com/irindex/irindex/internal/spimi"
)

// JumpEntry maps a two-character term prefix to the 0-based line number
// of its first occurrence in the postings file.
type JumpEntry struct {
	Prefix string
	Line   int
}

// Metadata is the single record that lets a search process reconstruct
// an identical tokenizer and ranking function (SPEC_FULL.md §6).
type Metadata struct {
	Settings config.IndexSettings `json:"settings"`
	NumDocs  int                  `json:"num_docs"`
	AvgDL    float64              `json:"avg_dl"`
}

const (
	DictionaryFile = "dictionary.txt"
	JumpTableFile  = "jumptable.gob"
	MetadataFile   = "metadata.json"
	PostingsFile   = "postings.txt"
	CacheFile      = "cache.txt"
	DocMapFile     = "docmap.txt"
	DocNormsFile   = "docnorms.gob"
)

// WriteDictionaryAndJumpTable writes dictionary.txt and the prefix jump
// table for a dictionary already in ascending term order (the order
// internal/spimi.Merge produces).
func WriteDictionaryAndJumpTable(outDir string, dictionary []spimi.DictEntry) error {
	dictPath := filepath.Join(outDir, DictionaryFile)
	f, err := os.Create(dictPath) // #nosec G304 -- outDir is controlled by the CLI invocation
	if err != nil {
		return errors.NewIOError(dictPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var jumpTable []JumpEntry
	lastPrefix := ""

	for line, entry := range dictionary {
		if _, err := w.WriteString(entry.Term); err != nil {
			return errors.NewIOError(dictPath, err)
		}
		if _, err := w.WriteString(":"); err != nil {
			return errors.NewIOError(dictPath, err)
		}
		if _, err := w.WriteString(strconv.Itoa(entry.DF)); err != nil {
			return errors.NewIOError(dictPath, err)
		}
		if _, err := w.WriteString("\n"); err != nil {
			return errors.NewIOError(dictPath, err)
		}

		prefix := prefixOf(entry.Term)
		if prefix != lastPrefix {
			jumpTable = append(jumpTable, JumpEntry{Prefix: prefix, Line: line})
			lastPrefix = prefix
		}
	}
	if err := w.Flush(); err != nil {
		return errors.NewIOError(dictPath, err)
	}

	jumpPath := filepath.Join(outDir, JumpTableFile)
	return persistence.SaveGob(jumpPath, jumpTable)
}

// LoadJumpTable reads back the prefix jump table built during indexing.
func LoadJumpTable(outDir string) ([]JumpEntry, error) {
	var table []JumpEntry
	path := filepath.Join(outDir, JumpTableFile)
	if err := persistence.LoadGob(path, &table); err != nil {
		return nil, errors.NewIOError(path, err)
	}
	return table, nil
}

// WriteMetadata persists the settings and corpus statistics an index was
// built with.
func WriteMetadata(outDir string, meta Metadata) error {
	path := filepath.Join(outDir, MetadataFile)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.NewIOError(path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.NewIOError(path, err)
	}
	return nil
}

// LoadMetadata reads back an index's metadata record.
func LoadMetadata(outDir string) (Metadata, error) {
	path := filepath.Join(outDir, MetadataFile)
	data, err := os.ReadFile(path) // #nosec G304 -- outDir is controlled by the CLI invocation
	if err != nil {
		return Metadata{}, errors.NewIOError(path, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, errors.NewDataError(path, 0, "", err.Error())
	}
	return meta, nil
}

// WriteDocNorms persists the per-document L2 norm of the document-side
// SMART weight vector, indexed by document id. It is always written,
// independent of cache mode, so the uncached TF-IDF query path can
// normalize against the exact same norm a cache would have used
// (SPEC_FULL.md §8 scenario 4).
func WriteDocNorms(outDir string, norms []float64) error {
	path := filepath.Join(outDir, DocNormsFile)
	return persistence.SaveGob(path, norms)
}

// LoadDocNorms reads back the per-document L2 norms written by
// WriteDocNorms.
func LoadDocNorms(outDir string) ([]float64, error) {
	var norms []float64
	path := filepath.Join(outDir, DocNormsFile)
	if err := persistence.LoadGob(path, &norms); err != nil {
		return nil, errors.NewIOError(path, err)
	}
	return norms, nil
}

func prefixOf(term string) string {
	r := []rune(term)
	if len(r) >= 2 {
		return string(r[:2])
	}
	return string(r)
}

