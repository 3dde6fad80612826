// Package query implements the term locator and the BM25/TF-IDF query
// executor that read a completed index.
package query

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/indexwriter"
)

// DictEntry is one in-memory dictionary record, kept in the same order as
// the postings file so a dictionary index doubles as a postings line
// index.
type DictEntry struct {
	Term string
	DF   int
}

// Locator resolves a term to its dictionary frequency and raw postings
// string using the two-character prefix jump table plus a bounded linear
// scan, per SPEC_FULL.md §4.5.
type Locator struct {
	postingsFile    *os.File
	dictionary      []DictEntry
	postingsOffsets []int64
	jumpTable       []indexwriter.JumpEntry

	cacheFile    *os.File
	cacheOffsets []int64
}

// OpenLocator loads the dictionary and jump table into memory and opens
// the postings file for random-access reads.
func OpenLocator(outDir string) (*Locator, error) {
	dictPath := outDir + "/" + indexwriter.DictionaryFile
	f, err := os.Open(dictPath) // #nosec G304 -- outDir is controlled by the CLI invocation
	if err != nil {
		return nil, errors.NewIOError(dictPath, err)
	}
	defer f.Close()

	var dictionary []DictEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			return nil, errors.NewDataError(dictPath, 0, "", "expected term:df")
		}
		df, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			return nil, errors.NewDataError(dictPath, 0, line[:idx], "non-numeric df")
		}
		dictionary = append(dictionary, DictEntry{Term: line[:idx], DF: df})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIOError(dictPath, err)
	}

	postingsPath := outDir + "/" + indexwriter.PostingsFile
	pf, err := os.Open(postingsPath) // #nosec G304 -- outDir is controlled by the CLI invocation
	if err != nil {
		return nil, errors.NewIOError(postingsPath, err)
	}

	var offsets []int64
	var offset int64
	pscan := bufio.NewScanner(pf)
	pscan.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for pscan.Scan() {
		offsets = append(offsets, offset)
		offset += int64(len(pscan.Bytes())) + 1
	}
	if err := pscan.Err(); err != nil {
		pf.Close()
		return nil, errors.NewIOError(postingsPath, err)
	}

	jumpTable, err := indexwriter.LoadJumpTable(outDir)
	if err != nil {
		pf.Close()
		return nil, err
	}

	return &Locator{
		postingsFile:    pf,
		dictionary:      dictionary,
		postingsOffsets: offsets,
		jumpTable:       jumpTable,
	}, nil
}

// EnableCache opens the score cache file and indexes its line offsets.
// The cache shares line ordering with the postings file, so line i of
// the cache always corresponds to dictionary entry i.
func (l *Locator) EnableCache(outDir string) error {
	cachePath := outDir + "/" + indexwriter.CacheFile
	f, err := os.Open(cachePath) // #nosec G304 -- outDir is controlled by the CLI invocation
	if err != nil {
		return errors.NewIOError(cachePath, err)
	}

	var offsets []int64
	var offset int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		offsets = append(offsets, offset)
		offset += int64(len(scanner.Bytes())) + 1
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return errors.NewIOError(cachePath, err)
	}

	l.cacheFile = f
	l.cacheOffsets = offsets
	return nil
}

// CacheLine returns the raw score-cache fragment (text after the first
// ';') for the dictionary line lineIdx.
func (l *Locator) CacheLine(lineIdx int) (string, error) {
	if l.cacheFile == nil || lineIdx < 0 || lineIdx >= len(l.cacheOffsets) {
		return "", errors.NewDataError("cache", 0, "", "cache line out of range or cache not enabled")
	}
	if _, err := l.cacheFile.Seek(l.cacheOffsets[lineIdx], 0); err != nil {
		return "", errors.NewIOError("cache", err)
	}
	reader := bufio.NewReader(l.cacheFile)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.NewIOError("cache", err)
	}
	line = strings.TrimRight(line, "\n")
	idx := strings.IndexByte(line, ';')
	if idx < 0 {
		return "", nil
	}
	return line[idx+1:], nil
}

// NumTerms reports the dictionary size, for /stats-style introspection.
func (l *Locator) NumTerms() int { return len(l.dictionary) }

// Close releases the postings (and, if opened, cache) file handles.
func (l *Locator) Close() error {
	if l.cacheFile != nil {
		l.cacheFile.Close()
	}
	return l.postingsFile.Close()
}

func prefixOf(term string) string {
	r := []rune(term)
	if len(r) >= 2 {
		return string(r[:2])
	}
	return string(r)
}

func (l *Locator) startLine(term string) int {
	prefix := prefixOf(term)
	// Largest jump table entry whose prefix is <= the term's prefix.
	idx := sort.Search(len(l.jumpTable), func(i int) bool {
		return l.jumpTable[i].Prefix > prefix
	})
	if idx == 0 {
		return 0
	}
	return l.jumpTable[idx-1].Line
}

// Lookup resolves term to its document frequency, raw postings fragment
// (the text after the first ';' on its postings line), and its line
// index (usable with CacheLine). found is false, with no error, when the
// term does not appear in the index — SPEC_FULL.md treats a missing term
// as contributing 0 to scoring, not as an error.
func (l *Locator) Lookup(term string) (df int, postingsRaw string, lineIdx int, found bool, err error) {
	i := l.startLine(term)
	for i < len(l.dictionary) && l.dictionary[i].Term < term {
		i++
	}
	if i >= len(l.dictionary) || l.dictionary[i].Term != term {
		return 0, "", 0, false, nil
	}

	if _, err := l.postingsFile.Seek(l.postingsOffsets[i], 0); err != nil {
		return 0, "", 0, false, errors.NewIOError("postings", err)
	}
	reader := bufio.NewReader(l.postingsFile)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, "", 0, false, errors.NewIOError("postings", err)
	}
	line = strings.TrimRight(line, "\n")
	idx := strings.IndexByte(line, ';')
	if idx < 0 {
		return l.dictionary[i].DF, "", i, true, nil
	}
	return l.dictionary[i].DF, line[idx+1:], i, true, nil
}

// NumDocs is not known to the locator itself; callers get it from
// indexwriter.Metadata.
