package spimi

import (
	"bufio"
	"container/heap"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/docmap"
	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/smart"
)

// DictEntry is one dictionary record: a term and its document frequency
// (non-positional) or posting count (positional) — the two coincide by
// construction, since each posting is one document regardless of kind.
type DictEntry struct {
	Term string
	DF   int
}

// cursor reads one run file's lines in order, exposing the current term
// and its raw `doc:val;doc:val` postings fragment.
type cursor struct {
	runIndex int
	scanner  *bufio.Scanner
	file     *os.File
	term     string
	raw      string
	done     bool
}

func newCursor(runIndex int, path string) (*cursor, error) {
	f, err := os.Open(path) // #nosec G304 -- path is generated by this process
	if err != nil {
		return nil, errors.NewIOError(path, err)
	}
	c := &cursor{runIndex: runIndex, file: f, scanner: bufio.NewScanner(f)}
	c.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	c.advance()
	return c, nil
}

func (c *cursor) advance() {
	if !c.scanner.Scan() {
		c.done = true
		c.term, c.raw = "", ""
		return
	}
	line := c.scanner.Text()
	idx := strings.IndexByte(line, ';')
	if idx < 0 {
		c.term, c.raw = line, ""
		return
	}
	c.term, c.raw = line[:idx], line[idx+1:]
}

func (c *cursor) close() { c.file.Close() }

// cursorHeap orders active cursors by (term, runIndex) so that ties on
// term resolve to run-creation order, matching spec's "concatenate
// postings in run-insertion order" rule for the merge.
type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].runIndex < h[j].runIndex
}
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeResult summarizes the final postings layout for the index writer.
// DocNorms holds each document's precomputed L2 norm under the index's
// configured document-side SMART weighting — computed unconditionally so
// that TF-IDF search can normalize identically whether or not a score
// cache was materialized (see the cached/uncached agreement invariant in
// SPEC_FULL.md §8).
type MergeResult struct {
	Dictionary []DictEntry
	NumDocs    int
	DocNorms   []float64
}

// Merge performs the external k-way merge over runPaths (in creation
// order), writing the sorted postings file to postingsPath and, if
// settings.Cache is set, a parallel score cache to cachePath.
func Merge(runPaths []string, settings config.IndexSettings, n int, avgdl float64, dm *docmap.Reader, postingsPath, cachePath string) (MergeResult, error) {
	cursors := make([]*cursor, 0, len(runPaths))
	for i, path := range runPaths {
		c, err := newCursor(i, path)
		if err != nil {
			return MergeResult{}, err
		}
		cursors = append(cursors, c)
		defer c.close()
	}

	h := &cursorHeap{}
	for _, c := range cursors {
		if !c.done {
			heap.Push(h, c)
		}
	}

	postingsFile, err := os.Create(postingsPath) // #nosec G304 -- path is generated by this process
	if err != nil {
		return MergeResult{}, errors.NewIOError(postingsPath, err)
	}
	defer postingsFile.Close()
	pw := bufio.NewWriter(postingsFile)
	defer pw.Flush()

	var rawCacheFile *os.File
	var rw *bufio.Writer
	isTFIDFCache := settings.Cache == config.CacheTFIDF
	isBM25Cache := settings.Cache == config.CacheBM25

	// Document-side TF-IDF weights are always accumulated, independent of
	// whether a cache is materialized, so the uncached search path can
	// normalize against the same per-document norm the cache would have
	// stored.
	normSq := make([]float64, n)

	if isTFIDFCache {
		rawCacheFile, err = os.CreateTemp("", "irindex-rawcache-*.txt")
		if err != nil {
			return MergeResult{}, errors.NewIOError("rawcache", err)
		}
		defer os.Remove(rawCacheFile.Name())
		defer rawCacheFile.Close()
		rw = bufio.NewWriter(rawCacheFile)
	}

	var bw *bufio.Writer
	if isBM25Cache {
		cacheFile, err := os.Create(cachePath) // #nosec G304 -- path is generated by this process
		if err != nil {
			return MergeResult{}, errors.NewIOError(cachePath, err)
		}
		defer cacheFile.Close()
		bw = bufio.NewWriter(cacheFile)
		defer bw.Flush()
	}

	tfC, dfC, nC, err := smart.ParseCode(settings.SMARTDoc)
	if err != nil {
		return MergeResult{}, err
	}
	docSmart := [3]byte{tfC, dfC, nC}

	var dictionary []DictEntry

	for h.Len() > 0 {
		top := (*h)[0]
		term := top.term

		var matches []*cursor
		for h.Len() > 0 && (*h)[0].term == term {
			matches = append(matches, heap.Pop(h).(*cursor))
		}

		var fragments []string
		df := 0
		for _, c := range matches {
			if c.raw != "" {
				fragments = append(fragments, c.raw)
				df += strings.Count(c.raw, ":")
			}
			c.advance()
			if !c.done {
				heap.Push(h, c)
			}
		}

		postingsRaw := strings.Join(fragments, ";")
		if _, err := fmt.Fprintf(pw, "%s;%s\n", term, postingsRaw); err != nil {
			return MergeResult{}, errors.NewIOError(postingsPath, err)
		}
		dictionary = append(dictionary, DictEntry{Term: term, DF: df})

		if isBM25Cache {
			scores, err := bm25LineScores(postingsRaw, df, n, avgdl, dm, settings.BM25K1, settings.BM25B)
			if err != nil {
				return MergeResult{}, err
			}
			if _, err := fmt.Fprintf(bw, "%s;%s\n", term, scores); err != nil {
				return MergeResult{}, errors.NewIOError(cachePath, err)
			}
		}

		// Always compute raw document-side TF-IDF weights to feed normSq,
		// even when no TF-IDF cache is being materialized. Positional
		// postings store occurrence offsets, not bare counts, and are
		// never ranked by SMART weighting (settings.Validate forbids
		// combining Positional with a cache, and query.NewSearcher is
		// only used against non-positional indexes).
		if !settings.Positional {
			rawLine, err := tfidfRawLineScores(postingsRaw, df, n, docSmart, normSq)
			if err != nil {
				return MergeResult{}, err
			}
			if isTFIDFCache {
				if _, err := fmt.Fprintf(rw, "%s;%s\n", term, rawLine); err != nil {
					return MergeResult{}, errors.NewIOError("rawcache", err)
				}
			}
		}
	}

	if isTFIDFCache {
		if err := rw.Flush(); err != nil {
			return MergeResult{}, errors.NewIOError("rawcache", err)
		}
		if err := finalizeTFIDFCache(rawCacheFile.Name(), cachePath, normSq, docSmart[2]); err != nil {
			return MergeResult{}, err
		}
	}

	docNorms := make([]float64, n)
	if docSmart[2] == 'c' {
		for i, sq := range normSq {
			if sq > 0 {
				docNorms[i] = math.Sqrt(sq)
			}
		}
	}

	return MergeResult{Dictionary: dictionary, NumDocs: n, DocNorms: docNorms}, nil
}

// bm25LineScores rewrites a merged postings fragment as doc:score pairs
// using the BM25 contribution formula (SPEC_FULL.md §4.4).
func bm25LineScores(postingsRaw string, df, n int, avgdl float64, dm *docmap.Reader, k1, b float64) (string, error) {
	groups := strings.Split(postingsRaw, ";")
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		docID, tf, err := parseNonPositionalGroup(g)
		if err != nil {
			return "", err
		}
		entry, err := dm.Get(docID)
		if err != nil {
			return "", err
		}
		score := smart.BM25(float64(tf), df, n, float64(entry.DL), avgdl, k1, b)
		out = append(out, fmt.Sprintf("%d:%s", docID, formatScore(score)))
	}
	return strings.Join(out, ";"), nil
}

// tfidfRawLineScores computes the unnormalized document-side weight for
// every posting in this line and accumulates each document's sum of
// squares into normSq, to be divided out in a second pass once every
// term contributing to a document's vector has been seen.
func tfidfRawLineScores(postingsRaw string, df, n int, docSmart [3]byte, normSq []float64) (string, error) {
	groups := strings.Split(postingsRaw, ";")
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		docID, tf, err := parseNonPositionalGroup(g)
		if err != nil {
			return "", err
		}
		w, err := smart.Weight(docSmart[0], docSmart[1], float64(tf), df, n)
		if err != nil {
			return "", err
		}
		if int(docID) < len(normSq) {
			normSq[docID] += w * w
		}
		out = append(out, fmt.Sprintf("%d:%s", docID, formatScore(w)))
	}
	return strings.Join(out, ";"), nil
}

// finalizeTFIDFCache re-reads the raw (unnormalized) cache and divides
// every weight by its document's L2 norm (or leaves it unchanged for
// SMART normalization code 'n'), writing the final cache file.
func finalizeTFIDFCache(rawPath, cachePath string, normSq []float64, normCode byte) error {
	in, err := os.Open(rawPath) // #nosec G304 -- path is generated by this process
	if err != nil {
		return errors.NewIOError(rawPath, err)
	}
	defer in.Close()

	out, err := os.Create(cachePath) // #nosec G304 -- path is generated by this process
	if err != nil {
		return errors.NewIOError(cachePath, err)
	}
	defer out.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	w := bufio.NewWriter(out)
	defer w.Flush()

	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, ';')
		term, raw := line, ""
		if idx >= 0 {
			term, raw = line[:idx], line[idx+1:]
		}

		if normCode != 'c' {
			if _, err := fmt.Fprintf(w, "%s;%s\n", term, raw); err != nil {
				return errors.NewIOError(cachePath, err)
			}
			continue
		}

		groups := strings.Split(raw, ";")
		rescaled := make([]string, 0, len(groups))
		for _, g := range groups {
			docID, w0, err := parseScoreGroup(g)
			if err != nil {
				return err
			}
			norm := 0.0
			if int(docID) < len(normSq) {
				norm = normSq[docID]
			}
			final := w0
			if norm > 0 {
				final = w0 / math.Sqrt(norm)
			}
			rescaled = append(rescaled, fmt.Sprintf("%d:%s", docID, formatScore(final)))
		}
		if _, err := fmt.Fprintf(w, "%s;%s\n", term, strings.Join(rescaled, ";")); err != nil {
			return errors.NewIOError(cachePath, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.NewIOError(rawPath, err)
	}
	return nil
}

func parseNonPositionalGroup(g string) (docID uint32, tf int, err error) {
	idx := strings.IndexByte(g, ':')
	if idx < 0 {
		return 0, 0, errors.NewDataError("run", 0, "", "expected doc:tf group")
	}
	id, err := strconv.ParseUint(g[:idx], 10, 32)
	if err != nil {
		return 0, 0, errors.NewDataError("run", 0, "", "non-numeric doc id")
	}
	tfVal, err := strconv.Atoi(g[idx+1:])
	if err != nil {
		return 0, 0, errors.NewDataError("run", 0, "", "non-numeric tf")
	}
	return uint32(id), tfVal, nil
}

func parseScoreGroup(g string) (docID uint32, score float64, err error) {
	idx := strings.IndexByte(g, ':')
	if idx < 0 {
		return 0, 0, errors.NewDataError("cache", 0, "", "expected doc:score group")
	}
	id, err := strconv.ParseUint(g[:idx], 10, 32)
	if err != nil {
		return 0, 0, errors.NewDataError("cache", 0, "", "non-numeric doc id")
	}
	s, err := strconv.ParseFloat(g[idx+1:], 64)
	if err != nil {
		return 0, 0, errors.NewDataError("cache", 0, "", "non-numeric score")
	}
	return uint32(id), s, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(roundTo4(v), 'f', 4, 64)
}

func roundTo4(v float64) float64 {
	const p = 10000.0
	return float64(int64(v*p+sign(v)*0.5)) / p
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
