package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/docmap"
	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/indexwriter"
	"github.com/irindex/irindex/internal/smart"
	"github.com/irindex/irindex/internal/tokenizer"
	"github.com/irindex/irindex/model"
)

// Searcher scores a tokenized query against a completed index. The
// original source mutates an object's class at construction time to
// switch between BM25 and TF-IDF scoring; here the choice is a tagged
// variant resolved once by NewSearcher.
type Searcher interface {
	// Search scores query against the index and returns results sorted
	// by descending score, ties broken by ascending PMID.
	Search(query string) ([]model.RankedDoc, error)
	Close() error
}

// Options lets a search invocation override the ranking parameters an
// index was built with. Overrides only take effect on the uncached
// scoring path: a bm25 cache was materialized with the index's own
// BM25K1/BM25B at build time, and honoring a different value against it
// would silently return stale scores, so an enabled cache always wins over
// a query-time override. A tfidf cache holds only document-side (SMARTDoc)
// weights, but a SMARTQuery override is likewise ignored while it is
// enabled.
type Options struct {
	BM25K1     *float64
	BM25B      *float64
	SMARTQuery string
}

// NewSearcher opens outDir's index and returns the concrete Searcher for
// the requested ranking mode.
func NewSearcher(outDir string, mode config.RankingMode, opts Options) (Searcher, error) {
	if err := config.ValidateRankingMode(mode); err != nil {
		return nil, err
	}

	meta, err := indexwriter.LoadMetadata(outDir)
	if err != nil {
		return nil, err
	}
	if meta.Settings.Positional {
		return nil, errors.NewConfigError("mode", "index was built with --positional and stores occurrence offsets, not term frequencies; it has no BM25/TF-IDF ranking support")
	}
	tok, err := tokenizer.New(meta.Settings.Tokenizer)
	if err != nil {
		return nil, err
	}
	loc, err := OpenLocator(outDir)
	if err != nil {
		return nil, err
	}
	dm, err := docmap.Open(outDir + "/" + indexwriter.DocMapFile)
	if err != nil {
		loc.Close()
		return nil, err
	}

	base := &baseSearcher{
		locator:   loc,
		docmap:    dm,
		tokenizer: tok,
		meta:      meta,
	}

	switch mode {
	case config.RankingBM25:
		if meta.Settings.Cache == config.CacheBM25 {
			if err := loc.EnableCache(outDir); err != nil {
				base.Close()
				return nil, err
			}
			base.useCache = true
		} else {
			if opts.BM25K1 != nil {
				base.meta.Settings.BM25K1 = *opts.BM25K1
			}
			if opts.BM25B != nil {
				base.meta.Settings.BM25B = *opts.BM25B
			}
		}
		return &bm25Searcher{base}, nil
	default: // config.RankingTFIDF
		if meta.Settings.Cache == config.CacheTFIDF {
			if err := loc.EnableCache(outDir); err != nil {
				base.Close()
				return nil, err
			}
			base.useCache = true
		} else if opts.SMARTQuery != "" {
			base.meta.Settings.SMARTQuery = opts.SMARTQuery
		}
		docNorms, err := indexwriter.LoadDocNorms(outDir)
		if err != nil {
			base.Close()
			return nil, err
		}
		return &tfidfSearcher{baseSearcher: base, docNorms: docNorms}, nil
	}
}

type baseSearcher struct {
	locator   *Locator
	docmap    *docmap.Reader
	tokenizer *tokenizer.Tokenizer
	meta      indexwriter.Metadata
	useCache  bool
}

func (b *baseSearcher) Close() error {
	b.docmap.Close()
	return b.locator.Close()
}

// sortResults ranks by descending score, ties broken by ascending
// external document id, per SPEC_FULL.md §4.6.
func sortResults(results []model.RankedDoc) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PMID < results[j].PMID
	})
}

func parsePostingGroup(g string) (docID uint32, value string, err error) {
	idx := strings.IndexByte(g, ':')
	if idx < 0 {
		return 0, "", errors.NewDataError("postings", 0, "", "expected doc:value group")
	}
	id, err := strconv.ParseUint(g[:idx], 10, 32)
	if err != nil {
		return 0, "", errors.NewDataError("postings", 0, "", "non-numeric doc id")
	}
	return uint32(id), g[idx+1:], nil
}

// bm25Searcher implements Okapi BM25 scoring.
type bm25Searcher struct{ *baseSearcher }

func (s *bm25Searcher) Search(query string) ([]model.RankedDoc, error) {
	terms := s.tokenizer.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	scores := make(map[uint32]float64)
	for _, term := range terms {
		df, postingsRaw, lineIdx, found, err := s.locator.Lookup(term)
		if err != nil {
			return nil, err
		}
		if !found || postingsRaw == "" {
			continue
		}

		if s.useCache {
			raw, err := s.locator.CacheLine(lineIdx)
			if err != nil {
				return nil, err
			}
			for _, g := range strings.Split(raw, ";") {
				docID, v, err := parsePostingGroup(g)
				if err != nil {
					return nil, err
				}
				score, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, errors.NewDataError("cache", 0, term, "non-numeric score")
				}
				scores[docID] += score
			}
			continue
		}

		for _, g := range strings.Split(postingsRaw, ";") {
			docID, v, err := parsePostingGroup(g)
			if err != nil {
				return nil, err
			}
			tf, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.NewDataError("postings", 0, term, "non-numeric tf")
			}
			entry, err := s.docmap.Get(docID)
			if err != nil {
				return nil, err
			}
			scores[docID] += smart.BM25(tf, df, s.meta.NumDocs, float64(entry.DL), s.meta.AvgDL, s.meta.Settings.BM25K1, s.meta.Settings.BM25B)
		}
	}

	return s.materialize(scores)
}

func (s *baseSearcher) materialize(scores map[uint32]float64) ([]model.RankedDoc, error) {
	results := make([]model.RankedDoc, 0, len(scores))
	for docID, score := range scores {
		entry, err := s.docmap.Get(docID)
		if err != nil {
			return nil, err
		}
		results = append(results, model.RankedDoc{PMID: entry.PMID, Score: score})
	}
	sortResults(results)
	return results, nil
}

// tfidfSearcher implements configurable SMART TF-IDF scoring. docNorms
// holds the precomputed per-document L2 norm of the full document-side
// weight vector (every indexed term, not just the query's terms), so the
// uncached path normalizes against the exact value the score cache was
// built from (SPEC_FULL.md §8 scenario 4).
type tfidfSearcher struct {
	*baseSearcher
	docNorms []float64
}

func (s *tfidfSearcher) Search(query string) ([]model.RankedDoc, error) {
	terms := s.tokenizer.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	qTF, dfCode, qNorm, err := smart.ParseCode(s.meta.Settings.SMARTQuery)
	if err != nil {
		return nil, err
	}
	docTF, docDF, docNorm, err := smart.ParseCode(s.meta.Settings.SMARTDoc)
	if err != nil {
		return nil, err
	}

	qCounts := make(map[string]int)
	for _, t := range terms {
		qCounts[t]++
	}

	type termInfo struct {
		df          int
		postingsRaw string
		lineIdx     int
	}
	info := make(map[string]termInfo)
	for term := range qCounts {
		df, raw, lineIdx, found, err := s.locator.Lookup(term)
		if err != nil {
			return nil, err
		}
		if found {
			info[term] = termInfo{df: df, postingsRaw: raw, lineIdx: lineIdx}
		}
	}

	qWeights := make(map[string]float64, len(qCounts))
	for term, tf := range qCounts {
		ti, ok := info[term]
		if !ok {
			continue
		}
		w, err := smart.Weight(qTF, dfCode, float64(tf), ti.df, s.meta.NumDocs)
		if err != nil {
			return nil, err
		}
		qWeights[term] = w
	}
	if err := smart.Normalize(qNorm, qWeights); err != nil {
		return nil, err
	}

	scores := make(map[uint32]float64)

	for term, qw := range qWeights {
		if qw == 0 {
			continue
		}
		ti := info[term]
		if ti.postingsRaw == "" {
			continue
		}

		if s.useCache {
			raw, err := s.locator.CacheLine(ti.lineIdx)
			if err != nil {
				return nil, err
			}
			for _, g := range strings.Split(raw, ";") {
				docID, v, err := parsePostingGroup(g)
				if err != nil {
					return nil, err
				}
				dw, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, errors.NewDataError("cache", 0, term, "non-numeric score")
				}
				scores[docID] += qw * dw
			}
			continue
		}

		for _, g := range strings.Split(ti.postingsRaw, ";") {
			docID, v, err := parsePostingGroup(g)
			if err != nil {
				return nil, err
			}
			tf, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.NewDataError("postings", 0, term, "non-numeric tf")
			}
			dw, err := smart.Weight(docTF, docDF, tf, ti.df, s.meta.NumDocs)
			if err != nil {
				return nil, err
			}
			if docNorm == 'c' {
				if int(docID) >= len(s.docNorms) {
					return nil, errors.NewDataError("docnorms", 0, term, "doc id out of range")
				}
				if norm := s.docNorms[docID]; norm > 0 {
					dw /= norm
				}
			}
			scores[docID] += qw * dw
		}
	}

	return s.materialize(scores)
}
