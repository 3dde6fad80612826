// Package config defines the settings an index is built and searched with.
// Every field here is persisted to an index's metadata.json (see
// internal/indexwriter) so that a search process can reconstruct an
// identical tokenizer and ranking function without re-reading flags.
package config

import (
	"regexp"

	"github.com/irindex/irindex/internal/errors"
)

// CacheMode selects what, if anything, the external merger materializes
// alongside the postings file. The zero value is CacheNone.
type CacheMode string

const (
	CacheNone  CacheMode = "none"
	CacheBM25  CacheMode = "bm25"
	CacheTFIDF CacheMode = "tfidf"
)

// TokenizerSettings controls text normalization, identical at index and
// query time.
type TokenizerSettings struct {
	// Regex extracts candidate tokens from raw text; defaults to runs of at
	// least three ASCII letters or digits ([A-Za-z0-9]{3,}) when empty.
	Regex string `json:"regex"`
	// Lowercase folds every extracted token before filtering.
	Lowercase bool `json:"lowercase"`
	// MinLen drops tokens shorter than this many runes (0 disables).
	MinLen int `json:"min_len"`
	// StopwordsPath points at a newline-delimited stopword list; empty
	// means no stopword filtering.
	StopwordsPath string `json:"stopwords_path"`
	// Stemmer names the stemming algorithm: "snowball" or "" (no stemmer).
	Stemmer string `json:"stemmer"`
}

// IndexSettings is the full set of parameters governing one index build
// and the ranking functions available for searching it.
type IndexSettings struct {
	Tokenizer TokenizerSettings `json:"tokenizer"`

	// Positional stores per-occurrence token offsets instead of bare term
	// frequencies. Mutually exclusive with a score cache.
	Positional bool `json:"positional"`

	// Cache selects the score materialized during the final merge.
	Cache CacheMode `json:"cache"`

	// BM25K1 and BM25B are Okapi BM25's saturation and length-normalization
	// parameters, used both for BM25 search and for a "bm25" cache.
	BM25K1 float64 `json:"bm25_k1"`
	BM25B  float64 `json:"bm25_b"`

	// SMARTDoc and SMARTQuery are the three-letter SMART weighting codes
	// (tf, df, normalization) applied on the document and query sides of
	// TF-IDF scoring. Independently chosen, e.g. "lnc" and "ltc".
	SMARTDoc   string `json:"smart_doc"`
	SMARTQuery string `json:"smart_query"`

	// MemoryFraction bounds the fraction of available host memory the
	// Memory Governor may let the indexer occupy before spilling. Zero
	// selects the governor's built-in default.
	MemoryFraction float64 `json:"memory_fraction"`
}

// DefaultIndexSettings returns the settings used when a CLI flag is left
// unset, mirroring spec scenario defaults (k1=1.2, b=0.75, minL=0).
func DefaultIndexSettings() IndexSettings {
	return IndexSettings{
		Tokenizer: TokenizerSettings{
			Lowercase: true,
			MinLen:    0,
		},
		Positional:     false,
		Cache:          CacheNone,
		BM25K1:         1.2,
		BM25B:          0.75,
		SMARTDoc:       "lnc",
		SMARTQuery:     "ltc",
		MemoryFraction: 0.5,
	}
}

var validSMARTLetters = map[int]map[byte]bool{
	0: {'n': true, 'l': true, 'b': true}, // tf weight
	1: {'n': true, 't': true, 'p': true}, // df weight
	2: {'n': true, 'c': true},            // normalization
}

func validateSMART(field, code string) error {
	if len(code) != 3 {
		return errors.NewConfigError(field, "SMART code must be exactly three letters, e.g. \"lnc\"")
	}
	for i := 0; i < 3; i++ {
		if !validSMARTLetters[i][code[i]] {
			return errors.NewConfigError(field, "unknown SMART code letter '"+string(code[i])+"' at position "+string(rune('1'+i)))
		}
	}
	return nil
}

// Validate checks the settings for internal consistency, failing fast
// before any indexing or searching work begins (SPEC_FULL.md §7).
func (s IndexSettings) Validate() error {
	if s.Tokenizer.Regex != "" {
		if _, err := regexp.Compile(s.Tokenizer.Regex); err != nil {
			return errors.NewConfigError("tokenizer.regex", err.Error())
		}
	}
	if s.Tokenizer.MinLen < 0 {
		return errors.NewConfigError("tokenizer.min_len", "must be >= 0")
	}
	if s.Tokenizer.Stemmer != "" && s.Tokenizer.Stemmer != "snowball" {
		return errors.NewConfigError("tokenizer.stemmer", "unsupported stemmer: "+s.Tokenizer.Stemmer)
	}

	switch s.Cache {
	case CacheNone, CacheBM25, CacheTFIDF:
	default:
		return errors.NewConfigError("cache", "unknown cache mode: "+string(s.Cache))
	}
	if s.Positional && s.Cache != CacheNone {
		return errors.NewConfigError("cache", "a score cache cannot be combined with positional postings")
	}

	if s.BM25K1 < 0 {
		return errors.NewConfigError("bm25_k1", "must be >= 0")
	}
	if s.BM25B < 0 || s.BM25B > 1 {
		return errors.NewConfigError("bm25_b", "must be within [0, 1]")
	}

	if err := validateSMART("smart_doc", s.SMARTDoc); err != nil {
		return err
	}
	if err := validateSMART("smart_query", s.SMARTQuery); err != nil {
		return err
	}

	if s.MemoryFraction < 0 || s.MemoryFraction > 1 {
		return errors.NewConfigError("memory_fraction", "must be within [0, 1]")
	}
	return nil
}

// RankingMode names which scoring family a search invocation uses.
type RankingMode string

const (
	RankingBM25  RankingMode = "ranking.bm25"
	RankingTFIDF RankingMode = "ranking.tfidf"
)

// ValidateRankingMode rejects anything other than the two known modes,
// per the Configuration error row in SPEC_FULL.md §7.
func ValidateRankingMode(m RankingMode) error {
	switch m {
	case RankingBM25, RankingTFIDF:
		return nil
	default:
		return errors.NewConfigError("ranking_mode", "unknown ranking mode: "+string(m))
	}
}
