// Package tokenizer turns raw title/abstract or query text into the
// ordered token stream the rest of the pipeline indexes and scores.
package tokenizer

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	snowballeng "github.com/kljensen/snowball/english"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/errors"
)

const defaultPattern = `[A-Za-z0-9]{3,}`

// Stemmer reduces a token to its stem. Treated as a pure function, per
// SPEC_FULL.md's "out of scope collaborator" framing.
type Stemmer func(token string) string

func identityStemmer(token string) string { return token }

func snowballStemmer(token string) string {
	return snowballeng.Stem(token, false)
}

// Tokenizer applies the five-step pipeline from SPEC_FULL.md §4.1: regex
// extraction, optional lowercasing, stopword filtering, stemming, and a
// minimum-length cut. A Tokenizer is immutable once built so that the same
// settings reproduce the same tokens at index and query time.
type Tokenizer struct {
	re        *regexp.Regexp
	lowercase bool
	stopwords map[string]struct{}
	stemmer   Stemmer
	minLen    int
}

// New builds a Tokenizer from settings, loading the stopword list from
// disk if one is configured.
func New(settings config.TokenizerSettings) (*Tokenizer, error) {
	pattern := settings.Regex
	if pattern == "" {
		pattern = defaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewConfigError("tokenizer.regex", err.Error())
	}

	stopwords, err := loadStopwords(settings.StopwordsPath)
	if err != nil {
		return nil, err
	}

	var stemmer Stemmer
	switch settings.Stemmer {
	case "", "none":
		stemmer = identityStemmer
	case "snowball":
		stemmer = snowballStemmer
	default:
		return nil, errors.NewConfigError("tokenizer.stemmer", "unsupported stemmer: "+settings.Stemmer)
	}

	if settings.MinLen < 0 {
		return nil, errors.NewConfigError("tokenizer.min_len", "must be >= 0")
	}

	return &Tokenizer{
		re:        re,
		lowercase: settings.Lowercase,
		stopwords: stopwords,
		stemmer:   stemmer,
		minLen:    settings.MinLen,
	}, nil
}

func loadStopwords(path string) (map[string]struct{}, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path) // #nosec G304 -- path comes from trusted configuration, not user input
	if err != nil {
		return nil, errors.NewIOError(path, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		set[strings.ToLower(word)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIOError(path, err)
	}
	return set, nil
}

// Tokenize applies the pipeline to text, returning tokens in their
// original order of occurrence — required for positional postings, which
// record 0-based offsets into this sequence.
func (t *Tokenizer) Tokenize(text string) []string {
	raw := t.re.FindAllString(text, -1)
	tokens := make([]string, 0, len(raw))

	for _, tok := range raw {
		if t.lowercase {
			tok = strings.ToLower(tok)
		}
		if t.isStopword(tok) {
			continue
		}
		tok = t.stemmer(tok)
		if len([]rune(tok)) < t.minLen {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func (t *Tokenizer) isStopword(tok string) bool {
	if t.stopwords == nil {
		return false
	}
	_, ok := t.stopwords[tok]
	return ok
}
