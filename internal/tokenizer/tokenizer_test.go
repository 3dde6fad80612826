package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/config"
)

func TestTokenize_ScenarioOne(t *testing.T) {
	dir := t.TempDir()
	stopwordsPath := filepath.Join(dir, "stopwords.txt")
	require.NoError(t, os.WriteFile(stopwordsPath, []byte("the\non\n"), 0o600))

	tok, err := New(config.TokenizerSettings{
		Lowercase:     true,
		MinLen:        3,
		StopwordsPath: stopwordsPath,
	})
	require.NoError(t, err)

	got := tok.Tokenize("The cat sat on the mat")
	assert.Equal(t, []string{"cat", "sat", "mat"}, got)
}

func TestTokenize_DefaultRegexDropsShortRuns(t *testing.T) {
	tok, err := New(config.TokenizerSettings{Lowercase: true})
	require.NoError(t, err)

	got := tok.Tokenize("a bb ccc dddd")
	assert.Equal(t, []string{"ccc", "dddd"}, got)
}

func TestTokenize_PreservesOrderForPositions(t *testing.T) {
	tok, err := New(config.TokenizerSettings{Lowercase: true})
	require.NoError(t, err)

	got := tok.Tokenize("beta gamma beta")
	assert.Equal(t, []string{"beta", "gamma", "beta"}, got)
}

func TestTokenize_SnowballStemmer(t *testing.T) {
	tok, err := New(config.TokenizerSettings{Lowercase: true, Stemmer: "snowball"})
	require.NoError(t, err)

	got := tok.Tokenize("running runner runs")
	assert.Equal(t, []string{"run", "runner", "run"}, got)
}

func TestTokenize_MinLenAppliedAfterStemming(t *testing.T) {
	tok, err := New(config.TokenizerSettings{Lowercase: true, MinLen: 3, Stemmer: "snowball"})
	require.NoError(t, err)

	got := tok.Tokenize("flies")
	assert.Equal(t, []string{"fli"}, got)
}

func TestNew_RejectsUnknownStemmer(t *testing.T) {
	_, err := New(config.TokenizerSettings{Stemmer: "porter"})
	assert.Error(t, err)
}

func TestNew_RejectsBadRegex(t *testing.T) {
	_, err := New(config.TokenizerSettings{Regex: "(["})
	assert.Error(t, err)
}
