package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIndexSettingsValid(t *testing.T) {
	assert.NoError(t, DefaultIndexSettings().Validate())
}

func TestValidate_CacheIncompatibleWithPositional(t *testing.T) {
	s := DefaultIndexSettings()
	s.Positional = true
	s.Cache = CacheBM25
	assert.Error(t, s.Validate())
}

func TestValidate_UnknownCacheMode(t *testing.T) {
	s := DefaultIndexSettings()
	s.Cache = CacheMode("lfu")
	assert.Error(t, s.Validate())
}

func TestValidate_BadSMARTCode(t *testing.T) {
	cases := []string{"", "ln", "lnxz", "xyz"}
	for _, code := range cases {
		s := DefaultIndexSettings()
		s.SMARTDoc = code
		assert.Errorf(t, s.Validate(), "expected error for SMART code %q", code)
	}
}

func TestValidate_BM25Params(t *testing.T) {
	s := DefaultIndexSettings()
	s.BM25K1 = -1
	assert.Error(t, s.Validate())

	s = DefaultIndexSettings()
	s.BM25B = 1.5
	assert.Error(t, s.Validate())
}

func TestValidate_BadRegex(t *testing.T) {
	s := DefaultIndexSettings()
	s.Tokenizer.Regex = "(["
	assert.Error(t, s.Validate())
}

func TestValidateRankingMode(t *testing.T) {
	assert.NoError(t, ValidateRankingMode(RankingBM25))
	assert.NoError(t, ValidateRankingMode(RankingTFIDF))
	assert.Error(t, ValidateRankingMode(RankingMode("ranking.bogus")))
}
