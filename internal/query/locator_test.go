package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/indexer"
)

func buildScenarioTwoIndex(t *testing.T) string {
	t.Helper()
	collection := filepath.Join(t.TempDir(), "collection.jsonl")
	content := `{"pmid":"A","title":"alpha beta","abstract":"beta"}
{"pmid":"B","title":"beta gamma","abstract":"gamma gamma"}
`
	require.NoError(t, os.WriteFile(collection, []byte(content), 0o600))

	settings := config.DefaultIndexSettings()
	settings.Tokenizer.Lowercase = false

	idx, err := indexer.NewIndexer(settings)
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "idx")
	_, err = idx.Index(context.Background(), collection, outDir, nil)
	require.NoError(t, err)
	return outDir
}

func TestLocator_LookupFound(t *testing.T) {
	outDir := buildScenarioTwoIndex(t)

	loc, err := OpenLocator(outDir)
	require.NoError(t, err)
	defer loc.Close()

	df, raw, _, found, err := loc.Lookup("beta")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, df)
	assert.Equal(t, "0:2;1:1", raw)
}

func TestLocator_LookupMissingTermNotAnError(t *testing.T) {
	outDir := buildScenarioTwoIndex(t)

	loc, err := OpenLocator(outDir)
	require.NoError(t, err)
	defer loc.Close()

	_, _, _, found, err := loc.Lookup("zzz")
	require.NoError(t, err)
	assert.False(t, found)
}
