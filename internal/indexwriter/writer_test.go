package indexwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/spimi"
)

func TestWriteDictionaryAndJumpTable(t *testing.T) {
	dir := t.TempDir()
	dict := []spimi.DictEntry{
		{Term: "alpha", DF: 1},
		{Term: "beta", DF: 2},
		{Term: "bee", DF: 1},
		{Term: "gamma", DF: 1},
	}

	require.NoError(t, WriteDictionaryAndJumpTable(dir, dict))

	content, err := os.ReadFile(filepath.Join(dir, DictionaryFile))
	require.NoError(t, err)
	assert.Equal(t, "alpha:1\nbeta:2\nbee:1\ngamma:1\n", string(content))

	table, err := LoadJumpTable(dir)
	require.NoError(t, err)
	assert.Equal(t, []JumpEntry{
		{Prefix: "al", Line: 0},
		{Prefix: "be", Line: 1},
		{Prefix: "ga", Line: 3},
	}, table)
}

func TestDocNormsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	norms := []float64{1.4142, 0, 3.6056}

	require.NoError(t, WriteDocNorms(dir, norms))

	got, err := LoadDocNorms(dir)
	require.NoError(t, err)
	assert.Equal(t, norms, got)
}

func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := Metadata{
		Settings: config.DefaultIndexSettings(),
		NumDocs:  42,
		AvgDL:    12.5,
	}
	require.NoError(t, WriteMetadata(dir, meta))

	got, err := LoadMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}
