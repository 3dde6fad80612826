package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/docmap"
	"github.com/irindex/irindex/internal/spimi"
	"github.com/irindex/irindex/internal/tokenizer"
)

func writeCollection(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIndex_ScenarioTwo_NonPositional(t *testing.T) {
	collection := writeCollection(t,
		`{"pmid":"A","title":"alpha beta","abstract":"beta"}`,
		`{"pmid":"B","title":"beta gamma","abstract":"gamma gamma"}`,
	)
	settings := config.DefaultIndexSettings()
	settings.Tokenizer.Lowercase = false // pass tokens through unchanged per scenario 2

	idx, err := NewIndexer(settings)
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "idx")
	stats, err := idx.Index(context.Background(), collection, outDir, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.NumDocs)

	content, err := os.ReadFile(filepath.Join(outDir, "postings.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha;0:1\nbeta;0:2;1:1\ngamma;1:3\n", string(content))

	dict, err := os.ReadFile(filepath.Join(outDir, "dictionary.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha:1\nbeta:2\ngamma:1\n", string(dict))
}

func TestIndex_DocMapWritten(t *testing.T) {
	collection := writeCollection(t, `{"pmid":"A","title":"The cat sat","abstract":"on the mat"}`)
	settings := config.DefaultIndexSettings()
	settings.Tokenizer.MinLen = 3
	settings.Tokenizer.StopwordsPath = writeStopwords(t, "the", "on")

	idx, err := NewIndexer(settings)
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "idx")
	_, err = idx.Index(context.Background(), collection, outDir, nil)
	require.NoError(t, err)

	dm, err := docmap.Open(filepath.Join(outDir, "docmap.txt"))
	require.NoError(t, err)
	defer dm.Close()

	entry, err := dm.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "A", entry.PMID)
	assert.Equal(t, 3, entry.DL)
}

func TestIndex_BatchSizeOneMatchesDefault(t *testing.T) {
	collection := writeCollection(t,
		`{"pmid":"A","title":"alpha beta","abstract":"beta"}`,
		`{"pmid":"B","title":"beta gamma","abstract":"gamma gamma"}`,
	)
	settings := config.DefaultIndexSettings()
	settings.Tokenizer.Lowercase = false

	idx, err := NewIndexer(settings)
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "idx")
	_, err = idx.Index(context.Background(), collection, outDir, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(outDir, "postings.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha;0:1\nbeta;0:2;1:1\ngamma;1:3\n", string(content))

	// Same corpus with one run file per document (batch_size=1), merged.
	tok, err := tokenizer.New(settings.Tokenizer)
	require.NoError(t, err)
	runDir := t.TempDir()
	dmPath := filepath.Join(runDir, "docmap.txt")
	dmWriter, err := docmap.NewWriter(dmPath)
	require.NoError(t, err)
	var runPaths []string
	totalDL := 0
	for i, text := range []string{"alpha beta beta", "beta gamma gamma gamma"} {
		tokens := tok.Tokenize(text)
		docID, err := dmWriter.Append(fmt.Sprintf("doc%d", i), len(tokens))
		require.NoError(t, err)
		builder := spimi.NewBuilder(spimi.NonPositional)
		builder.AddDocument(docID, tokens)
		runPath := filepath.Join(runDir, fmt.Sprintf("run-%d.txt", i))
		require.NoError(t, builder.Flush(runPath))
		runPaths = append(runPaths, runPath)
		totalDL += len(tokens)
	}
	require.NoError(t, dmWriter.Close())
	dm, err := docmap.Open(dmPath)
	require.NoError(t, err)
	defer dm.Close()

	mergedPath := filepath.Join(runDir, "postings.txt")
	_, err = spimi.Merge(runPaths, settings, 2, float64(totalDL)/2, dm, mergedPath, filepath.Join(runDir, "cache.txt"))
	require.NoError(t, err)
	perDocRuns, err := os.ReadFile(mergedPath)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(perDocRuns))
}

func writeStopwords(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	content := ""
	for _, w := range words {
		content += w + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
