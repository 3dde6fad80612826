package reader

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/model"
)

func TestReader_PlainJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.jsonl")
	content := "{\"pmid\":\"A\",\"title\":\"alpha beta\",\"abstract\":\"beta\"}\n\n{\"pmid\":\"B\",\"title\":\"beta gamma\",\"abstract\":\"gamma gamma\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := Open[model.CorpusDoc](path)
	require.NoError(t, err)
	defer r.Close()

	docs, err := r.All()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A", docs[0].PMID)
	assert.Equal(t, "B", docs[1].PMID)
}

func TestReader_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.jsonl.gz")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("{\"pmid\":\"A\",\"title\":\"x\",\"abstract\":\"y\"}\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	r, err := Open[model.CorpusDoc](path)
	require.NoError(t, err)
	defer r.Close()

	docs, err := r.All()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "A", docs[0].PMID)
}

func TestReader_MalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o600))

	r, err := Open[model.CorpusDoc](path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.All()
	assert.Error(t, err)
}

func TestReader_MissingFile(t *testing.T) {
	_, err := Open[model.CorpusDoc]("/nonexistent/path.jsonl")
	assert.Error(t, err)
}
