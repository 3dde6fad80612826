// Package indexer wires the Tokenizer, Memory Governor, SPIMI builder and
// merger, document map, and index writer into the indexing entry point
// named in SPEC_FULL.md's data-flow diagram: build an index from a
// collection.
//
// The original indexer mutates an object's class at construction time to
// switch between positional and non-positional behavior; here that
// choice is a tagged variant resolved once by NewIndexer and never
// mutated afterward (SPEC_FULL.md §9).
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/docmap"
	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/indexwriter"
	"github.com/irindex/irindex/internal/memgov"
	"github.com/irindex/irindex/internal/reader"
	"github.com/irindex/irindex/internal/spimi"
	"github.com/irindex/irindex/internal/tokenizer"
	"github.com/irindex/irindex/model"
)

// Stats summarizes a completed index build.
type Stats struct {
	NumDocs    int
	NumTerms   int
	AvgDL      float64
	NumRuns    int
	OutDir     string
	Positional bool
}

// ProgressFunc is invoked periodically during indexing with the number of
// documents processed so far, letting callers (the CLI, the jobs
// manager) report progress without this package depending on either.
type ProgressFunc func(current int)

// Indexer builds an index from a collection file into an output
// directory. NewIndexer returns one of two concrete, non-interchangeable
// implementations depending on settings.Positional.
type Indexer interface {
	Index(ctx context.Context, collectionPath, outDir string, onProgress ProgressFunc) (Stats, error)
}

// NewIndexer validates settings and returns the concrete Indexer for
// them.
func NewIndexer(settings config.IndexSettings) (Indexer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	tok, err := tokenizer.New(settings.Tokenizer)
	if err != nil {
		return nil, err
	}
	base := &baseIndexer{settings: settings, tokenizer: tok}
	if settings.Positional {
		return &positionalIndexer{base}, nil
	}
	return &nonPositionalIndexer{base}, nil
}

type baseIndexer struct {
	settings  config.IndexSettings
	tokenizer *tokenizer.Tokenizer
}

type positionalIndexer struct{ *baseIndexer }
type nonPositionalIndexer struct{ *baseIndexer }

func (i *positionalIndexer) Index(ctx context.Context, collectionPath, outDir string, onProgress ProgressFunc) (Stats, error) {
	return i.baseIndexer.index(ctx, collectionPath, outDir, onProgress)
}

func (i *nonPositionalIndexer) Index(ctx context.Context, collectionPath, outDir string, onProgress ProgressFunc) (Stats, error) {
	return i.baseIndexer.index(ctx, collectionPath, outDir, onProgress)
}

// index runs the shared pipeline; only the PostingsKind fed to
// spimi.NewBuilder differs between the two tagged variants.
func (b *baseIndexer) index(ctx context.Context, collectionPath, outDir string, onProgress ProgressFunc) (Stats, error) {
	if err := os.RemoveAll(outDir); err != nil {
		return Stats{}, errors.NewIOError(outDir, err)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return Stats{}, errors.NewIOError(outDir, err)
	}

	runDir, err := os.MkdirTemp(outDir, "runs-")
	if err != nil {
		return Stats{}, errors.NewIOError(outDir, err)
	}
	defer os.RemoveAll(runDir)

	corpus, err := reader.Open[model.CorpusDoc](collectionPath)
	if err != nil {
		return Stats{}, err
	}
	defer corpus.Close()

	dmPath := filepath.Join(outDir, indexwriter.DocMapFile)
	dmWriter, err := docmap.NewWriter(dmPath)
	if err != nil {
		return Stats{}, err
	}

	kind := spimi.KindFor(b.settings)
	gov := memgov.New(b.settings.MemoryFraction)

	var runPaths []string
	batchSize := memgov.ProbeBatchSize
	probed := false
	docsInBatch := 0
	processed := 0

	builder := spimi.NewBuilder(kind)
	probeStart := gov.CurrentUsage()

	flush := func() error {
		if docsInBatch == 0 {
			return nil
		}
		runPath := filepath.Join(runDir, fmt.Sprintf("run-%04d.txt", len(runPaths)))
		if err := builder.Flush(runPath); err != nil {
			return err
		}
		runPaths = append(runPaths, runPath)
		docsInBatch = 0
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return Stats{}, ctx.Err()
		default:
		}

		doc, ok, err := corpus.Next()
		if err != nil {
			return Stats{}, err
		}
		if !ok {
			break
		}

		tokens := b.tokenizer.Tokenize(doc.Title + " " + doc.Abstract)
		docID, err := dmWriter.Append(doc.PMID, len(tokens))
		if err != nil {
			return Stats{}, err
		}
		builder.AddDocument(docID, tokens)
		docsInBatch++
		processed++

		if !probed && processed == memgov.ProbeBatchSize {
			after := gov.CurrentUsage()
			delta := uint64(0)
			if after > probeStart {
				delta = after - probeStart
			}
			if err := flush(); err != nil {
				return Stats{}, err
			}
			batchSize = gov.ChooseBatchSize(delta)
			probed = true
		} else if probed && docsInBatch >= batchSize {
			if err := flush(); err != nil {
				return Stats{}, err
			}
		}

		if onProgress != nil && processed%1000 == 0 {
			onProgress(processed)
		}
	}
	if err := flush(); err != nil {
		return Stats{}, err
	}
	if err := dmWriter.Close(); err != nil {
		return Stats{}, err
	}
	if onProgress != nil {
		onProgress(processed)
	}

	if len(runPaths) == 0 {
		return Stats{}, errors.NewDataError(collectionPath, 0, "", "collection contained no documents")
	}

	dm, err := docmap.Open(dmPath)
	if err != nil {
		return Stats{}, err
	}
	defer dm.Close()

	n := dm.NumDocs()
	var totalDL int
	for i := 0; i < n; i++ {
		e, err := dm.Get(uint32(i))
		if err != nil {
			return Stats{}, err
		}
		totalDL += e.DL
	}
	avgdl := float64(totalDL) / float64(n)

	postingsPath := filepath.Join(outDir, indexwriter.PostingsFile)
	cachePath := filepath.Join(outDir, indexwriter.CacheFile)

	result, err := spimi.Merge(runPaths, b.settings, n, avgdl, dm, postingsPath, cachePath)
	if err != nil {
		return Stats{}, err
	}

	if err := indexwriter.WriteDictionaryAndJumpTable(outDir, result.Dictionary); err != nil {
		return Stats{}, err
	}
	if err := indexwriter.WriteDocNorms(outDir, result.DocNorms); err != nil {
		return Stats{}, err
	}

	meta := indexwriter.Metadata{Settings: b.settings, NumDocs: n, AvgDL: avgdl}
	if err := indexwriter.WriteMetadata(outDir, meta); err != nil {
		return Stats{}, err
	}

	return Stats{
		NumDocs:    n,
		NumTerms:   len(result.Dictionary),
		AvgDL:      avgdl,
		NumRuns:    len(runPaths),
		OutDir:     outDir,
		Positional: b.settings.Positional,
	}, nil
}
