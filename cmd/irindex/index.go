package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/indexer"
)

func newIndexCmd() *cobra.Command {
	var (
		collection  string
		outDir      string
		positional  bool
		cache       string
		bm25K1      float64
		bm25B       float64
		smart       string
		minLen      int
		stopwords   string
		stemmer     string
		regex       string
		lowercase   bool
		memFraction float64
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build an index from a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			docSmart, querySmart, err := parseSmartPair(smart)
			if err != nil {
				return err
			}

			settings := config.DefaultIndexSettings()
			settings.Positional = positional
			settings.Cache = config.CacheMode(cache)
			settings.BM25K1 = bm25K1
			settings.BM25B = bm25B
			settings.SMARTDoc = docSmart
			settings.SMARTQuery = querySmart
			settings.MemoryFraction = memFraction
			settings.Tokenizer.MinLen = minLen
			settings.Tokenizer.StopwordsPath = stopwords
			settings.Tokenizer.Regex = regex
			settings.Tokenizer.Lowercase = lowercase
			if stemmer == "none" {
				settings.Tokenizer.Stemmer = ""
			} else {
				settings.Tokenizer.Stemmer = stemmer
			}

			idx, err := indexer.NewIndexer(settings)
			if err != nil {
				return err
			}

			stats, err := idx.Index(context.Background(), collection, outDir, func(current int) {
				log.Printf("indexed %d documents", current)
			})
			if err != nil {
				return err
			}

			fmt.Printf("indexed %d documents, %d terms, avgdl=%.2f, %d runs -> %s\n",
				stats.NumDocs, stats.NumTerms, stats.AvgDL, stats.NumRuns, stats.OutDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "path to the input collection (JSONL, optionally gzipped)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for the built index")
	cmd.Flags().BoolVar(&positional, "positional", false, "store per-occurrence token offsets instead of bare term frequencies")
	cmd.Flags().StringVar(&cache, "cache", string(config.CacheNone), "score cache: bm25, tfidf, or none")
	cmd.Flags().Float64Var(&bm25K1, "bm25-k1", 1.2, "BM25 term-frequency saturation parameter")
	cmd.Flags().Float64Var(&bm25B, "bm25-b", 0.75, "BM25 length-normalization parameter")
	cmd.Flags().StringVar(&smart, "smart", "lnc.ltc", "SMART weighting codes as doc.query, e.g. lnc.ltc")
	cmd.Flags().IntVar(&minLen, "min-len", 0, "drop tokens shorter than this many runes")
	cmd.Flags().StringVar(&stopwords, "stopwords", "", "path to a newline-delimited stopword list")
	cmd.Flags().StringVar(&stemmer, "stemmer", "none", "stemming algorithm: snowball or none")
	cmd.Flags().StringVar(&regex, "regex", "", "token-extraction regex, defaults to [A-Za-z0-9]{3,}")
	cmd.Flags().BoolVar(&lowercase, "lowercase", true, "fold tokens to lowercase before filtering")
	cmd.Flags().Float64Var(&memFraction, "mem-fraction", 0.5, "fraction of available host memory the memory governor may use")
	cmd.MarkFlagRequired("collection")
	cmd.MarkFlagRequired("out")

	return cmd
}

func parseSmartPair(s string) (docCode, queryCode string, err error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return "", "", errors.NewConfigError("smart", "expected doc.query SMART codes, e.g. lnc.ltc")
	}
	return parts[0], parts[1], nil
}
