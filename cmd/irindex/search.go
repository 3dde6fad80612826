package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/query"
	"github.com/irindex/irindex/internal/reader"
	"github.com/irindex/irindex/model"
)

func newSearchCmd() *cobra.Command {
	var (
		indexDir    string
		queriesPath string
		outPath     string
		mode        string
		topK        int
		bm25K1      float64
		bm25B       float64
		smartQuery  string
		hasBM25K1   bool
		hasBM25B    bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a completed index in batch or interactive mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := query.Options{}
			if hasBM25K1 {
				opts.BM25K1 = &bm25K1
			}
			if hasBM25B {
				opts.BM25B = &bm25B
			}
			opts.SMARTQuery = smartQuery

			searcher, err := query.NewSearcher(indexDir, config.RankingMode(mode), opts)
			if err != nil {
				return err
			}
			defer searcher.Close()

			if interactive {
				return runInteractive(searcher, topK)
			}
			return runBatch(searcher, queriesPath, outPath, topK)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "index directory produced by 'irindex index'")
	cmd.Flags().StringVar(&queriesPath, "queries", "", "path to a line-delimited JSON queries file")
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the run file to")
	cmd.Flags().StringVar(&mode, "mode", string(config.RankingBM25), "ranking.bm25 or ranking.tfidf")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of results to return per query")
	cmd.Flags().Func("bm25-k1", "override the index's BM25 k1 (ignored when a score cache is active)", func(v string) error {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			return err
		}
		bm25K1, hasBM25K1 = f, true
		return nil
	})
	cmd.Flags().Func("bm25-b", "override the index's BM25 b (ignored when a score cache is active)", func(v string) error {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			return err
		}
		bm25B, hasBM25B = f, true
		return nil
	})
	cmd.Flags().StringVar(&smartQuery, "smart", "", "override the query-side SMART code (ignored when a score cache is active)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "read queries from standard input until a blank line")
	cmd.MarkFlagRequired("index")

	return cmd
}

func runBatch(searcher query.Searcher, queriesPath, outPath string, topK int) error {
	if queriesPath == "" || outPath == "" {
		return errors.NewConfigError("search", "--queries and --out are required outside --interactive mode")
	}

	queriesReader, err := reader.Open[model.Query](queriesPath)
	if err != nil {
		return err
	}
	defer queriesReader.Close()

	out, err := os.Create(outPath) // #nosec G304 -- out path is controlled by the CLI invocation
	if err != nil {
		return errors.NewIOError(outPath, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	for {
		q, ok, err := queriesReader.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		results, err := searcher.Search(q.QueryText)
		if err != nil {
			return err
		}
		if len(results) > topK {
			results = results[:topK]
		}

		entry := model.RunEntry{
			QueryID:       q.QueryID,
			DocumentsPMID: make([]string, len(results)),
			Scores:        make([]float64, len(results)),
		}
		for i, r := range results {
			entry.DocumentsPMID[i] = r.PMID
			entry.Scores[i] = r.Score
		}

		line, err := json.Marshal(entry)
		if err != nil {
			return errors.NewIOError(outPath, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return errors.NewIOError(outPath, err)
		}
	}
	return nil
}

func runInteractive(searcher query.Searcher, topK int) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		results, err := searcher.Search(line)
		if err != nil {
			return err
		}
		if len(results) > topK {
			results = results[:topK]
		}
		for i, r := range results {
			fmt.Printf("%2d. %s\t%.4f\n", i+1, r.PMID, r.Score)
		}
	}
}
