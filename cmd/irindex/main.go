// Command irindex is the CLI surface named in SPEC_FULL.md §6: index a
// collection, search a completed index (batch or interactively), evaluate
// a run against gold judgments, or serve a completed index over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irindex/irindex/internal/errors"
)

func main() {
	root := &cobra.Command{
		Use:           "irindex",
		Short:         "SPIMI external-merge indexer and BM25/SMART-TF-IDF search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newIndexCmd(), newSearchCmd(), newEvalCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "irindex:", err)
		os.Exit(errors.ExitCode(err))
	}
}
