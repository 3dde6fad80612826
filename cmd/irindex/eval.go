package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/irindex/irindex/internal/eval"
	"github.com/irindex/irindex/internal/reader"
	"github.com/irindex/irindex/model"
)

func newEvalCmd() *cobra.Command {
	var goldPath, runPath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compare a run file against gold-standard judgments",
		RunE: func(cmd *cobra.Command, args []string) error {
			goldReader, err := reader.Open[model.GoldEntry](goldPath)
			if err != nil {
				return err
			}
			defer goldReader.Close()
			gold, err := goldReader.All()
			if err != nil {
				return err
			}

			runReader, err := reader.Open[model.RunEntry](runPath)
			if err != nil {
				return err
			}
			defer runReader.Close()
			runs, err := runReader.All()
			if err != nil {
				return err
			}

			report, err := eval.Evaluate(gold, runs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode([]any{report.Meta, report.Results})
		},
	}

	cmd.Flags().StringVar(&goldPath, "gold", "", "path to the gold-standard judgments file")
	cmd.Flags().StringVar(&runPath, "run", "", "path to the run file to evaluate")
	cmd.MarkFlagRequired("gold")
	cmd.MarkFlagRequired("run")

	return cmd
}
