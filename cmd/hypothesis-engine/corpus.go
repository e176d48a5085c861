// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/corpus"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Build or validate the inspiration corpus",
	Long: `Corpus prepares the inspiration corpus the screening stage consumes: an
ordered JSON list of [title, abstract] pairs. With --excel it converts a
spreadsheet export (title and abstract columns, deduplicated and cleaned);
without it, it validates an existing corpus file.`,
	RunE: runCorpus,
}

func runCorpus(cmd *cobra.Command, args []string) error {
	excelPath, _ := cmd.Flags().GetString("excel")
	sheet, _ := cmd.Flags().GetString("sheet")
	out, _ := cmd.Flags().GetString("out")

	if excelPath != "" {
		candidates, err := corpus.FromExcel(excelPath, sheet)
		if err != nil {
			return err
		}
		if err := corpus.SaveCandidates(out, candidates); err != nil {
			return err
		}
		fmt.Printf("Wrote %d candidates to %s\n", len(candidates), out)
		return nil
	}

	candidates, err := corpus.LoadCandidates(out)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d candidates, all valid\n", out, len(candidates))
	return nil
}

func init() {
	corpusCmd.Flags().String("excel", "", "spreadsheet export to build the corpus from")
	corpusCmd.Flags().String("sheet", "", "sheet name (default: first sheet)")
	corpusCmd.Flags().String("out", "corpus.json", "corpus file to write or validate")

	rootCmd.AddCommand(corpusCmd)
}
