// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/checkpoint"
	"github.com/pdiddy/hypothesis-engine/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the evaluation ranking as a readable document",
	Long: `Report reads the evaluation checkpoint and renders the ranked hypotheses
as a Markdown document with a YAML front matter block. It makes no
generation calls. Writes to stdout unless --out is given.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := checkpoint.NewStore(checkpointDir())
	if err != nil {
		return err
	}

	ranking, err := store.LoadRanking()
	if err != nil {
		return fmt.Errorf("loading evaluation checkpoint: %w", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return report.Render(os.Stdout, ranking, time.Now())
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := report.Render(f, ranking, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote report to %s\n", out)
	return nil
}

func init() {
	reportCmd.Flags().String("out", "", "report file (default: stdout)")

	rootCmd.AddCommand(reportCmd)
}
