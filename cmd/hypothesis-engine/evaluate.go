// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/checkpoint"
	"github.com/pdiddy/hypothesis-engine/internal/evaluate"
	"github.com/pdiddy/hypothesis-engine/internal/trace"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score and rank the evolved hypothesis collection",
	Long: `Evaluate scores each lineage's latest hypothesis on four aspects (novelty,
validity, significance, clarity), averages them, and ranks the collection
in descending order. With --ground-truth-hypothesis it additionally records
how well each candidate matches the reference, without affecting the rank.

Requires the generation checkpoint; skipped if the evaluation checkpoint
already exists.`,
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	store, err := checkpoint.NewStore(checkpointDir())
	if err != nil {
		return err
	}
	if store.Exists(checkpoint.RankingFile) {
		fmt.Fprintf(os.Stderr, "evaluate: checkpoint %s exists, skipping\n", store.Path(checkpoint.RankingFile))
		return nil
	}

	collection, err := store.LoadCollection()
	if err != nil {
		return fmt.Errorf("loading generation checkpoint: %w", err)
	}

	gwCfg, err := gatewayConfig(cmd)
	if err != nil {
		return err
	}

	tr, err := trace.Open(traceDir(), "evaluate", collection.Question)
	if err != nil {
		return err
	}
	defer tr.Close()

	cfg := types.EvaluationConfig{
		GroundTruthHypothesis: stringSetting(cmd, "ground-truth-hypothesis", "evaluation.ground_truth_hypothesis"),
		Discipline:            stringSetting(cmd, "discipline", "evaluation.discipline"),
	}

	evaluator := evaluate.New(newGateway(gwCfg, tr), cfg, os.Stderr)

	ctx := context.Background()
	tr.Event(ctx, "stage started", fmt.Sprintf("%d lineages", len(collection.Lineages)))

	ranking, err := evaluator.Evaluate(ctx, collection)
	if err != nil {
		tr.Finish(ctx, err.Error())
		return err
	}
	if err := store.SaveRanking(ranking); err != nil {
		tr.Finish(ctx, err.Error())
		return err
	}

	tr.Event(ctx, "checkpoint written", checkpoint.RankingFile)
	tr.Finish(ctx, "ok")

	fmt.Printf("Ranked %d of %d lineages\n", len(ranking.Results), len(collection.Lineages))
	if len(ranking.Results) > 0 {
		top := ranking.Results[0]
		fmt.Printf("Top: %s (%.2f)\n", top.LineageID, top.AverageScore)
	}
	return nil
}

func init() {
	evaluateCmd.Flags().String("ground-truth-hypothesis", "", "reference hypothesis for matched scoring (benchmark mode)")
	evaluateCmd.Flags().String("discipline", "", "research field used in prompts")
	evaluateCmd.Flags().String("model", "", "generation model identifier")
	evaluateCmd.Flags().String("base-url", "", "OpenAI-compatible API endpoint")

	rootCmd.AddCommand(evaluateCmd)
}
