// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/checkpoint"
	"github.com/pdiddy/hypothesis-engine/internal/corpus"
	"github.com/pdiddy/hypothesis-engine/internal/screening"
	"github.com/pdiddy/hypothesis-engine/internal/trace"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the inspiration corpus against the research background",
	Long: `Screen runs multi-round windowed elimination over the corpus: each round
presents a window of candidates to the model, keeps the most relevant few,
and refills the window with unseen candidates. The surviving shortlist is
written to the screening checkpoint.

If the screening checkpoint already exists the stage is skipped, so a
resumed run never repeats completed work.`,
	RunE: runScreen,
}

func runScreen(cmd *cobra.Command, args []string) error {
	store, err := checkpoint.NewStore(checkpointDir())
	if err != nil {
		return err
	}
	if store.Exists(checkpoint.ShortlistFile) {
		fmt.Fprintf(os.Stderr, "screen: checkpoint %s exists, skipping\n", store.Path(checkpoint.ShortlistFile))
		return nil
	}

	backgroundPath, _ := cmd.Flags().GetString("background")
	bg, err := corpus.LoadBackground(backgroundPath)
	if err != nil {
		return err
	}

	corpusPath, _ := cmd.Flags().GetString("corpus")
	candidates, err := corpus.LoadCandidates(corpusPath)
	if err != nil {
		return err
	}

	gwCfg, err := gatewayConfig(cmd)
	if err != nil {
		return err
	}

	tr, err := trace.Open(traceDir(), "screen", bg.Question)
	if err != nil {
		return err
	}
	defer tr.Close()

	cfg := types.ScreeningConfig{
		Rounds:            intSetting(cmd, "rounds", "screening.rounds"),
		WindowSize:        intSetting(cmd, "window", "screening.window_size"),
		KeepSize:          intSetting(cmd, "keep", "screening.keep_size"),
		ChunkSize:         intSetting(cmd, "chunk", "screening.chunk_size"),
		ForceIncludeRound: intSetting(cmd, "force-include-round", "screening.force_include_round"),
	}
	cfg.GroundTruth, _ = cmd.Flags().GetIntSlice("ground-truth")

	screener, err := screening.New(newGateway(gwCfg, tr), cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tr.Event(ctx, "stage started", fmt.Sprintf("%d candidates", len(candidates)))

	shortlist, err := screener.Screen(ctx, bg, candidates)
	if err != nil {
		tr.Finish(ctx, err.Error())
		return err
	}
	if err := store.SaveShortlist(shortlist); err != nil {
		tr.Finish(ctx, err.Error())
		return err
	}

	tr.Event(ctx, "checkpoint written", checkpoint.ShortlistFile)
	tr.Finish(ctx, "ok")

	fmt.Printf("Kept %d of %d candidates across %d rounds\n", len(shortlist.Kept), len(candidates), len(shortlist.Rounds))
	if shortlist.Hits != nil {
		fmt.Printf("Benchmark hits: top1 %.0f, topN %.2f\n", shortlist.Hits.Top1, shortlist.Hits.TopN)
	}
	return nil
}

func init() {
	screenCmd.Flags().String("corpus", "corpus.json", "inspiration corpus file")
	screenCmd.Flags().String("background", "background.json", "research background file")
	screenCmd.Flags().Int("rounds", 4, "number of screening rounds")
	screenCmd.Flags().Int("window", 12, "candidates per window")
	screenCmd.Flags().Int("keep", 3, "survivors per round")
	screenCmd.Flags().Int("chunk", 0, "candidates per generation call (0 = window size)")
	screenCmd.Flags().Int("force-include-round", -1, "inject ground-truth indices at this round (benchmark mode, -1 disables)")
	screenCmd.Flags().IntSlice("ground-truth", nil, "corpus indices of known inspirations (benchmark mode)")
	screenCmd.Flags().String("model", "", "generation model identifier")
	screenCmd.Flags().String("base-url", "", "OpenAI-compatible API endpoint")

	rootCmd.AddCommand(screenCmd)
}
