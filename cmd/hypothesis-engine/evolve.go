// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/checkpoint"
	"github.com/pdiddy/hypothesis-engine/internal/corpus"
	"github.com/pdiddy/hypothesis-engine/internal/evolve"
	"github.com/pdiddy/hypothesis-engine/internal/trace"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve hypothesis lineages from the screened shortlist",
	Long: `Evolve seeds one hypothesis lineage per shortlisted inspiration, refines
each by critique-and-revise iterations, branches recombination lineages
against the other shortlisted inspirations, and optionally runs open
self-exploration. The resulting collection is written to the generation
checkpoint.

Requires the screening checkpoint; skipped if the generation checkpoint
already exists.`,
	RunE: runEvolve,
}

func runEvolve(cmd *cobra.Command, args []string) error {
	store, err := checkpoint.NewStore(checkpointDir())
	if err != nil {
		return err
	}
	if store.Exists(checkpoint.CollectionFile) {
		fmt.Fprintf(os.Stderr, "evolve: checkpoint %s exists, skipping\n", store.Path(checkpoint.CollectionFile))
		return nil
	}

	shortlist, err := store.LoadShortlist()
	if err != nil {
		return fmt.Errorf("loading screening checkpoint: %w", err)
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

	tr, err := trace.Open(traceDir(), "evolve", bg.Question)
	if err != nil {
		return err
	}
	defer tr.Close()

	selfScore, _ := cmd.Flags().GetBool("self-score")
	cfg := types.EvolutionConfig{
		NumSelfRefine:             intSetting(cmd, "num-self-refine", "evolution.num_self_refine"),
		NumMutations:              intSetting(cmd, "num-mutations", "evolution.num_mutations"),
		NumSelfExploreSteps:       intSetting(cmd, "self-explore-steps", "evolution.num_self_explore_steps"),
		MaxInspirationSearchSteps: intSetting(cmd, "max-search-steps", "evolution.max_inspiration_search_steps"),
		PopulationCap:             intSetting(cmd, "population-cap", "evolution.population_cap"),
		SelfScore:                 selfScore,
		Workers:                   intSetting(cmd, "workers", "evolution.workers"),
		Discipline:                stringSetting(cmd, "discipline", "evolution.discipline"),
	}

	engine, err := evolve.New(newGateway(gwCfg, tr), nil, cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tr.Event(ctx, "stage started", fmt.Sprintf("%d shortlisted inspirations", len(shortlist.Kept)))

	collection, err := engine.Evolve(ctx, bg, candidates, shortlist)
	if err != nil {
		tr.Finish(ctx, err.Error())
		return err
	}
	if err := store.SaveCollection(collection); err != nil {
		tr.Finish(ctx, err.Error())
		return err
	}

	tr.Event(ctx, "checkpoint written", checkpoint.CollectionFile)
	tr.Finish(ctx, "ok")

	fmt.Printf("Evolved %d lineages from %d inspirations\n", len(collection.Lineages), len(shortlist.Kept))
	return nil
}

func init() {
	evolveCmd.Flags().String("corpus", "corpus.json", "inspiration corpus file")
	evolveCmd.Flags().String("background", "background.json", "research background file")
	evolveCmd.Flags().Int("num-self-refine", 3, "critique-and-revise iterations per lineage")
	evolveCmd.Flags().Int("num-mutations", 3, "recombination lineages per seed")
	evolveCmd.Flags().Int("self-explore-steps", 0, "open self-exploration steps (0 disables)")
	evolveCmd.Flags().Int("max-search-steps", 3, "upper bound on exploration steps")
	evolveCmd.Flags().Int("population-cap", 0, "live lineage cap (0 disables)")
	evolveCmd.Flags().Bool("self-score", false, "score each refinement as it is produced")
	evolveCmd.Flags().Int("workers", 1, "concurrent generation calls for independent lineages")
	evolveCmd.Flags().String("discipline", "", "research field used in prompts")
	evolveCmd.Flags().String("model", "", "generation model identifier")
	evolveCmd.Flags().String("base-url", "", "OpenAI-compatible API endpoint")

	rootCmd.AddCommand(evolveCmd)
}
