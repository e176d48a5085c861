// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evolve grows hypothesis lineages from the screened inspirations:
// seed, critique-and-revise refinement, recombination with alternate
// inspirations, and optional open self-exploration. Lineages never merge and
// snapshots are append-only, so every intermediate hypothesis stays
// auditable in the generation checkpoint.
package evolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/hypothesis-engine/internal/gateway"
	"github.com/pdiddy/hypothesis-engine/internal/screening"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Caller is the slice of the gateway the engine needs.
type Caller interface {
	Call(ctx context.Context, prompt string, shape gateway.Shape, opts gateway.CallOptions) (gateway.Result, error)
}

var (
	hypothesisShape = gateway.Shape{Name: "hypothesis", Required: []string{"reasoning", "hypothesis"}}
	critiqueShape   = gateway.Shape{Name: "critique", Required: []string{"feedback"}}
	scoreShape      = gateway.Shape{Name: "aspect_scores", Required: []string{"novelty", "validity", "significance", "clarity"}}
	exploreShape    = gateway.Shape{Name: "exploration", Required: []string{"needed", "knowledge"}}
)

// Engine runs the evolution stage. All collaborators are injected; the
// engine itself holds no ambient state.
type Engine struct {
	caller  Caller
	prompts Prompts
	cfg     types.EvolutionConfig
	out     io.Writer
}

// New builds an Engine. The config must validate; out receives progress and
// gap lines.
func New(caller Caller, prompts Prompts, cfg types.EvolutionConfig, out io.Writer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if prompts == nil {
		prompts = DefaultPrompts{Discipline: cfg.Discipline}
	}
	if out == nil {
		out = io.Discard
	}
	return &Engine{caller: caller, prompts: prompts, cfg: cfg, out: out}, nil
}

// Evolve runs seeding, refinement, recombination, and exploration over the
// shortlisted inspirations and returns the full lineage collection.
func (e *Engine) Evolve(ctx context.Context, bg types.ResearchBackground, corpus []types.InspirationCandidate, shortlist types.Shortlist) (types.Collection, error) {
	if err := bg.Validate(); err != nil {
		return types.Collection{}, err
	}
	if len(shortlist.Kept) == 0 {
		return types.Collection{}, fmt.Errorf("%w: shortlist is empty", types.ErrDataContract)
	}
	for _, k := range shortlist.Kept {
		if k.Index < 0 || k.Index >= len(corpus) {
			return types.Collection{}, fmt.Errorf("%w: shortlist index %d outside corpus", types.ErrDataContract, k.Index)
		}
	}

	// Seed one lineage per shortlisted inspiration. Seeds are independent,
	// so they may run concurrently; results land in stable slots keyed by
	// shortlist position, never arrival order.
	seeds := make([]*types.Lineage, len(shortlist.Kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for slot, kept := range shortlist.Kept {
		slot, kept := slot, kept
		g.Go(func() error {
			id := lineageID(kept.Index, 0)
			lineage, err := e.seedLineage(gctx, bg, corpus[kept.Index], kept.Index, id)
			if err != nil {
				if e.skippable(gctx, err) {
					fmt.Fprintf(e.out, "lineage %s: skipped after exhausted retries: %v\n", id, err)
					return nil
				}
				return err
			}
			seeds[slot] = lineage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Collection{}, err
	}

	// Recombine each surviving seed with alternate shortlisted inspirations.
	// Parents run concurrently; within a parent, mutations are sequential so
	// each recombination can be prompted to stay distinct from the prior
	// ones.
	mutations := make([][]*types.Lineage, len(seeds))
	if e.cfg.NumMutations > 0 {
		g, gctx = errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		for slot, parent := range seeds {
			if parent == nil {
				continue
			}
			slot, parent := slot, parent
			g.Go(func() error {
				lineages, err := e.recombineParent(gctx, bg, corpus, shortlist, parent)
				if err != nil {
					return err
				}
				mutations[slot] = lineages
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return types.Collection{}, err
		}
	}

	var lineages []types.Lineage
	for slot, parent := range seeds {
		if parent == nil {
			continue
		}
		lineages = append(lineages, *parent)
		for _, m := range mutations[slot] {
			lineages = append(lineages, *m)
		}
		if e.cfg.NumSelfExploreSteps > 0 {
			// Exploration takes the mutation ordinal after the recombination
			// budget so its ID never collides with a recombined lineage.
			explored, err := e.exploreParent(ctx, bg, parent, e.cfg.NumMutations+1)
			if err != nil {
				return types.Collection{}, err
			}
			if explored != nil {
				lineages = append(lineages, *explored)
			}
		}
	}

	lineages = e.capPopulation(lineages)

	collection := types.Collection{Question: bg.Question, Lineages: lineages}
	if err := collection.Validate(); err != nil {
		return types.Collection{}, err
	}
	return collection, nil
}

// seedLineage issues the seed call and runs the refinement chain.
func (e *Engine) seedLineage(ctx context.Context, bg types.ResearchBackground, insp types.InspirationCandidate, core int, id string) (*types.Lineage, error) {
	res, err := e.caller.Call(ctx, e.prompts.Seed(bg, insp), hypothesisShape, gateway.CallOptions{
		Op:          "seed " + id,
		Temperature: 1.0,
	})
	if err != nil {
		return nil, err
	}

	lineage := &types.Lineage{
		ID:              id,
		Origin:          types.OriginSeed,
		CoreInspiration: core,
		Snapshots: []types.Hypothesis{{
			ReasoningProcess: res.Text("reasoning"),
			HypothesisText:   res.Text("hypothesis"),
		}},
	}
	if err := e.refine(ctx, bg, insp, lineage); err != nil {
		return nil, err
	}
	return lineage, nil
}

// refine runs the configured critique-and-revise iterations, strictly
// sequential within the lineage. An exhausted call ends refinement early but
// keeps the snapshots produced so far.
func (e *Engine) refine(ctx context.Context, bg types.ResearchBackground, insp types.InspirationCandidate, lineage *types.Lineage) error {
	for iter := 1; iter <= e.cfg.NumSelfRefine; iter++ {
		latest := &lineage.Snapshots[len(lineage.Snapshots)-1]

		res, err := e.caller.Call(ctx, e.prompts.Critique(bg, insp, *latest), critiqueShape, gateway.CallOptions{
			Op:          fmt.Sprintf("critique %s iter %d", lineage.ID, iter),
			Temperature: 1.0,
		})
		if err != nil {
			if e.skippable(ctx, err) {
				fmt.Fprintf(e.out, "lineage %s: refinement stopped at iteration %d: %v\n", lineage.ID, iter, err)
				return nil
			}
			return err
		}
		latest.FeedbackText = res.Text("feedback")

		res, err = e.caller.Call(ctx, e.prompts.Revise(bg, insp, *latest), hypothesisShape, gateway.CallOptions{
			Op:          fmt.Sprintf("revise %s iter %d", lineage.ID, iter),
			Temperature: 1.0,
		})
		if err != nil {
			if e.skippable(ctx, err) {
				fmt.Fprintf(e.out, "lineage %s: refinement stopped at iteration %d: %v\n", lineage.ID, iter, err)
				return nil
			}
			return err
		}

		snapshot := types.Hypothesis{
			ReasoningProcess: res.Text("reasoning"),
			HypothesisText:   res.Text("hypothesis"),
		}
		if e.cfg.SelfScore {
			scores, err := e.selfScore(ctx, bg, snapshot.HypothesisText, lineage.ID, iter)
			if err != nil {
				return err
			}
			snapshot.Scores = scores
		}
		lineage.Snapshots = append(lineage.Snapshots, snapshot)
	}
	return nil
}

// selfScore fetches aspect scores for a snapshot. Unusable scores leave the
// snapshot unscored rather than failing the lineage.
func (e *Engine) selfScore(ctx context.Context, bg types.ResearchBackground, hypothesisText, id string, iter int) ([]float64, error) {
	res, err := e.caller.Call(ctx, e.prompts.SelfScore(bg, hypothesisText), scoreShape, gateway.CallOptions{
		Op:          fmt.Sprintf("self-score %s iter %d", id, iter),
		Temperature: 1.0,
	})
	if err != nil {
		if e.skippable(ctx, err) {
			fmt.Fprintf(e.out, "lineage %s: self-score skipped at iteration %d: %v\n", id, iter, err)
			return nil, nil
		}
		return nil, err
	}

	var aspects types.AspectScores
	if err := res.Decode(&aspects); err != nil {
		fmt.Fprintf(e.out, "lineage %s: unparseable self-score at iteration %d\n", id, iter)
		return nil, nil
	}
	scores := aspects.Slice()
	for _, s := range scores {
		if s < types.ScoreMin || s > types.ScoreMax {
			fmt.Fprintf(e.out, "lineage %s: out-of-range self-score at iteration %d\n", id, iter)
			return nil, nil
		}
	}
	return scores, nil
}

// recombineParent seeds new lineages from the parent's best hypothesis and
// alternate shortlisted inspirations.
func (e *Engine) recombineParent(ctx context.Context, bg types.ResearchBackground, corpus []types.InspirationCandidate, shortlist types.Shortlist, parent *types.Lineage) ([]*types.Lineage, error) {
	var (
		lineages []*types.Lineage
		prior    []string
		mutation = 1
	)
	best := bestHypothesis(*parent)

	for _, alt := range shortlist.Kept {
		if alt.Index == parent.CoreInspiration {
			continue
		}
		if mutation > e.cfg.NumMutations {
			break
		}
		id := lineageID(parent.CoreInspiration, mutation)

		res, err := e.caller.Call(ctx, e.prompts.Recombine(bg, best, corpus[alt.Index], prior), hypothesisShape, gateway.CallOptions{
			Op:          "recombine " + id,
			Temperature: 1.0,
		})
		if err != nil {
			if e.skippable(ctx, err) {
				fmt.Fprintf(e.out, "lineage %s: skipped after exhausted retries: %v\n", id, err)
				mutation++
				continue
			}
			return nil, err
		}

		lineage := &types.Lineage{
			ID:                id,
			Origin:            types.OriginRecombination,
			CoreInspiration:   parent.CoreInspiration,
			ExtraInspirations: []int{alt.Index},
			Snapshots: []types.Hypothesis{{
				ReasoningProcess: res.Text("reasoning"),
				HypothesisText:   res.Text("hypothesis"),
			}},
		}
		if err := e.refine(ctx, bg, corpus[alt.Index], lineage); err != nil {
			return nil, err
		}

		prior = append(prior, lineage.Snapshots[0].HypothesisText)
		lineages = append(lineages, lineage)
		mutation++
	}
	return lineages, nil
}

// exploreParent runs the open self-exploration steps for one parent and, if
// any extra knowledge was recalled, seeds an exploration lineage from it.
func (e *Engine) exploreParent(ctx context.Context, bg types.ResearchBackground, parent *types.Lineage, mutation int) (*types.Lineage, error) {
	steps := e.cfg.NumSelfExploreSteps
	if steps > e.cfg.MaxInspirationSearchSteps {
		steps = e.cfg.MaxInspirationSearchSteps
	}

	best := bestHypothesis(*parent)
	var knowledge []string
	for step := 1; step <= steps; step++ {
		res, err := e.caller.Call(ctx, e.prompts.Explore(bg, best, knowledge), exploreShape, gateway.CallOptions{
			Op:          fmt.Sprintf("explore %s step %d", parent.ID, step),
			Temperature: 1.0,
		})
		if err != nil {
			if e.skippable(ctx, err) {
				fmt.Fprintf(e.out, "lineage %s: exploration stopped at step %d: %v\n", parent.ID, step, err)
				break
			}
			return nil, err
		}
		if !strings.EqualFold(strings.TrimSpace(res.Text("needed")), "yes") {
			break
		}
		knowledge = append(knowledge, res.Text("knowledge"))
	}
	if len(knowledge) == 0 {
		return nil, nil
	}

	id := lineageID(parent.CoreInspiration, mutation)
	current := best
	current.FeedbackText = "Incorporate the following established knowledge: " + strings.Join(knowledge, " ; ")
	res, err := e.caller.Call(ctx, e.prompts.Revise(bg, types.InspirationCandidate{Title: "recalled knowledge", Abstract: current.FeedbackText}, current), hypothesisShape, gateway.CallOptions{
		Op:          "explore-revise " + id,
		Temperature: 1.0,
	})
	if err != nil {
		if e.skippable(ctx, err) {
			fmt.Fprintf(e.out, "lineage %s: skipped after exhausted retries: %v\n", id, err)
			return nil, nil
		}
		return nil, err
	}

	return &types.Lineage{
		ID:              id,
		Origin:          types.OriginExploration,
		CoreInspiration: parent.CoreInspiration,
		Snapshots: []types.Hypothesis{{
			ReasoningProcess: res.Text("reasoning"),
			HypothesisText:   res.Text("hypothesis"),
		}},
	}, nil
}

// capPopulation applies the windowed selection policy when the population
// exceeds the cap. Unscored lineages survive unconditionally: when scoring
// is deferred to the evaluator there is nothing defensible to cut on.
func (e *Engine) capPopulation(lineages []types.Lineage) []types.Lineage {
	if e.cfg.PopulationCap <= 0 || len(lineages) <= e.cfg.PopulationCap {
		return lineages
	}

	var (
		scoredPos []int
		scores    []float64
	)
	keep := make(map[int]bool, len(lineages))
	for i, l := range lineages {
		if score, ok := l.LatestScore(); ok {
			scoredPos = append(scoredPos, i)
			scores = append(scores, score)
		} else {
			keep[i] = true
		}
	}

	budget := e.cfg.PopulationCap - len(keep)
	if budget < 0 {
		budget = 0
	}
	for _, rank := range screening.KeepTop(scores, budget) {
		keep[scoredPos[rank]] = true
	}

	kept := make([]types.Lineage, 0, len(keep))
	for i, l := range lineages {
		if keep[i] {
			kept = append(kept, l)
		}
	}
	fmt.Fprintf(e.out, "population cap: kept %d of %d lineages\n", len(kept), len(lineages))
	return kept
}

// skippable reports whether an error is a terminal per-call failure the
// stage absorbs as a gap, rather than one that must abort the run.
func (e *Engine) skippable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var exhausted *gateway.ExhaustedError
	return errors.As(err, &exhausted)
}

// bestHypothesis returns the highest-scoring snapshot, falling back to the
// latest when the lineage is unscored.
func bestHypothesis(l types.Lineage) types.Hypothesis {
	best, ok := l.Latest()
	if !ok {
		return types.Hypothesis{}
	}
	bestScore, scored := best.AverageScore()
	for _, h := range l.Snapshots {
		if score, ok := h.AverageScore(); ok && (!scored || score > bestScore) {
			best, bestScore, scored = h, score, true
		}
	}
	return best
}

// lineageID builds the stable identifier for a lineage: background index
// (single-background runs use 0), core inspiration corpus index, mutation
// ordinal.
func lineageID(inspiration, mutation int) string {
	return fmt.Sprintf("b0-i%d-m%d", inspiration, mutation)
}
