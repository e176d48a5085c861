// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores each lineage's final hypothesis on the four-aspect
// rubric and ranks the results. Ranking is deterministic for a fixed
// collection and backend: descending average score, ties broken by lineage
// insertion order.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/montanaflynn/stats"

	"github.com/pdiddy/hypothesis-engine/internal/gateway"
	"github.com/pdiddy/hypothesis-engine/internal/screening"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Caller is the slice of the gateway the evaluator needs.
type Caller interface {
	Call(ctx context.Context, prompt string, shape gateway.Shape, opts gateway.CallOptions) (gateway.Result, error)
}

var (
	aspectShape = gateway.Shape{Name: "aspect_scores", Required: []string{"novelty", "validity", "significance", "clarity"}}
	matchShape  = gateway.Shape{Name: "matched_score", Required: []string{"match", "reason"}}
)

// MatchedScoreMax bounds the ground-truth matched score (a 0-5 Likert
// scale, unlike the 0-10 aspect rubric).
const MatchedScoreMax = 5.0

// Evaluator runs the evaluation stage.
type Evaluator struct {
	caller Caller
	cfg    types.EvaluationConfig
	out    io.Writer
}

// New builds an Evaluator.
func New(caller Caller, cfg types.EvaluationConfig, out io.Writer) *Evaluator {
	if out == nil {
		out = io.Discard
	}
	return &Evaluator{caller: caller, cfg: cfg, out: out}
}

// Evaluate scores every lineage's final hypothesis and returns the ranking.
// A lineage whose evaluation call exhausts retries is skipped and logged;
// the stage never aborts for one candidate.
func (ev *Evaluator) Evaluate(ctx context.Context, collection types.Collection) (types.Ranking, error) {
	if err := collection.Validate(); err != nil {
		return types.Ranking{}, err
	}

	var results []types.EvaluationResult
	for _, lineage := range collection.Lineages {
		final, ok := lineage.Latest()
		if !ok {
			fmt.Fprintf(ev.out, "lineage %s: empty, skipped\n", lineage.ID)
			continue
		}

		aspects, err := ev.scoreAspects(ctx, collection.Question, lineage.ID, final.HypothesisText)
		if err != nil {
			if ev.skippable(ctx, err) {
				fmt.Fprintf(ev.out, "lineage %s: evaluation skipped after exhausted retries: %v\n", lineage.ID, err)
				continue
			}
			return types.Ranking{}, err
		}

		mean, err := stats.Mean(stats.Float64Data(aspects.Slice()))
		if err != nil {
			return types.Ranking{}, fmt.Errorf("aggregating scores for %s: %w", lineage.ID, err)
		}

		result := types.EvaluationResult{
			LineageID:      lineage.ID,
			HypothesisText: final.HypothesisText,
			Aspects:        aspects,
			AverageScore:   mean,
		}

		if ev.cfg.GroundTruthHypothesis != "" {
			matched, err := ev.scoreMatch(ctx, lineage.ID, final.HypothesisText)
			if err != nil {
				if !ev.skippable(ctx, err) {
					return types.Ranking{}, err
				}
				fmt.Fprintf(ev.out, "lineage %s: matched score skipped: %v\n", lineage.ID, err)
			} else {
				result.GroundTruthScore = &matched
			}
		}

		results = append(results, result)
	}

	// Descending by average, ties keeping collection insertion order.
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.AverageScore
	}
	ranked := make([]types.EvaluationResult, 0, len(results))
	for rank, pos := range screening.KeepTop(scores, len(scores)) {
		r := results[pos]
		r.Rank = rank + 1
		ranked = append(ranked, r)
	}

	return types.Ranking{Question: collection.Question, Results: ranked}, nil
}

func (ev *Evaluator) scoreAspects(ctx context.Context, question, id, hypothesisText string) (types.AspectScores, error) {
	res, err := ev.caller.Call(ctx, aspectPrompt(ev.cfg.Discipline, question, hypothesisText), aspectShape, gateway.CallOptions{
		Op:          "evaluate " + id,
		Temperature: 1.0,
	})
	if err != nil {
		return types.AspectScores{}, err
	}

	var aspects types.AspectScores
	if err := res.Decode(&aspects); err != nil {
		return types.AspectScores{}, fmt.Errorf("decoding aspect scores for %s: %w", id, err)
	}
	for _, s := range aspects.Slice() {
		if s < types.ScoreMin || s > types.ScoreMax {
			return types.AspectScores{}, fmt.Errorf("%w: aspect score %g for %s outside [%g, %g]",
				types.ErrDataContract, s, id, types.ScoreMin, types.ScoreMax)
		}
	}
	return aspects, nil
}

func (ev *Evaluator) scoreMatch(ctx context.Context, id, hypothesisText string) (float64, error) {
	res, err := ev.caller.Call(ctx, matchPrompt(ev.cfg.Discipline, ev.cfg.GroundTruthHypothesis, hypothesisText), matchShape, gateway.CallOptions{
		Op:          "match " + id,
		Temperature: 1.0,
	})
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Match float64 `json:"match"`
	}
	if err := res.Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding matched score for %s: %w", id, err)
	}
	if parsed.Match < 0 || parsed.Match > MatchedScoreMax {
		return 0, fmt.Errorf("%w: matched score %g for %s outside [0, %g]",
			types.ErrDataContract, parsed.Match, id, MatchedScoreMax)
	}
	return parsed.Match, nil
}

func (ev *Evaluator) skippable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var exhausted *gateway.ExhaustedError
	return errors.As(err, &exhausted)
}
