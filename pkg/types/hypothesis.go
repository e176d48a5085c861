// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the hypothesis-engine pipeline.
// See docs/ARCHITECTURE § Pipeline Interface, § Data Structures.
package types

import (
	"errors"
	"fmt"
)

// ErrDataContract marks a violation of the persisted data contract: a wire
// record with the wrong arity, a score outside its bounds, or similar
// corruption detected when ingesting a checkpoint. A run must refuse to
// proceed on this error rather than coerce the state.
var ErrDataContract = errors.New("data contract violation")

// ScoreMin and ScoreMax bound every evaluation score carried on a Hypothesis.
const (
	ScoreMin = 0.0
	ScoreMax = 10.0
)

// Hypothesis is the central evolving entity of the pipeline. ReasoningProcess
// is the meta-commentary produced alongside a refinement; HypothesisText is
// the hypothesis statement itself. The two are distinct, independently
// addressable fields — consumers must never rely on positional indexing to
// tell them apart (the persisted wire format is array-like, but that mapping
// lives solely in the checkpoint layer).
type Hypothesis struct {
	// ReasoningProcess explains the delta from the previous snapshot in a
	// lineage, or the derivation for a seed hypothesis.
	ReasoningProcess string `json:"reasoning_process"`

	// HypothesisText is the hypothesis statement.
	HypothesisText string `json:"hypothesis_text"`

	// FeedbackText is the critique the next refinement conditions on.
	// Empty until a refinement iteration produces one.
	FeedbackText string `json:"feedback_text,omitempty"`

	// Scores holds per-aspect evaluation scores, each in [ScoreMin, ScoreMax].
	// Empty until a self-evaluation or the evaluator runs.
	Scores []float64 `json:"scores,omitempty"`
}

// Validate checks the score bounds. Out-of-range scores are a data contract
// violation.
func (h Hypothesis) Validate() error {
	for i, s := range h.Scores {
		if s < ScoreMin || s > ScoreMax {
			return fmt.Errorf("%w: score[%d] = %g outside [%g, %g]",
				ErrDataContract, i, s, ScoreMin, ScoreMax)
		}
	}
	return nil
}

// AverageScore returns the arithmetic mean of Scores. The second return is
// false when no scores are present; callers must treat that as "unscored"
// rather than zero.
func (h Hypothesis) AverageScore() (float64, bool) {
	if len(h.Scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range h.Scores {
		sum += s
	}
	return sum / float64(len(h.Scores)), true
}
