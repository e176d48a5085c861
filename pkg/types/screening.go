// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ScreenedInspiration is one corpus candidate kept by the screener.
type ScreenedInspiration struct {
	// Index is the candidate's position in the corpus, its identity.
	Index int `json:"index"`

	// Title is carried for readability of the checkpoint; the corpus
	// remains the source of truth.
	Title string `json:"title"`

	// Score is the model relevance score from the round that last kept
	// this candidate.
	Score float64 `json:"score"`

	// Reason is the model's justification for keeping the candidate.
	Reason string `json:"reason,omitempty"`
}

// RoundRecord is the provenance of one screening round.
type RoundRecord struct {
	// Round is the 1-based round number.
	Round int `json:"round"`

	// Window lists the corpus indices presented this round.
	Window []int `json:"window"`

	// Kept lists the corpus indices that survived this round, in rank order.
	Kept []int `json:"kept"`

	// Gaps lists corpus indices whose screening calls exhausted retries and
	// were skipped. The run continues; the gap is recorded here.
	Gaps []int `json:"gaps,omitempty"`
}

// HitStats measures retrieval quality in benchmark mode, when the true
// inspirations for the background are known.
type HitStats struct {
	// GroundTruth lists the corpus indices of the known inspirations.
	GroundTruth []int `json:"ground_truth"`

	// Found lists the ground-truth indices present in the final shortlist.
	Found []int `json:"found"`

	// Top1 is 1 when the top-ranked survivor is a ground-truth inspiration.
	Top1 float64 `json:"top1"`

	// TopN is the fraction of ground-truth inspirations in the shortlist.
	TopN float64 `json:"topn"`
}

// Shortlist is the screener's checkpoint artifact: the surviving
// inspirations in final-round rank order plus per-round provenance.
type Shortlist struct {
	Question string                `json:"question"`
	Kept     []ScreenedInspiration `json:"kept"`
	Rounds   []RoundRecord         `json:"rounds"`

	// Hits is populated only in benchmark mode.
	Hits *HitStats `json:"hits,omitempty"`
}

// Validate checks the shortlist's internal consistency.
func (s Shortlist) Validate() error {
	seen := make(map[int]bool, len(s.Kept))
	for _, k := range s.Kept {
		if k.Index < 0 {
			return fmt.Errorf("%w: shortlist has negative corpus index %d", ErrDataContract, k.Index)
		}
		if seen[k.Index] {
			return fmt.Errorf("%w: shortlist has duplicate corpus index %d", ErrDataContract, k.Index)
		}
		seen[k.Index] = true
	}
	return nil
}
