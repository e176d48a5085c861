// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// The persisted hypothesis record is a 4-element array:
//
//	[reasoning_process, hypothesis_text, feedback_text, scores]
//
// This positional mapping exists only here. Everything above the checkpoint
// layer addresses hypotheses by named field; a record with the wrong arity
// or out-of-range scores is a data contract violation, never coerced.
const wireHypothesisArity = 4

type wireHypothesis types.Hypothesis

func (w wireHypothesis) MarshalJSON() ([]byte, error) {
	scores := w.Scores
	if scores == nil {
		scores = []float64{}
	}
	return json.Marshal([]any{w.ReasoningProcess, w.HypothesisText, w.FeedbackText, scores})
}

func (w *wireHypothesis) UnmarshalJSON(data []byte) error {
	var record []json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("%w: hypothesis record is not an array: %v", types.ErrDataContract, err)
	}
	if len(record) != wireHypothesisArity {
		return fmt.Errorf("%w: hypothesis record has %d elements, want %d",
			types.ErrDataContract, len(record), wireHypothesisArity)
	}

	for i, dst := range []*string{&w.ReasoningProcess, &w.HypothesisText, &w.FeedbackText} {
		if err := json.Unmarshal(record[i], dst); err != nil {
			return fmt.Errorf("%w: hypothesis record element %d is not a string: %v",
				types.ErrDataContract, i, err)
		}
	}
	if err := json.Unmarshal(record[3], &w.Scores); err != nil {
		return fmt.Errorf("%w: hypothesis record scores are not numbers: %v",
			types.ErrDataContract, err)
	}
	if len(w.Scores) == 0 {
		w.Scores = nil
	}
	return types.Hypothesis(*w).Validate()
}

type wireLineage struct {
	ID                string              `json:"id"`
	Origin            types.LineageOrigin `json:"origin"`
	CoreInspiration   int                 `json:"core_inspiration"`
	ExtraInspirations []int               `json:"extra_inspirations,omitempty"`
	Snapshots         []wireHypothesis    `json:"snapshots"`
}

type wireCollection struct {
	Question string        `json:"question"`
	Lineages []wireLineage `json:"lineages"`
}

func toWireCollection(c types.Collection) wireCollection {
	wc := wireCollection{Question: c.Question, Lineages: make([]wireLineage, len(c.Lineages))}
	for i, l := range c.Lineages {
		snapshots := make([]wireHypothesis, len(l.Snapshots))
		for j, h := range l.Snapshots {
			snapshots[j] = wireHypothesis(h)
		}
		wc.Lineages[i] = wireLineage{
			ID:                l.ID,
			Origin:            l.Origin,
			CoreInspiration:   l.CoreInspiration,
			ExtraInspirations: l.ExtraInspirations,
			Snapshots:         snapshots,
		}
	}
	return wc
}

func (wc wireCollection) toCollection() types.Collection {
	c := types.Collection{Question: wc.Question, Lineages: make([]types.Lineage, len(wc.Lineages))}
	for i, wl := range wc.Lineages {
		snapshots := make([]types.Hypothesis, len(wl.Snapshots))
		for j, wh := range wl.Snapshots {
			snapshots[j] = types.Hypothesis(wh)
		}
		c.Lineages[i] = types.Lineage{
			ID:                wl.ID,
			Origin:            wl.Origin,
			CoreInspiration:   wl.CoreInspiration,
			ExtraInspirations: wl.ExtraInspirations,
			Snapshots:         snapshots,
		}
	}
	return c
}
