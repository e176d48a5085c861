// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "checkpoints"))
	require.NoError(t, err)
	return s
}

func sampleCollection() types.Collection {
	return types.Collection{
		Question: "How can crystallization be directed at low temperature?",
		Lineages: []types.Lineage{
			{
				ID:              "b0-i2-m0",
				Origin:          types.OriginSeed,
				CoreInspiration: 2,
				Snapshots: []types.Hypothesis{
					{ReasoningProcess: "seed derivation", HypothesisText: "Use templated nucleation."},
					{
						ReasoningProcess: "addressed feedback on scope",
						HypothesisText:   "Use peptide-templated nucleation below 280K.",
						FeedbackText:     "too broad",
						Scores:           []float64{7, 8, 6.5, 9},
					},
				},
			},
			{
				ID:                "b0-i2-m1",
				Origin:            types.OriginRecombination,
				CoreInspiration:   2,
				ExtraInspirations: []int{5},
				Snapshots: []types.Hypothesis{
					{ReasoningProcess: "recombined with ionic-liquid solvents", HypothesisText: "Template in ionic liquid."},
				},
			},
		},
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := sampleCollection()

	require.NoError(t, s.SaveCollection(want))
	got, err := s.LoadCollection()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCollectionWireFormat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCollection(sampleCollection()))

	// The persisted snapshot must be the positional 4-element record.
	data, err := os.ReadFile(s.Path(CollectionFile))
	require.NoError(t, err)

	var raw struct {
		Lineages []struct {
			Snapshots [][]json.RawMessage `json:"snapshots"`
		} `json:"lineages"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotEmpty(t, raw.Lineages)
	for _, l := range raw.Lineages {
		for _, snap := range l.Snapshots {
			assert.Len(t, snap, 4)
		}
	}
}

func TestLoadCollectionRejectsWrongArity(t *testing.T) {
	s := newTestStore(t)
	content := `{
		"question": "q",
		"lineages": [{
			"id": "b0-i0-m0",
			"origin": "seed",
			"core_inspiration": 0,
			"snapshots": [["reasoning", "hypothesis", "feedback"]]
		}]
	}`
	require.NoError(t, os.WriteFile(s.Path(CollectionFile), []byte(content), 0o644))

	_, err := s.LoadCollection()
	assert.ErrorIs(t, err, types.ErrDataContract)
}

func TestLoadCollectionRejectsOutOfRangeScore(t *testing.T) {
	s := newTestStore(t)
	content := `{
		"question": "q",
		"lineages": [{
			"id": "b0-i0-m0",
			"origin": "seed",
			"core_inspiration": 0,
			"snapshots": [["reasoning", "hypothesis", "", [7, 11.5]]]
		}]
	}`
	require.NoError(t, os.WriteFile(s.Path(CollectionFile), []byte(content), 0o644))

	_, err := s.LoadCollection()
	assert.ErrorIs(t, err, types.ErrDataContract)
}

func TestLoadCollectionRejectsSwappedFieldTypes(t *testing.T) {
	s := newTestStore(t)
	// Scores in a string slot: must be refused, not coerced.
	content := `{
		"question": "q",
		"lineages": [{
			"id": "b0-i0-m0",
			"origin": "seed",
			"core_inspiration": 0,
			"snapshots": [[[7, 8], "hypothesis", "", "reasoning"]]
		}]
	}`
	require.NoError(t, os.WriteFile(s.Path(CollectionFile), []byte(content), 0o644))

	_, err := s.LoadCollection()
	assert.ErrorIs(t, err, types.ErrDataContract)
}

func TestShortlistRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := types.Shortlist{
		Question: "q",
		Kept: []types.ScreenedInspiration{
			{Index: 4, Title: "Paper E", Score: 9, Reason: "directly applicable"},
			{Index: 1, Title: "Paper B", Score: 7.5},
		},
		Rounds: []types.RoundRecord{
			{Round: 1, Window: []int{0, 1, 2, 3, 4}, Kept: []int{4, 1}, Gaps: []int{2}},
		},
		Hits: &types.HitStats{GroundTruth: []int{1, 9}, Found: []int{1}, Top1: 0, TopN: 0.5},
	}

	require.NoError(t, s.SaveShortlist(want))
	got, err := s.LoadShortlist()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveShortlistRejectsDuplicateIndex(t *testing.T) {
	s := newTestStore(t)
	sl := types.Shortlist{Kept: []types.ScreenedInspiration{{Index: 1}, {Index: 1}}}
	assert.ErrorIs(t, s.SaveShortlist(sl), types.ErrDataContract)
}

func TestRankingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	gt := 4.0
	want := types.Ranking{
		Question: "q",
		Results: []types.EvaluationResult{
			{
				LineageID:      "b0-i2-m0",
				HypothesisText: "Use peptide-templated nucleation below 280K.",
				Aspects:        types.AspectScores{Novelty: 8, Validity: 7, Significance: 9, Clarity: 8},
				AverageScore:   8,
				Rank:           1,
				GroundTruthScore: &gt,
			},
		},
	}

	require.NoError(t, s.SaveRanking(want))
	got, err := s.LoadRanking()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRankingRejectsOutOfRangeAspect(t *testing.T) {
	s := newTestStore(t)
	content := `{
		"question": "q",
		"results": [{
			"lineage_id": "b0-i0-m0",
			"hypothesis_text": "h",
			"aspects": {"novelty": 12, "validity": 7, "significance": 8, "clarity": 8},
			"average_score": 8.75,
			"rank": 1
		}]
	}`
	require.NoError(t, os.WriteFile(s.Path(RankingFile), []byte(content), 0o644))

	_, err := s.LoadRanking()
	assert.ErrorIs(t, err, types.ErrDataContract)
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Exists(CollectionFile))

	require.NoError(t, s.SaveCollection(sampleCollection()))
	assert.True(t, s.Exists(CollectionFile))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCollection(sampleCollection()))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CollectionFile, entries[0].Name())
}
