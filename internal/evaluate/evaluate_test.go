// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hypothesis-engine/internal/gateway"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

type staticBackend struct{ text string }

func (b staticBackend) Generate(context.Context, string, float64) (string, error) {
	return b.text, nil
}

// fakeCaller scores by lineage ID and routes responses through a real
// gateway so the parse path is exercised.
type fakeCaller struct {
	aspectsByID map[string]types.AspectScores
	matchByID   map[string]float64
	failOps     map[string]bool
	calls       int
}

func (c *fakeCaller) Call(ctx context.Context, prompt string, shape gateway.Shape, opts gateway.CallOptions) (gateway.Result, error) {
	c.calls++
	if c.failOps[opts.Op] {
		return gateway.Result{}, &gateway.ExhaustedError{Op: opts.Op, Attempts: 3, Last: errors.New("backend down")}
	}

	var payload any
	switch shape.Name {
	case "aspect_scores":
		payload = c.aspectsByID[opts.Op[len("evaluate "):]]
	case "matched_score":
		payload = map[string]any{
			"match":  c.matchByID[opts.Op[len("match "):]],
			"reason": "covers the mechanism",
		}
	default:
		return gateway.Result{}, fmt.Errorf("unexpected shape %q", shape.Name)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return gateway.Result{}, err
	}
	g := gateway.New(staticBackend{text: string(data)}, types.GatewayConfig{}, nil)
	return g.Call(ctx, prompt, shape, opts)
}

func uniformAspects(score float64) types.AspectScores {
	return types.AspectScores{Novelty: score, Validity: score, Significance: score, Clarity: score}
}

func collectionOf(ids ...string) types.Collection {
	c := types.Collection{Question: "How can X be improved?"}
	for _, id := range ids {
		c.Lineages = append(c.Lineages, types.Lineage{
			ID:              id,
			Origin:          types.OriginSeed,
			CoreInspiration: 0,
			Snapshots:       []types.Hypothesis{{ReasoningProcess: "r", HypothesisText: "hypothesis " + id}},
		})
	}
	return c
}

func TestEvaluateRanksDescendingWithStableTies(t *testing.T) {
	caller := &fakeCaller{aspectsByID: map[string]types.AspectScores{
		"b0-i0-m0": uniformAspects(7.0),
		"b0-i1-m0": uniformAspects(9.5),
		"b0-i2-m0": uniformAspects(8.25),
		"b0-i3-m0": uniformAspects(9.5),
		"b0-i4-m0": uniformAspects(6.0),
	}}
	ev := New(caller, types.EvaluationConfig{}, io.Discard)

	ranking, err := ev.Evaluate(context.Background(), collectionOf("b0-i0-m0", "b0-i1-m0", "b0-i2-m0", "b0-i3-m0", "b0-i4-m0"))
	require.NoError(t, err)

	require.Len(t, ranking.Results, 5)
	gotOrder := make([]string, 5)
	for i, r := range ranking.Results {
		gotOrder[i] = r.LineageID
		assert.Equal(t, i+1, r.Rank)
	}
	// 9.5 tie resolves to the earlier lineage; the rest follow descending.
	assert.Equal(t, []string{"b0-i1-m0", "b0-i3-m0", "b0-i2-m0", "b0-i0-m0", "b0-i4-m0"}, gotOrder)
	assert.Equal(t, 9.5, ranking.Results[0].AverageScore)
	assert.Equal(t, 6.0, ranking.Results[4].AverageScore)
}

func TestEvaluateAverageIsAspectMean(t *testing.T) {
	caller := &fakeCaller{aspectsByID: map[string]types.AspectScores{
		"b0-i0-m0": {Novelty: 8, Validity: 7, Significance: 9, Clarity: 6},
	}}
	ev := New(caller, types.EvaluationConfig{}, io.Discard)

	ranking, err := ev.Evaluate(context.Background(), collectionOf("b0-i0-m0"))
	require.NoError(t, err)

	require.Len(t, ranking.Results, 1)
	assert.InDelta(t, 7.5, ranking.Results[0].AverageScore, 1e-9)
	assert.Equal(t, "hypothesis b0-i0-m0", ranking.Results[0].HypothesisText)
}

func TestEvaluateIdempotent(t *testing.T) {
	caller := &fakeCaller{aspectsByID: map[string]types.AspectScores{
		"b0-i0-m0": uniformAspects(7),
		"b0-i1-m0": uniformAspects(9),
	}}
	ev := New(caller, types.EvaluationConfig{}, io.Discard)
	collection := collectionOf("b0-i0-m0", "b0-i1-m0")

	first, err := ev.Evaluate(context.Background(), collection)
	require.NoError(t, err)
	second, err := ev.Evaluate(context.Background(), collection)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateGroundTruthMode(t *testing.T) {
	caller := &fakeCaller{
		aspectsByID: map[string]types.AspectScores{
			"b0-i0-m0": uniformAspects(4),
			"b0-i1-m0": uniformAspects(9),
		},
		matchByID: map[string]float64{
			"b0-i0-m0": 5,
			"b0-i1-m0": 1,
		},
	}
	ev := New(caller, types.EvaluationConfig{GroundTruthHypothesis: "reference"}, io.Discard)

	ranking, err := ev.Evaluate(context.Background(), collectionOf("b0-i0-m0", "b0-i1-m0"))
	require.NoError(t, err)

	// The matched score is recorded but never drives the rank: the lineage
	// with the perfect match still ranks below the higher-rubric one.
	require.Len(t, ranking.Results, 2)
	assert.Equal(t, "b0-i1-m0", ranking.Results[0].LineageID)
	require.NotNil(t, ranking.Results[0].GroundTruthScore)
	assert.Equal(t, 1.0, *ranking.Results[0].GroundTruthScore)
	require.NotNil(t, ranking.Results[1].GroundTruthScore)
	assert.Equal(t, 5.0, *ranking.Results[1].GroundTruthScore)
}

func TestEvaluateSkipsExhaustedLineage(t *testing.T) {
	caller := &fakeCaller{
		aspectsByID: map[string]types.AspectScores{
			"b0-i0-m0": uniformAspects(7),
			"b0-i2-m0": uniformAspects(8),
		},
		failOps: map[string]bool{"evaluate b0-i1-m0": true},
	}
	ev := New(caller, types.EvaluationConfig{}, io.Discard)

	ranking, err := ev.Evaluate(context.Background(), collectionOf("b0-i0-m0", "b0-i1-m0", "b0-i2-m0"))
	require.NoError(t, err)

	require.Len(t, ranking.Results, 2)
	assert.Equal(t, "b0-i2-m0", ranking.Results[0].LineageID)
	assert.Equal(t, "b0-i0-m0", ranking.Results[1].LineageID)
}

func TestEvaluateRejectsOutOfRangeAspects(t *testing.T) {
	caller := &fakeCaller{aspectsByID: map[string]types.AspectScores{
		"b0-i0-m0": uniformAspects(11),
	}}
	ev := New(caller, types.EvaluationConfig{}, io.Discard)

	_, err := ev.Evaluate(context.Background(), collectionOf("b0-i0-m0"))
	assert.ErrorIs(t, err, types.ErrDataContract)
}

func TestEvaluateRejectsInvalidCollection(t *testing.T) {
	caller := &fakeCaller{}
	ev := New(caller, types.EvaluationConfig{}, io.Discard)

	c := collectionOf("b0-i0-m0", "b0-i0-m0")
	_, err := ev.Evaluate(context.Background(), c)
	assert.ErrorIs(t, err, types.ErrDataContract)
	assert.Zero(t, caller.calls)
}
