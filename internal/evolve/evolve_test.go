// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
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

// fakeCaller answers by shape, embedding the operation label in the text so
// assertions can trace which call produced which snapshot. Responses route
// through a real gateway so the parse path is exercised.
type fakeCaller struct {
	mu         sync.Mutex
	ops        []string
	failOps    map[string]bool
	scoreByOp  map[string]float64
	exploreYes int // number of "yes" exploration answers before "no"
	explores   int
}

func (c *fakeCaller) Call(ctx context.Context, prompt string, shape gateway.Shape, opts gateway.CallOptions) (gateway.Result, error) {
	c.mu.Lock()
	c.ops = append(c.ops, opts.Op)
	if c.failOps[opts.Op] {
		c.mu.Unlock()
		return gateway.Result{}, &gateway.ExhaustedError{Op: opts.Op, Attempts: 3, Last: errors.New("backend down")}
	}

	var payload any
	switch shape.Name {
	case "hypothesis":
		payload = map[string]string{
			"reasoning":  "reasoning from " + opts.Op,
			"hypothesis": "hypothesis from " + opts.Op,
		}
	case "critique":
		payload = map[string]string{"feedback": "feedback from " + opts.Op}
	case "aspect_scores":
		score := 5.0
		if s, ok := c.scoreByOp[opts.Op]; ok {
			score = s
		}
		payload = map[string]float64{"novelty": score, "validity": score, "significance": score, "clarity": score}
	case "exploration":
		c.explores++
		if c.explores <= c.exploreYes {
			payload = map[string]string{"needed": "yes", "knowledge": fmt.Sprintf("fact %d", c.explores)}
		} else {
			payload = map[string]string{"needed": "no", "knowledge": "nothing missing"}
		}
	default:
		c.mu.Unlock()
		return gateway.Result{}, fmt.Errorf("unexpected shape %q", shape.Name)
	}
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return gateway.Result{}, err
	}
	g := gateway.New(staticBackend{text: string(data)}, types.GatewayConfig{}, nil)
	return g.Call(ctx, prompt, shape, opts)
}

var testBackground = types.ResearchBackground{Question: "How can X be improved?"}

func testCorpus(n int) []types.InspirationCandidate {
	corpus := make([]types.InspirationCandidate, n)
	for i := range corpus {
		corpus[i] = types.InspirationCandidate{
			Title:    fmt.Sprintf("Paper %d", i),
			Abstract: fmt.Sprintf("Abstract %d", i),
		}
	}
	return corpus
}

func shortlistOf(indices ...int) types.Shortlist {
	sl := types.Shortlist{Question: testBackground.Question}
	for _, idx := range indices {
		sl.Kept = append(sl.Kept, types.ScreenedInspiration{Index: idx, Title: fmt.Sprintf("Paper %d", idx), Score: 8})
	}
	return sl
}

func TestEvolveSeedAndRefinementChain(t *testing.T) {
	caller := &fakeCaller{}
	e, err := New(caller, nil, types.EvolutionConfig{NumSelfRefine: 3, SelfScore: true}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(5))
	require.NoError(t, err)

	require.Len(t, collection.Lineages, 1)
	l := collection.Lineages[0]
	assert.Equal(t, "b0-i5-m0", l.ID)
	assert.Equal(t, types.OriginSeed, l.Origin)
	assert.Equal(t, 5, l.CoreInspiration)

	// One seed plus three refinement snapshots.
	require.Len(t, l.Snapshots, 4)
	assert.Equal(t, "hypothesis from seed b0-i5-m0", l.Snapshots[0].HypothesisText)
	assert.Equal(t, "hypothesis from revise b0-i5-m0 iter 3", l.Snapshots[3].HypothesisText)

	// Every critiqued snapshot carries the feedback the next one addressed;
	// the final snapshot is uncritiqued.
	for i := 0; i < 3; i++ {
		assert.Equal(t, fmt.Sprintf("feedback from critique b0-i5-m0 iter %d", i+1), l.Snapshots[i].FeedbackText)
	}
	assert.Empty(t, l.Snapshots[3].FeedbackText)

	// Self-scoring covers the refined snapshots, not the raw seed.
	assert.Nil(t, l.Snapshots[0].Scores)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, []float64{5, 5, 5, 5}, l.Snapshots[i].Scores)
	}
}

func TestEvolveRecombination(t *testing.T) {
	caller := &fakeCaller{}
	e, err := New(caller, nil, types.EvolutionConfig{NumMutations: 2}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(2, 5, 7))
	require.NoError(t, err)

	// Each parent spawns two recombined lineages with the other shortlisted
	// inspirations, in shortlist order.
	ids := make([]string, len(collection.Lineages))
	for i, l := range collection.Lineages {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{
		"b0-i2-m0", "b0-i2-m1", "b0-i2-m2",
		"b0-i5-m0", "b0-i5-m1", "b0-i5-m2",
		"b0-i7-m0", "b0-i7-m1", "b0-i7-m2",
	}, ids)

	m1 := collection.Lineages[1]
	assert.Equal(t, types.OriginRecombination, m1.Origin)
	assert.Equal(t, 2, m1.CoreInspiration)
	assert.Equal(t, []int{5}, m1.ExtraInspirations)

	m2 := collection.Lineages[2]
	assert.Equal(t, []int{7}, m2.ExtraInspirations)
}

// recordingPrompts counts the prior-mutation lists handed to Recombine.
type recordingPrompts struct {
	DefaultPrompts
	mu         sync.Mutex
	priorSizes []int
}

func (p *recordingPrompts) Recombine(bg types.ResearchBackground, best types.Hypothesis, alt types.InspirationCandidate, prior []string) string {
	p.mu.Lock()
	p.priorSizes = append(p.priorSizes, len(prior))
	p.mu.Unlock()
	return p.DefaultPrompts.Recombine(bg, best, alt, prior)
}

func TestEvolveRecombinationDemandsDistinctness(t *testing.T) {
	caller := &fakeCaller{}
	prompts := &recordingPrompts{}
	e, err := New(caller, prompts, types.EvolutionConfig{NumMutations: 2}, io.Discard)
	require.NoError(t, err)

	_, err = e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(0, 1, 2))
	require.NoError(t, err)

	// Per parent: first recombination sees no priors, second sees one.
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1}, prompts.priorSizes)
}

func TestEvolveSkipsExhaustedSeed(t *testing.T) {
	caller := &fakeCaller{failOps: map[string]bool{"seed b0-i0-m0": true}}
	e, err := New(caller, nil, types.EvolutionConfig{}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(0, 1))
	require.NoError(t, err)

	require.Len(t, collection.Lineages, 1)
	assert.Equal(t, "b0-i1-m0", collection.Lineages[0].ID)
}

func TestEvolveRefinementStopsEarlyOnExhaustion(t *testing.T) {
	caller := &fakeCaller{failOps: map[string]bool{"critique b0-i3-m0 iter 2": true}}
	e, err := New(caller, nil, types.EvolutionConfig{NumSelfRefine: 3}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(3))
	require.NoError(t, err)

	// Seed plus the one refinement that completed before the failure.
	require.Len(t, collection.Lineages, 1)
	assert.Len(t, collection.Lineages[0].Snapshots, 2)
}

func TestEvolvePopulationCap(t *testing.T) {
	caller := &fakeCaller{scoreByOp: map[string]float64{
		"self-score b0-i0-m0 iter 1": 5,
		"self-score b0-i0-m1 iter 1": 9,
		"self-score b0-i1-m0 iter 1": 7,
		"self-score b0-i1-m1 iter 1": 3,
	}}
	e, err := New(caller, nil, types.EvolutionConfig{
		NumSelfRefine: 1,
		NumMutations:  1,
		SelfScore:     true,
		PopulationCap: 2,
	}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(0, 1))
	require.NoError(t, err)

	// Top two by latest score survive, in insertion order.
	require.Len(t, collection.Lineages, 2)
	assert.Equal(t, "b0-i0-m1", collection.Lineages[0].ID)
	assert.Equal(t, "b0-i1-m0", collection.Lineages[1].ID)
}

func TestEvolveUnscoredLineagesSurviveCap(t *testing.T) {
	caller := &fakeCaller{}
	e, err := New(caller, nil, types.EvolutionConfig{NumMutations: 1, PopulationCap: 2}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(0, 1))
	require.NoError(t, err)

	// Scoring is deferred to the evaluator, so the cap cuts nothing.
	assert.Len(t, collection.Lineages, 4)
}

func TestEvolveSelfExploration(t *testing.T) {
	caller := &fakeCaller{exploreYes: 1}
	e, err := New(caller, nil, types.EvolutionConfig{
		NumSelfExploreSteps:       2,
		MaxInspirationSearchSteps: 3,
	}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(4))
	require.NoError(t, err)

	require.Len(t, collection.Lineages, 2)
	explored := collection.Lineages[1]
	assert.Equal(t, "b0-i4-m1", explored.ID)
	assert.Equal(t, types.OriginExploration, explored.Origin)
	assert.Equal(t, 4, explored.CoreInspiration)
	assert.Equal(t, "hypothesis from explore-revise b0-i4-m1", explored.Snapshots[0].HypothesisText)
}

func TestEvolveNoExplorationLineageWhenNothingRecalled(t *testing.T) {
	caller := &fakeCaller{exploreYes: 0}
	e, err := New(caller, nil, types.EvolutionConfig{
		NumSelfExploreSteps:       2,
		MaxInspirationSearchSteps: 3,
	}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(4))
	require.NoError(t, err)
	assert.Len(t, collection.Lineages, 1)
}

func TestEvolveRejectsBadInput(t *testing.T) {
	caller := &fakeCaller{}
	e, err := New(caller, nil, types.EvolutionConfig{}, io.Discard)
	require.NoError(t, err)

	_, err = e.Evolve(context.Background(), testBackground, testCorpus(10), types.Shortlist{})
	assert.ErrorIs(t, err, types.ErrDataContract)

	_, err = e.Evolve(context.Background(), testBackground, testCorpus(3), shortlistOf(7))
	assert.ErrorIs(t, err, types.ErrDataContract)
}

func TestEvolveConcurrentSeedsKeepStableOrder(t *testing.T) {
	caller := &fakeCaller{}
	e, err := New(caller, nil, types.EvolutionConfig{Workers: 4}, io.Discard)
	require.NoError(t, err)

	collection, err := e.Evolve(context.Background(), testBackground, testCorpus(10), shortlistOf(9, 3, 6))
	require.NoError(t, err)

	ids := make([]string, len(collection.Lineages))
	for i, l := range collection.Lineages {
		ids[i] = l.ID
	}
	// Order follows shortlist position, not call completion order.
	assert.Equal(t, []string{"b0-i9-m0", "b0-i3-m0", "b0-i6-m0"}, ids)
}

func TestBestHypothesisPrefersHighestScore(t *testing.T) {
	l := types.Lineage{
		ID: "b0-i0-m0",
		Snapshots: []types.Hypothesis{
			{HypothesisText: "seed"},
			{HypothesisText: "mid", Scores: []float64{9, 9, 9, 9}},
			{HypothesisText: "latest", Scores: []float64{6, 6, 6, 6}},
		},
	}
	assert.Equal(t, "mid", bestHypothesis(l).HypothesisText)

	unscored := types.Lineage{Snapshots: []types.Hypothesis{{HypothesisText: "only"}}}
	assert.Equal(t, "only", bestHypothesis(unscored).HypothesisText)
}
