// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screening runs multi-round windowed elimination over the
// inspiration corpus: each round presents a bounded window of candidates,
// keeps the most relevant few, and refills the window with unseen candidates
// in corpus order. The fixed round count bounds total generation calls
// regardless of corpus size.
package screening

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/hypothesis-engine/internal/gateway"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Caller is the slice of the gateway the screener needs. *gateway.Gateway
// satisfies it; tests supply stubs.
type Caller interface {
	Call(ctx context.Context, prompt string, shape gateway.Shape, opts gateway.CallOptions) (gateway.Result, error)
}

// Screener holds the dependencies of one screening run.
type Screener struct {
	caller Caller
	cfg    types.ScreeningConfig
	out    io.Writer
}

// New builds a Screener. The config must validate; out receives per-round
// progress lines.
func New(caller Caller, cfg types.ScreeningConfig, out io.Writer) (*Screener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = cfg.WindowSize
	}
	if out == nil {
		out = io.Discard
	}
	return &Screener{caller: caller, cfg: cfg, out: out}, nil
}

// selectionShape is the structured output of one screening call.
var selectionShape = gateway.Shape{Name: "screening_selection", Required: []string{"selections"}}

type selectionResponse struct {
	Selections []selection `json:"selections"`
}

type selection struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Screen runs the configured number of rounds and returns the shortlist.
// The corpus is read-only; candidate identity is the corpus index.
func (s *Screener) Screen(ctx context.Context, bg types.ResearchBackground, corpus []types.InspirationCandidate) (types.Shortlist, error) {
	if err := bg.Validate(); err != nil {
		return types.Shortlist{}, err
	}
	if len(corpus) == 0 {
		return types.Shortlist{}, fmt.Errorf("%w: corpus is empty", types.ErrDataContract)
	}

	// Round-1 window: the corpus prefix. A corpus smaller than the window
	// is screened whole.
	window := make([]int, 0, s.cfg.WindowSize)
	for i := 0; i < len(corpus) && i < s.cfg.WindowSize; i++ {
		window = append(window, i)
	}
	nextUnseen := len(window)

	var (
		rounds []types.RoundRecord
		kept   []selection
	)

	for round := 1; round <= s.cfg.Rounds; round++ {
		if round == s.cfg.ForceIncludeRound && len(s.cfg.GroundTruth) > 0 {
			window = forceInclude(window, s.cfg.GroundTruth, s.cfg.WindowSize, len(corpus))
		}

		record := types.RoundRecord{Round: round, Window: append([]int(nil), window...)}

		selections, gaps := s.screenWindow(ctx, bg, corpus, window, round)
		if ctx.Err() != nil {
			return types.Shortlist{}, ctx.Err()
		}
		record.Gaps = gaps

		// Rank by model score, ties by window (corpus) order.
		order := KeepTop(scoresOf(selections), s.cfg.KeepSize)
		kept = kept[:0]
		for _, i := range order {
			kept = append(kept, selections[i])
			record.Kept = append(record.Kept, selections[i].Index)
		}
		rounds = append(rounds, record)

		fmt.Fprintf(s.out, "round %d: window %d, kept %d, gaps %d\n",
			round, len(record.Window), len(record.Kept), len(record.Gaps))

		// Refill with the next unseen candidates in corpus order; no
		// wrapping, so the window shrinks once the corpus is exhausted.
		window = window[:0]
		for _, sel := range kept {
			window = append(window, sel.Index)
		}
		for len(window) < s.cfg.WindowSize && nextUnseen < len(corpus) {
			window = append(window, nextUnseen)
			nextUnseen++
		}

		if len(window) == 0 {
			break
		}
	}

	shortlist := types.Shortlist{
		Question: bg.Question,
		Rounds:   rounds,
	}
	for _, sel := range kept {
		shortlist.Kept = append(shortlist.Kept, types.ScreenedInspiration{
			Index:  sel.Index,
			Title:  corpus[sel.Index].Title,
			Score:  sel.Score,
			Reason: sel.Reason,
		})
	}
	if len(s.cfg.GroundTruth) > 0 {
		shortlist.Hits = hitStats(shortlist.Kept, s.cfg.GroundTruth)
	}
	if err := shortlist.Validate(); err != nil {
		return types.Shortlist{}, err
	}
	return shortlist, nil
}

// screenWindow issues one structured call per chunk of the window and merges
// the valid selections. A chunk whose call fails terminally contributes its
// candidates to gaps; the round continues.
func (s *Screener) screenWindow(ctx context.Context, bg types.ResearchBackground, corpus []types.InspirationCandidate, window []int, round int) ([]selection, []int) {
	var (
		selections []selection
		gaps       []int
		taken      = make(map[int]bool, len(window))
	)

	for start := 0; start < len(window); start += s.cfg.ChunkSize {
		end := start + s.cfg.ChunkSize
		if end > len(window) {
			end = len(window)
		}
		chunk := window[start:end]

		res, err := s.caller.Call(ctx, selectionPrompt(bg, corpus, chunk, s.cfg.KeepSize), selectionShape, gateway.CallOptions{
			Op:          fmt.Sprintf("screening round %d chunk %d", round, start/s.cfg.ChunkSize+1),
			Temperature: 1.0,
		})
		if err != nil {
			if ctx.Err() != nil {
				return selections, gaps
			}
			gaps = append(gaps, chunk...)
			fmt.Fprintf(s.out, "round %d: skipping %d candidates after exhausted retries: %v\n", round, len(chunk), err)
			continue
		}

		var parsed selectionResponse
		if err := res.Decode(&parsed); err != nil {
			gaps = append(gaps, chunk...)
			continue
		}

		// Keep the valid subset: indices actually presented in this chunk,
		// scores in bounds, no duplicates. Malformed entries are dropped
		// without failing the round.
		inChunk := make(map[int]bool, len(chunk))
		for _, idx := range chunk {
			inChunk[idx] = true
		}
		for _, sel := range parsed.Selections {
			if !inChunk[sel.Index] || taken[sel.Index] {
				continue
			}
			if sel.Score < types.ScoreMin || sel.Score > types.ScoreMax {
				continue
			}
			taken[sel.Index] = true
			selections = append(selections, sel)
		}
	}

	return selections, gaps
}

// forceInclude injects known ground-truth indices into the window for
// benchmark runs, evicting tail candidates when the window is full.
func forceInclude(window, groundTruth []int, windowSize, corpusLen int) []int {
	present := make(map[int]bool, len(window))
	for _, idx := range window {
		present[idx] = true
	}
	for _, gt := range groundTruth {
		if gt < 0 || gt >= corpusLen || present[gt] {
			continue
		}
		if len(window) < windowSize {
			window = append(window, gt)
		} else {
			// Evict the last non-ground-truth candidate.
			for i := len(window) - 1; i >= 0; i-- {
				if !contains(groundTruth, window[i]) {
					window[i] = gt
					break
				}
			}
		}
		present[gt] = true
	}
	return window
}

func hitStats(kept []types.ScreenedInspiration, groundTruth []int) *types.HitStats {
	stats := &types.HitStats{GroundTruth: groundTruth}
	for _, gt := range groundTruth {
		for _, k := range kept {
			if k.Index == gt {
				stats.Found = append(stats.Found, gt)
				break
			}
		}
	}
	if len(kept) > 0 && contains(groundTruth, kept[0].Index) {
		stats.Top1 = 1
	}
	stats.TopN = float64(len(stats.Found)) / float64(len(groundTruth))
	return stats
}

func scoresOf(selections []selection) []float64 {
	scores := make([]float64, len(selections))
	for i, sel := range selections {
		scores[i] = sel.Score
	}
	return scores
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
