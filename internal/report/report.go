// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the evaluation ranking as a human-readable text
// document. It consumes only the evaluation checkpoint; no generation calls.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// frontMatter is the YAML header of a rendered report.
type frontMatter struct {
	Question    string    `yaml:"question"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Candidates  int       `yaml:"candidates"`
	GroundTruth bool      `yaml:"ground_truth_mode"`
}

// Render writes the ranking to w: a YAML front matter block followed by one
// section per ranked hypothesis.
func Render(w io.Writer, ranking types.Ranking, now time.Time) error {
	groundTruth := false
	for _, r := range ranking.Results {
		if r.GroundTruthScore != nil {
			groundTruth = true
			break
		}
	}

	fm, err := yaml.Marshal(frontMatter{
		Question:    ranking.Question,
		GeneratedAt: now.UTC(),
		Candidates:  len(ranking.Results),
		GroundTruth: groundTruth,
	})
	if err != nil {
		return fmt.Errorf("marshaling front matter: %w", err)
	}

	if _, err := fmt.Fprintf(w, "---\n%s---\n\n# Ranked hypotheses\n\n", fm); err != nil {
		return err
	}

	if len(ranking.Results) == 0 {
		_, err := fmt.Fprintln(w, "No hypotheses were evaluated.")
		return err
	}

	for _, r := range ranking.Results {
		fmt.Fprintf(w, "## %d. %s (%.2f)\n\n", r.Rank, r.LineageID, r.AverageScore)
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(r.HypothesisText))
		fmt.Fprintf(w, "- novelty: %.1f\n", r.Aspects.Novelty)
		fmt.Fprintf(w, "- validity: %.1f\n", r.Aspects.Validity)
		fmt.Fprintf(w, "- significance: %.1f\n", r.Aspects.Significance)
		fmt.Fprintf(w, "- clarity: %.1f\n", r.Aspects.Clarity)
		if r.GroundTruthScore != nil {
			fmt.Fprintf(w, "- matched score: %.1f / %.0f\n", *r.GroundTruthScore, 5.0)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
