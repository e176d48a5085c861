// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// LineageOrigin records which mutation operator created a lineage.
type LineageOrigin string

const (
	OriginSeed          LineageOrigin = "seed"
	OriginRecombination LineageOrigin = "recombination"
	OriginExploration   LineageOrigin = "exploration"
)

// Lineage is the ordered refinement history of one hypothesis candidate.
// Snapshots are append-only: each refinement conditions on the previous
// snapshot and is appended, never spliced. Lineages never merge — a
// recombination seeds a new Lineage referencing both parents through
// CoreInspiration and ExtraInspirations.
type Lineage struct {
	// ID is a stable identifier of the form "b<bkg>-i<insp>-m<mutation>",
	// assigned at creation. Collection ordering and checkpoint keys use
	// this, never call completion order.
	ID string `json:"id"`

	// Origin names the operator that created this lineage.
	Origin LineageOrigin `json:"origin"`

	// CoreInspiration is the corpus index of the inspiration this lineage
	// was seeded from.
	CoreInspiration int `json:"core_inspiration"`

	// ExtraInspirations lists corpus indices of alternate inspirations
	// recombined into this lineage, in the order they were applied.
	ExtraInspirations []int `json:"extra_inspirations,omitempty"`

	// Snapshots is the full refinement history, seed first.
	Snapshots []Hypothesis `json:"snapshots"`
}

// Latest returns the most recent snapshot. The second return is false for an
// empty lineage.
func (l Lineage) Latest() (Hypothesis, bool) {
	if len(l.Snapshots) == 0 {
		return Hypothesis{}, false
	}
	return l.Snapshots[len(l.Snapshots)-1], true
}

// LatestScore returns the most recent snapshot's average score. ok is false
// when the lineage is empty or the latest snapshot is unscored.
func (l Lineage) LatestScore() (float64, bool) {
	h, ok := l.Latest()
	if !ok {
		return 0, false
	}
	return h.AverageScore()
}

// Validate checks every snapshot's data contract.
func (l Lineage) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: lineage has empty id", ErrDataContract)
	}
	for i, h := range l.Snapshots {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("lineage %s snapshot %d: %w", l.ID, i, err)
		}
	}
	return nil
}

// Collection is the set of all lineages produced by one generation run —
// the hand-off artifact from the evolution engine to the evaluator. Lineage
// order is insertion order, which downstream ranking uses as the stable
// tie-break.
type Collection struct {
	// Question is the research background question the run addressed.
	Question string `json:"question"`

	// Lineages holds every lineage with its full snapshot history.
	Lineages []Lineage `json:"lineages"`
}

// Validate checks every lineage and rejects duplicate IDs.
func (c Collection) Validate() error {
	seen := make(map[string]bool, len(c.Lineages))
	for _, l := range c.Lineages {
		if err := l.Validate(); err != nil {
			return err
		}
		if seen[l.ID] {
			return fmt.Errorf("%w: duplicate lineage id %s", ErrDataContract, l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}
