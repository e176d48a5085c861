// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AspectScores holds the four rubric dimensions the evaluator scores, each
// bounded [ScoreMin, ScoreMax].
type AspectScores struct {
	Novelty      float64 `json:"novelty"`
	Validity     float64 `json:"validity"`
	Significance float64 `json:"significance"`
	Clarity      float64 `json:"clarity"`
}

// Slice returns the aspect scores in rubric order.
func (a AspectScores) Slice() []float64 {
	return []float64{a.Novelty, a.Validity, a.Significance, a.Clarity}
}

// EvaluationResult is one ranked entry of the evaluator's output.
type EvaluationResult struct {
	// LineageID references the evaluated lineage in the generation
	// checkpoint.
	LineageID string `json:"lineage_id"`

	// HypothesisText is the evaluated statement, carried so the report
	// stage needs no join back to the collection.
	HypothesisText string `json:"hypothesis_text"`

	// Aspects holds the per-aspect scores.
	Aspects AspectScores `json:"aspects"`

	// AverageScore is the aggregate rank key: the arithmetic mean of the
	// aspect scores.
	AverageScore float64 `json:"average_score"`

	// Rank is the 1-based position after sorting, assigned by the
	// evaluator. Ties keep lineage insertion order.
	Rank int `json:"rank"`

	// GroundTruthScore is the matched score (0-5) against a supplied
	// reference hypothesis. Nil outside ground-truth mode. It never
	// contributes to the primary rank.
	GroundTruthScore *float64 `json:"ground_truth_score,omitempty"`
}

// Ranking is the evaluator's checkpoint artifact: results sorted descending
// by AverageScore.
type Ranking struct {
	Question string             `json:"question"`
	Results  []EvaluationResult `json:"results"`
}
