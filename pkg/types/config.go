// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// GatewayConfig holds settings for the structured-generation gateway, shared
// by every stage that issues generation calls.
type GatewayConfig struct {
	// Model is the generation model identifier.
	Model string `json:"model" yaml:"model"`

	// BaseURL is the API endpoint for the OpenAI-compatible backend.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey authenticates against the backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout is the per-request HTTP timeout (default 180s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxAttempts is the budget for transiently failing calls (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// MaxSchemaAttempts is the separate, larger budget for responses that
	// fail shape validation (default 10). Each such retry raises the
	// generation temperature by TemperatureStep, clamped at MaxTemperature.
	MaxSchemaAttempts int `json:"max_schema_attempts" yaml:"max_schema_attempts"`

	// BackoffBase is the first retry delay (default 500ms). Delays double
	// each attempt and cap at BackoffMax (default 5s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`
	BackoffMax  time.Duration `json:"backoff_max" yaml:"backoff_max"`

	// TemperatureStep and MaxTemperature govern escalation on shape
	// failures (defaults 0.25 and 2.0).
	TemperatureStep float64 `json:"temperature_step" yaml:"temperature_step"`
	MaxTemperature  float64 `json:"max_temperature" yaml:"max_temperature"`
}

// ScreeningConfig holds settings for the inspiration screening stage.
type ScreeningConfig struct {
	// Rounds is the fixed number of screening rounds (default 4).
	Rounds int `json:"rounds" yaml:"rounds"`

	// WindowSize is the working-set cap per round (default 12).
	WindowSize int `json:"window_size" yaml:"window_size"`

	// KeepSize is the survivor cap per round (default 3).
	KeepSize int `json:"keep_size" yaml:"keep_size"`

	// ChunkSize caps candidates per generation call; a window larger than
	// this is split into sub-calls (default = WindowSize).
	ChunkSize int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`

	// ForceIncludeRound injects known ground-truth indices into the window
	// at this round (benchmark mode). -1 disables.
	ForceIncludeRound int `json:"force_include_round" yaml:"force_include_round"`

	// GroundTruth lists corpus indices of the known inspirations used for
	// hit-ratio measurement in benchmark mode.
	GroundTruth []int `json:"ground_truth,omitempty" yaml:"ground_truth,omitempty"`
}

// Validate checks the screening parameters.
func (c ScreeningConfig) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("screening: rounds must be >= 1, got %d", c.Rounds)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("screening: window_size must be >= 1, got %d", c.WindowSize)
	}
	if c.KeepSize < 1 || c.KeepSize > c.WindowSize {
		return fmt.Errorf("screening: keep_size must be in [1, window_size], got %d", c.KeepSize)
	}
	return nil
}

// EvolutionConfig holds settings for the hypothesis evolution stage.
type EvolutionConfig struct {
	// NumSelfRefine is the number of critique-and-revise iterations per
	// lineage (default 3).
	NumSelfRefine int `json:"num_self_refine" yaml:"num_self_refine"`

	// NumMutations is the number of alternate inspirations recombined with
	// each seed lineage (default 3).
	NumMutations int `json:"num_mutations" yaml:"num_mutations"`

	// NumSelfExploreSteps enables open self-exploration when > 0: each
	// lineage explores this many extra-knowledge steps.
	NumSelfExploreSteps int `json:"num_self_explore_steps" yaml:"num_self_explore_steps"`

	// MaxInspirationSearchSteps bounds the exploration beam so the stage
	// always terminates (default 3).
	MaxInspirationSearchSteps int `json:"max_inspiration_search_steps" yaml:"max_inspiration_search_steps"`

	// PopulationCap triggers windowed lineage selection when the live
	// population exceeds it. 0 disables the cap.
	PopulationCap int `json:"population_cap,omitempty" yaml:"population_cap,omitempty"`

	// SelfScore controls whether each refinement iteration scores itself;
	// when false, scoring is deferred entirely to the evaluator.
	SelfScore bool `json:"self_score" yaml:"self_score"`

	// Workers caps concurrent generation calls for independent lineages
	// (default 1: fully sequential).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Discipline labels the research field in prompts (e.g. "chemistry").
	Discipline string `json:"discipline,omitempty" yaml:"discipline,omitempty"`
}

// Validate checks the evolution parameters.
func (c EvolutionConfig) Validate() error {
	if c.NumSelfRefine < 0 {
		return fmt.Errorf("evolution: num_self_refine must be >= 0, got %d", c.NumSelfRefine)
	}
	if c.NumMutations < 0 {
		return fmt.Errorf("evolution: num_mutations must be >= 0, got %d", c.NumMutations)
	}
	if c.NumSelfExploreSteps > 0 && c.MaxInspirationSearchSteps < c.NumSelfExploreSteps {
		return fmt.Errorf("evolution: max_inspiration_search_steps %d below num_self_explore_steps %d",
			c.MaxInspirationSearchSteps, c.NumSelfExploreSteps)
	}
	return nil
}

// EvaluationConfig holds settings for the evaluation stage.
type EvaluationConfig struct {
	// GroundTruthHypothesis enables ground-truth mode when non-empty: each
	// candidate is additionally scored for how well it matches this
	// reference.
	GroundTruthHypothesis string `json:"ground_truth_hypothesis,omitempty" yaml:"ground_truth_hypothesis,omitempty"`

	// Discipline labels the research field in evaluation prompts.
	Discipline string `json:"discipline,omitempty" yaml:"discipline,omitempty"`
}

// CheckpointConfig locates the stage artifacts on disk.
type CheckpointConfig struct {
	// Dir is the directory holding all checkpoint files (default
	// "checkpoints").
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Gateway    GatewayConfig    `json:"gateway" yaml:"gateway"`
	Screening  ScreeningConfig  `json:"screening" yaml:"screening"`
	Evolution  EvolutionConfig  `json:"evolution" yaml:"evolution"`
	Evaluation EvaluationConfig `json:"evaluation" yaml:"evaluation"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
}
