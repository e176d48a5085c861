// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gateway wraps an abstract text-generation capability with retry,
// backoff, and output-shape validation. Every stage of the pipeline issues
// its generation calls through this package; none of them assume which
// concrete provider backs the Backend interface.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Backend is the external generation capability. Implementations return the
// raw text of one completion. The OpenAI-compatible implementation lives in
// openai.go; tests supply mocks.
type Backend interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// AttemptLogger receives one record per backend attempt: the operation
// label, the 1-based attempt number, the delay that preceded it, and the
// failure (nil on success). Operator-facing only; not part of the
// functional contract.
type AttemptLogger interface {
	LogAttempt(op string, attempt int, delay time.Duration, err error)
}

// WriterLogger logs attempts as single lines to an io.Writer (typically
// stderr).
type WriterLogger struct {
	W io.Writer
}

func (l WriterLogger) LogAttempt(op string, attempt int, delay time.Duration, err error) {
	if err == nil {
		fmt.Fprintf(l.W, "%s: attempt %d ok\n", op, attempt)
		return
	}
	fmt.Fprintf(l.W, "%s: attempt %d failed (delay %v): %v\n", op, attempt, delay, err)
}

type nopLogger struct{}

func (nopLogger) LogAttempt(string, int, time.Duration, error) {}

// Shape describes the structured output a call must produce: a name for
// error messages and the top-level JSON fields that must be present and
// non-empty.
type Shape struct {
	Name     string
	Required []string
}

// Validate rejects malformed descriptors before any backend call.
func (s Shape) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &InvalidInputError{Reason: "shape has no name"}
	}
	if len(s.Required) == 0 {
		return &InvalidInputError{Reason: fmt.Sprintf("shape %q has no required fields", s.Name)}
	}
	for _, f := range s.Required {
		if strings.TrimSpace(f) == "" {
			return &InvalidInputError{Reason: fmt.Sprintf("shape %q has an empty field name", s.Name)}
		}
	}
	return nil
}

// Result is a shape-validated structured response.
type Result struct {
	// Raw is the cleaned JSON object as returned by the backend.
	Raw json.RawMessage

	fields map[string]json.RawMessage
}

// Decode unmarshals the full result into v.
func (r Result) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Text returns the named top-level field decoded as a string. Missing or
// non-string fields return "".
func (r Result) Text(name string) string {
	raw, ok := r.fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// CallOptions carry per-call parameters.
type CallOptions struct {
	// Op labels the call site in logs and errors (e.g. "screening round 2").
	Op string

	// Temperature is the requested sampling temperature. Shape-failure
	// retries escalate it from this starting point.
	Temperature float64

	// MaxAttempts overrides the configured transient budget when > 0.
	MaxAttempts int
}

// Gateway issues generation calls with the retry contract applied per call
// independently: transient failures (transport errors, timeouts, empty
// responses) retry under MaxAttempts with exponential backoff; shape
// failures retry under the larger MaxSchemaAttempts budget with temperature
// escalation.
type Gateway struct {
	backend Backend
	cfg     types.GatewayConfig
	policy  Policy
	log     AttemptLogger

	// sleep is replaced in tests to capture delays without real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Gateway over the given backend. Zero config fields take the
// documented defaults.
func New(backend Backend, cfg types.GatewayConfig, log AttemptLogger) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxSchemaAttempts <= 0 {
		cfg.MaxSchemaAttempts = 10
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultPolicy.Base
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultPolicy.Max
	}
	if cfg.TemperatureStep <= 0 {
		cfg.TemperatureStep = 0.25
	}
	if cfg.MaxTemperature <= 0 {
		cfg.MaxTemperature = 2.0
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Gateway{
		backend: backend,
		cfg:     cfg,
		policy:  Policy{Base: cfg.BackoffBase, Factor: 2.0, Max: cfg.BackoffMax},
		log:     log,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// CallText issues a plain-text generation call. Empty or whitespace-only
// responses are retried as transient failures.
func (g *Gateway) CallText(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if err := g.checkInput(prompt, opts.Temperature); err != nil {
		return "", err
	}

	maxAttempts := g.cfg.MaxAttempts
	if opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		delay := time.Duration(0)
		if attempt > 1 {
			delay = g.policy.Delay(attempt - 2)
			if err := g.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		text, err := g.backend.Generate(ctx, prompt, opts.Temperature)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		g.log.LogAttempt(opts.Op, attempt, delay, err)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err

		if attempt >= maxAttempts {
			return "", &ExhaustedError{Op: opts.Op, Attempts: attempt, Last: lastErr}
		}
	}
}

// Call issues a structured generation call and validates the response
// against shape. Transient failures consume the transient budget; responses
// that fail shape validation consume the separate schema budget and raise
// the temperature by TemperatureStep per retry, clamped at MaxTemperature,
// to escape degenerate formatting patterns.
func (g *Gateway) Call(ctx context.Context, prompt string, shape Shape, opts CallOptions) (Result, error) {
	if err := g.checkInput(prompt, opts.Temperature); err != nil {
		return Result{}, err
	}
	if err := shape.Validate(); err != nil {
		return Result{}, err
	}

	maxAttempts := g.cfg.MaxAttempts
	if opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}

	temperature := opts.Temperature
	transient, schema := 0, 0

	var lastErr error
	for attempt := 1; ; attempt++ {
		delay := time.Duration(0)
		if attempt > 1 {
			delay = g.policy.Delay(attempt - 2)
			if err := g.sleep(ctx, delay); err != nil {
				return Result{}, err
			}
		}

		text, err := g.backend.Generate(ctx, prompt, temperature)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}

		var res Result
		if err == nil {
			res, err = parseShaped(text, shape)
		}

		g.log.LogAttempt(opts.Op, attempt, delay, err)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if _, isSchema := err.(*SchemaError); isSchema {
			schema++
			if schema >= g.cfg.MaxSchemaAttempts {
				return Result{}, &ExhaustedError{Op: opts.Op, Attempts: attempt, Last: lastErr}
			}
			temperature = minFloat(temperature+g.cfg.TemperatureStep, g.cfg.MaxTemperature)
			continue
		}

		transient++
		if transient >= maxAttempts {
			return Result{}, &ExhaustedError{Op: opts.Op, Attempts: attempt, Last: lastErr}
		}
	}
}

func (g *Gateway) checkInput(prompt string, temperature float64) error {
	if strings.TrimSpace(prompt) == "" {
		return &InvalidInputError{Reason: "prompt is empty"}
	}
	if temperature < 0 || temperature > g.cfg.MaxTemperature {
		return &InvalidInputError{
			Reason: fmt.Sprintf("temperature %g outside [0, %g]", temperature, g.cfg.MaxTemperature),
		}
	}
	return nil
}

// parseShaped cleans the response text and validates it against shape.
func parseShaped(text string, shape Shape) (Result, error) {
	cleaned := cleanJSON(text)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return Result{}, &SchemaError{Shape: shape.Name, Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	for _, f := range shape.Required {
		raw, ok := fields[f]
		if !ok {
			return Result{}, &SchemaError{Shape: shape.Name, Reason: fmt.Sprintf("missing field %q", f)}
		}
		if isEmptyJSON(raw) {
			return Result{}, &SchemaError{Shape: shape.Name, Reason: fmt.Sprintf("field %q is empty", f)}
		}
	}

	return Result{Raw: json.RawMessage(cleaned), fields: fields}, nil
}

// isEmptyJSON reports whether raw is null, an empty string, or an empty
// array/object.
func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}

// cleanJSON strips markdown code fences and leading chatter so that a JSON
// object embedded in a conversational reply still parses. Models wrap JSON
// in ```json fences often enough that rejecting those outright would waste
// the retry budget.
func cleanJSON(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	// Drop prefix chatter before the first brace or bracket.
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	// Drop suffix chatter after the matching close.
	if j := strings.LastIndexAny(s, "}]"); j >= 0 && j < len(s)-1 {
		s = s[:j+1]
	}

	return s
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
