// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"errors"
	"fmt"
)

// InvalidInputError reports a malformed call that was rejected before any
// backend attempt: empty prompt, out-of-range temperature, or a bad shape
// descriptor. Never retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid gateway input: " + e.Reason
}

// SchemaError reports a backend response that did not parse or validate into
// the expected shape. Retried with temperature escalation under the schema
// attempt budget.
type SchemaError struct {
	Shape  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response does not match shape %q: %s", e.Shape, e.Reason)
}

// ExhaustedError is the terminal failure after all retry budgets are spent.
// It carries the total attempt count and the last underlying error; callers
// must not retry further.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// errEmptyResponse marks an empty or whitespace-only backend response.
// Treated as a transient failure, never as valid output.
var errEmptyResponse = errors.New("empty response from backend")
