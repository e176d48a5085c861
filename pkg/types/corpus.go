// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// ResearchBackground holds the research question and an optional survey of
// prior methods. It is loaded once per run and shared read-only by every
// stage; no component mutates it.
type ResearchBackground struct {
	// Question is the background research question. Required.
	Question string `json:"question"`

	// Survey introduces the previous methods under the same topic. May be
	// empty (question-only mode).
	Survey string `json:"survey,omitempty"`
}

// Validate requires a non-empty question.
func (b ResearchBackground) Validate() error {
	if strings.TrimSpace(b.Question) == "" {
		return fmt.Errorf("%w: research background has no question", ErrDataContract)
	}
	return nil
}

// InspirationCandidate is one entry of the inspiration corpus. Identity is
// the candidate's position in the corpus; the corpus is an ordered sequence
// fixed at load time.
type InspirationCandidate struct {
	// Title of the candidate paper.
	Title string `json:"title"`

	// Abstract or summary of the candidate paper.
	Abstract string `json:"abstract"`
}

// Validate requires non-empty title and abstract.
func (c InspirationCandidate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: inspiration candidate has no title", ErrDataContract)
	}
	if strings.TrimSpace(c.Abstract) == "" {
		return fmt.Errorf("%w: inspiration candidate %q has no abstract", ErrDataContract, c.Title)
	}
	return nil
}
