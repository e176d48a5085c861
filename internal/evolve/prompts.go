// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evolve

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Prompts builds the generation prompts the engine sends. It is pure: no
// I/O, no state beyond configuration. The engine takes it as an interface so
// tests can pin prompts without string-matching templates.
type Prompts interface {
	// Seed proposes an initial hypothesis from the background and one
	// inspiration.
	Seed(bg types.ResearchBackground, insp types.InspirationCandidate) string

	// Critique asks for feedback on the current hypothesis.
	Critique(bg types.ResearchBackground, insp types.InspirationCandidate, current types.Hypothesis) string

	// Revise asks for an improved hypothesis conditioned on the critique in
	// current.FeedbackText.
	Revise(bg types.ResearchBackground, insp types.InspirationCandidate, current types.Hypothesis) string

	// SelfScore asks for the four aspect scores of a hypothesis.
	SelfScore(bg types.ResearchBackground, hypothesisText string) string

	// Recombine proposes a hypothesis merging the best hypothesis so far
	// with an alternate inspiration, distinct from the prior recombinations
	// listed.
	Recombine(bg types.ResearchBackground, best types.Hypothesis, alt types.InspirationCandidate, prior []string) string

	// Explore asks whether extra knowledge beyond the inspiration would
	// improve the hypothesis, and what that knowledge is.
	Explore(bg types.ResearchBackground, best types.Hypothesis, knowledge []string) string
}

// DefaultPrompts renders the standard prompt set. Discipline labels the
// research field ("chemistry" when empty).
type DefaultPrompts struct {
	Discipline string
}

func (p DefaultPrompts) discipline() string {
	if p.Discipline == "" {
		return "chemistry"
	}
	return p.Discipline
}

var seedTmpl = template.Must(template.New("seed").Parse(`You are a knowledgeable {{.Discipline}} researcher. Propose a novel, specific, and valid research hypothesis for the research question below, using the inspiration paper as the source of the key mechanism.

Research question:
{{.Question}}
{{if .Survey}}
Background survey:
{{.Survey}}
{{end}}
Inspiration paper:
{{.InspTitle}}
{{.InspAbstract}}

The hypothesis must be concrete enough to design an experiment around: name the system, the mechanism borrowed from the inspiration, and the expected effect.

Respond with a JSON object with two fields: "reasoning" (string, how the inspiration leads to the hypothesis) and "hypothesis" (string, the hypothesis statement). Do not include any text outside the JSON object.
`))

func (p DefaultPrompts) Seed(bg types.ResearchBackground, insp types.InspirationCandidate) string {
	return render(seedTmpl, map[string]string{
		"Discipline":   p.discipline(),
		"Question":     bg.Question,
		"Survey":       bg.Survey,
		"InspTitle":    insp.Title,
		"InspAbstract": insp.Abstract,
	})
}

var critiqueTmpl = template.Must(template.New("critique").Parse(`You are a rigorous {{.Discipline}} reviewer. Give concrete feedback on the hypothesis below: what is vague, what is likely invalid, what is not novel relative to the background survey, and what single change would most improve it.

Research question:
{{.Question}}

Inspiration paper:
{{.InspTitle}}

Current hypothesis:
{{.Hypothesis}}

Respond with a JSON object with one field: "feedback" (string). Do not include any text outside the JSON object.
`))

func (p DefaultPrompts) Critique(bg types.ResearchBackground, insp types.InspirationCandidate, current types.Hypothesis) string {
	return render(critiqueTmpl, map[string]string{
		"Discipline": p.discipline(),
		"Question":   bg.Question,
		"InspTitle":  insp.Title,
		"Hypothesis": current.HypothesisText,
	})
}

var reviseTmpl = template.Must(template.New("revise").Parse(`You are a knowledgeable {{.Discipline}} researcher. Improve the hypothesis below by addressing the reviewer feedback. Keep what the feedback did not question; change only what it did.

Research question:
{{.Question}}

Inspiration paper:
{{.InspTitle}}
{{.InspAbstract}}

Current hypothesis:
{{.Hypothesis}}

Reviewer feedback:
{{.Feedback}}

Respond with a JSON object with two fields: "reasoning" (string, what changed and why) and "hypothesis" (string, the revised hypothesis statement). Do not include any text outside the JSON object.
`))

func (p DefaultPrompts) Revise(bg types.ResearchBackground, insp types.InspirationCandidate, current types.Hypothesis) string {
	return render(reviseTmpl, map[string]string{
		"Discipline":   p.discipline(),
		"Question":     bg.Question,
		"InspTitle":    insp.Title,
		"InspAbstract": insp.Abstract,
		"Hypothesis":   current.HypothesisText,
		"Feedback":     current.FeedbackText,
	})
}

var selfScoreTmpl = template.Must(template.New("selfscore").Parse(`You are a strict {{.Discipline}} reviewer. Score the hypothesis below on four aspects, each an integer or half-point between 0 and 10: novelty (is it new relative to known methods), validity (is the mechanism scientifically plausible), significance (would a positive result matter), and clarity (is it specific enough to test).

Research question:
{{.Question}}

Hypothesis:
{{.Hypothesis}}

Respond with a JSON object with four numeric fields: "novelty", "validity", "significance", "clarity". Do not include any text outside the JSON object.
`))

func (p DefaultPrompts) SelfScore(bg types.ResearchBackground, hypothesisText string) string {
	return render(selfScoreTmpl, map[string]string{
		"Discipline": p.discipline(),
		"Question":   bg.Question,
		"Hypothesis": hypothesisText,
	})
}

var recombineTmpl = template.Must(template.New("recombine").Parse(`You are a knowledgeable {{.Discipline}} researcher. Create a new hypothesis for the research question by combining the best hypothesis so far with the additional inspiration paper below. The new hypothesis must differ substantively from the earlier combinations listed; do not restate them with new words.

Research question:
{{.Question}}

Best hypothesis so far:
{{.Best}}

Additional inspiration paper:
{{.AltTitle}}
{{.AltAbstract}}
{{if .Prior}}
Earlier combinations to stay distinct from:
{{range .Prior}}- {{.}}
{{end}}{{end}}
Respond with a JSON object with two fields: "reasoning" (string, how the combination works) and "hypothesis" (string, the new hypothesis statement). Do not include any text outside the JSON object.
`))

func (p DefaultPrompts) Recombine(bg types.ResearchBackground, best types.Hypothesis, alt types.InspirationCandidate, prior []string) string {
	var buf bytes.Buffer
	recombineTmpl.Execute(&buf, struct {
		Discipline, Question, Best, AltTitle, AltAbstract string
		Prior                                             []string
	}{
		Discipline:  p.discipline(),
		Question:    bg.Question,
		Best:        best.HypothesisText,
		AltTitle:    alt.Title,
		AltAbstract: alt.Abstract,
		Prior:       prior,
	})
	return buf.String()
}

var exploreTmpl = template.Must(template.New("explore").Parse(`You are a knowledgeable {{.Discipline}} researcher. Decide whether the hypothesis below would benefit from one additional piece of established {{.Discipline}} knowledge not already used, and if so state that knowledge precisely.

Research question:
{{.Question}}

Current hypothesis:
{{.Best}}
{{if .Knowledge}}
Knowledge already recalled:
{{range .Knowledge}}- {{.}}
{{end}}{{end}}
Respond with a JSON object with two fields: "needed" (the string "yes" or "no") and "knowledge" (string, the knowledge to add, or a short reason why none is needed). Do not include any text outside the JSON object.
`))

func (p DefaultPrompts) Explore(bg types.ResearchBackground, best types.Hypothesis, knowledge []string) string {
	var buf bytes.Buffer
	exploreTmpl.Execute(&buf, struct {
		Discipline, Question, Best string
		Knowledge                  []string
	}{
		Discipline: p.discipline(),
		Question:   bg.Question,
		Best:       best.HypothesisText,
		Knowledge:  knowledge,
	})
	return buf.String()
}

func render(tmpl *template.Template, data map[string]string) string {
	var buf bytes.Buffer
	tmpl.Execute(&buf, data)
	return buf.String()
}
