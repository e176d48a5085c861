// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"text/template"
)

var aspectTmpl = template.Must(template.New("aspect").Parse(`You are a strict {{.Discipline}} reviewer evaluating a proposed research hypothesis. Score it on four aspects, each between 0 and 10: novelty (is it new relative to established methods), validity (is the mechanism scientifically plausible), significance (would a positive result matter to the field), and clarity (is it specific enough to design an experiment around). Judge each aspect independently; do not let one aspect bleed into another.

Research question:
{{.Question}}

Hypothesis:
{{.Hypothesis}}

Respond with a JSON object with four numeric fields: "novelty", "validity", "significance", "clarity". Do not include any text outside the JSON object.

Example response:
{"novelty": 7, "validity": 8.5, "significance": 6, "clarity": 9}
`))

func aspectPrompt(discipline, question, hypothesisText string) string {
	return renderEval(aspectTmpl, map[string]string{
		"Discipline": disciplineOrDefault(discipline),
		"Question":   question,
		"Hypothesis": hypothesisText,
	})
}

var matchTmpl = template.Must(template.New("match").Parse(`You are a {{.Discipline}} expert comparing a generated hypothesis against a reference hypothesis. Rate how well the generated hypothesis covers the key points of the reference on a 0 to 5 scale: 5 means it covers all three key points (or the complete mechanism) of the reference; 4 covers most; 3 covers about half; 2 covers a minor part; 1 touches the topic only; 0 is unrelated. Judge mechanism coverage, not wording.

Reference hypothesis:
{{.Reference}}

Generated hypothesis:
{{.Hypothesis}}

Respond with a JSON object with two fields: "match" (number between 0 and 5) and "reason" (string). Do not include any text outside the JSON object.
`))

func matchPrompt(discipline, reference, hypothesisText string) string {
	return renderEval(matchTmpl, map[string]string{
		"Discipline": disciplineOrDefault(discipline),
		"Reference":  reference,
		"Hypothesis": hypothesisText,
	})
}

func disciplineOrDefault(d string) string {
	if d == "" {
		return "chemistry"
	}
	return d
}

func renderEval(tmpl *template.Template, data map[string]string) string {
	var buf bytes.Buffer
	tmpl.Execute(&buf, data)
	return buf.String()
}
