// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screening

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// selectionPromptTmpl presents one chunk of the window and asks for the most
// promising inspirations. Candidates are addressed by their corpus index so
// the response maps back without a join.
var selectionPromptTmpl = template.Must(template.New("selection").Parse(`You are helping find the most promising inspiration papers for a research question. The best inspiration is usually not an obvious neighbor of the question; judge by whether the paper's core idea could unlock a new approach.

Research question:
{{.Question}}
{{if .Survey}}
Background survey of existing methods:
{{.Survey}}
{{end}}
Candidate papers:
{{range .Candidates}}
[{{.Index}}] {{.Title}}
{{.Abstract}}
{{end}}
Select the {{.Keep}} candidates most likely to inspire a novel, valid hypothesis for the research question. For each selection give the candidate number shown in brackets, a relevance score between 0 and 10, and a one-sentence reason.

Respond with a JSON object containing a "selections" array. Each element must have "index" (integer), "score" (number), and "reason" (string). Do not include any text outside the JSON object.

Example response:
{"selections": [{"index": 17, "score": 8.5, "reason": "The templating mechanism transfers directly to the target system."}]}
`))

type promptCandidate struct {
	Index    int
	Title    string
	Abstract string
}

// selectionPrompt renders the screening prompt for one chunk of window
// indices.
func selectionPrompt(bg types.ResearchBackground, corpus []types.InspirationCandidate, chunk []int, keep int) string {
	candidates := make([]promptCandidate, 0, len(chunk))
	for _, idx := range chunk {
		candidates = append(candidates, promptCandidate{
			Index:    idx,
			Title:    corpus[idx].Title,
			Abstract: corpus[idx].Abstract,
		})
	}
	if keep > len(candidates) {
		keep = len(candidates)
	}

	var buf bytes.Buffer
	selectionPromptTmpl.Execute(&buf, struct {
		Question   string
		Survey     string
		Candidates []promptCandidate
		Keep       int
	}{
		Question:   bg.Question,
		Survey:     bg.Survey,
		Candidates: candidates,
		Keep:       keep,
	})
	return buf.String()
}
