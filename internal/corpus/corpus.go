// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads the inspiration corpus and research background that
// feed the screening stage. A corpus is an ordered list of (title, abstract)
// candidates; order is identity, so loading never reorders or mutates it.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// LoadCandidates reads a corpus from a JSON file of [[title, abstract], ...]
// pairs. Each pair must have exactly two non-empty elements; candidates are
// returned in file order.
func LoadCandidates(path string) ([]types.InspirationCandidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	var pairs [][]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}

	candidates := make([]types.InspirationCandidate, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: corpus entry %d has %d elements, want 2", types.ErrDataContract, i, len(pair))
		}
		c := types.InspirationCandidate{
			Title:    CleanText(pair[0]),
			Abstract: CleanText(pair[1]),
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("corpus entry %d: %w", i, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// SaveCandidates writes the corpus back out in the [[title, abstract], ...]
// format LoadCandidates reads.
func SaveCandidates(path string, candidates []types.InspirationCandidate) error {
	pairs := make([][]string, len(candidates))
	for i, c := range candidates {
		pairs[i] = []string{c.Title, c.Abstract}
	}
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing corpus file: %w", err)
	}
	return nil
}

// FromExcel builds a corpus from a spreadsheet export. The sheet must have a
// header row naming a title column and an abstract column (matched
// case-insensitively); rows with an empty title or abstract are skipped, and
// duplicate titles keep their first occurrence.
func FromExcel(path, sheet string) ([]types.InspirationCandidate, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s needs a header row and at least one data row", sheet)
	}

	titleCol, abstractCol := -1, -1
	for i, header := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "title":
			titleCol = i
		case "abstract":
			abstractCol = i
		}
	}
	if titleCol < 0 || abstractCol < 0 {
		return nil, fmt.Errorf("sheet %s is missing a title or abstract column", sheet)
	}

	seen := make(map[string]bool)
	var candidates []types.InspirationCandidate
	for _, row := range rows[1:] {
		title := CleanText(cell(row, titleCol))
		abstract := CleanText(cell(row, abstractCol))
		if title == "" || abstract == "" {
			continue
		}
		key := strings.ToLower(title)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, types.InspirationCandidate{Title: title, Abstract: abstract})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("sheet %s has no usable rows", sheet)
	}
	return candidates, nil
}

// LoadBackground reads a research background from a JSON file of the form
// {"question": ..., "survey": ...}. The question is required.
func LoadBackground(path string) (types.ResearchBackground, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResearchBackground{}, fmt.Errorf("reading background file: %w", err)
	}

	var bg types.ResearchBackground
	if err := json.Unmarshal(data, &bg); err != nil {
		return types.ResearchBackground{}, fmt.Errorf("parsing background file %s: %w", path, err)
	}
	bg.Question = CleanText(bg.Question)
	bg.Survey = CleanText(bg.Survey)
	if err := bg.Validate(); err != nil {
		return types.ResearchBackground{}, err
	}
	return bg, nil
}

// CleanText strips formatting artifacts that survive copy-paste from
// generation output or spreadsheet cells: markdown emphasis runs, zero-width
// and control characters, and redundant whitespace.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "##", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			// zero-width characters
		case unicode.IsControl(r) && r != '\n' && r != '\t':
			// keep newlines and tabs, drop the rest
		default:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
