// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

func TestLoadCandidates(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []types.InspirationCandidate
		errIs   error
		errMsg  string
	}{
		{
			name:    "valid pairs in order",
			content: `[["Paper A", "Abstract A"], ["Paper B", "Abstract B"]]`,
			want: []types.InspirationCandidate{
				{Title: "Paper A", Abstract: "Abstract A"},
				{Title: "Paper B", Abstract: "Abstract B"},
			},
		},
		{
			name:    "cleans artifacts",
			content: `[["**Paper A**", "Abstract  with   gaps"]]`,
			want: []types.InspirationCandidate{
				{Title: "Paper A", Abstract: "Abstract with gaps"},
			},
		},
		{
			name:    "wrong arity",
			content: `[["Paper A", "Abstract A", "extra"]]`,
			errIs:   types.ErrDataContract,
		},
		{
			name:    "empty abstract rejected",
			content: `[["Paper A", "   "]]`,
			errIs:   types.ErrDataContract,
		},
		{
			name:    "not a pair list",
			content: `{"title": "x"}`,
			errMsg:  "parsing corpus file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "corpus.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := LoadCandidates(path)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
				return
			}
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCandidatesMissingFile(t *testing.T) {
	_, err := LoadCandidates(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestSaveLoadCandidatesRoundTrip(t *testing.T) {
	candidates := []types.InspirationCandidate{
		{Title: "Paper A", Abstract: "Abstract A"},
		{Title: "Paper B", Abstract: "Abstract B"},
		{Title: "Paper C", Abstract: "Abstract C"},
	}
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, SaveCandidates(path, candidates))

	got, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, candidates, got)
}

func TestFromExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"Title", "Abstract", "Year"},
		{"Paper A", "Abstract A", "2021"},
		{"Paper B", "Abstract B", "2022"},
		{"paper a", "Duplicate of A", "2023"},
		{"", "Orphan abstract", "2023"},
		{"No abstract", "", "2023"},
	}
	for i, row := range rows {
		for j, v := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellRef, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := FromExcel(path, "")
	require.NoError(t, err)
	assert.Equal(t, []types.InspirationCandidate{
		{Title: "Paper A", Abstract: "Abstract A"},
		{Title: "Paper B", Abstract: "Abstract B"},
	}, got)
}

func TestFromExcelMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Name"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "x"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := FromExcel(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a title or abstract column")
}

func TestLoadBackground(t *testing.T) {
	t.Run("question and survey", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bg.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"question": "How?", "survey": "Prior work."}`), 0o644))

		bg, err := LoadBackground(path)
		require.NoError(t, err)
		assert.Equal(t, types.ResearchBackground{Question: "How?", Survey: "Prior work."}, bg)
	})

	t.Run("survey optional", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bg.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"question": "How?"}`), 0o644))

		bg, err := LoadBackground(path)
		require.NoError(t, err)
		assert.Equal(t, "How?", bg.Question)
		assert.Empty(t, bg.Survey)
	})

	t.Run("question required", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bg.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"survey": "Prior work."}`), 0o644))

		_, err := LoadBackground(path)
		assert.ErrorIs(t, err, types.ErrDataContract)
	})
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"markdown emphasis", "**bold claim** about ##section", "bold claim about section"},
		{"zero width", "zero​width\uFEFF joined", "zerowidth joined"},
		{"control characters", "a\x00b\x07c", "abc"},
		{"whitespace collapse", "  spaced \n\n out \t text ", "spaced out text"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
