// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists stage artifacts as JSON files and reloads them
// for the next stage or a resumed run. Writes are atomic (temp file plus
// rename) so a reader never observes a torn checkpoint; loads validate the
// data contract and refuse corrupted state.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Checkpoint file names, one per stage output.
const (
	ShortlistFile  = "screening_shortlist.json"
	CollectionFile = "generation_collection.json"
	RankingFile    = "evaluation_ranking.json"
)

// Store reads and writes checkpoint files under one directory.
type Store struct {
	dir string
}

// NewStore creates the checkpoint directory if needed and returns a store
// over it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "checkpoints"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the checkpoint directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of a checkpoint file.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Exists reports whether a checkpoint file is already present. Stage
// commands use this to skip completed work on resume.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// SaveShortlist writes the screening stage's output.
func (s *Store) SaveShortlist(sl types.Shortlist) error {
	if err := sl.Validate(); err != nil {
		return err
	}
	return s.writeJSON(ShortlistFile, sl)
}

// LoadShortlist reads and validates the screening stage's output.
func (s *Store) LoadShortlist() (types.Shortlist, error) {
	var sl types.Shortlist
	if err := s.readJSON(ShortlistFile, &sl); err != nil {
		return types.Shortlist{}, err
	}
	if err := sl.Validate(); err != nil {
		return types.Shortlist{}, err
	}
	return sl, nil
}

// SaveCollection writes the evolution stage's output in the wire format.
func (s *Store) SaveCollection(c types.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.writeJSON(CollectionFile, toWireCollection(c))
}

// LoadCollection reads the evolution stage's output, mapping wire records
// back to named hypotheses and validating the data contract.
func (s *Store) LoadCollection() (types.Collection, error) {
	var wc wireCollection
	if err := s.readJSON(CollectionFile, &wc); err != nil {
		return types.Collection{}, err
	}
	c := wc.toCollection()
	if err := c.Validate(); err != nil {
		return types.Collection{}, err
	}
	return c, nil
}

// SaveRanking writes the evaluation stage's output.
func (s *Store) SaveRanking(r types.Ranking) error {
	return s.writeJSON(RankingFile, r)
}

// LoadRanking reads the evaluation stage's output.
func (s *Store) LoadRanking() (types.Ranking, error) {
	var r types.Ranking
	if err := s.readJSON(RankingFile, &r); err != nil {
		return types.Ranking{}, err
	}
	for _, res := range r.Results {
		for _, score := range res.Aspects.Slice() {
			if score < types.ScoreMin || score > types.ScoreMax {
				return types.Ranking{}, fmt.Errorf("%w: ranking entry %s has aspect score %g outside [%g, %g]",
					types.ErrDataContract, res.LineageID, score, types.ScoreMin, types.ScoreMax)
			}
		}
	}
	return r, nil
}

// writeJSON marshals v and writes it atomically: the temp file lives in the
// target directory so the rename never crosses filesystems.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("reading checkpoint %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: checkpoint %s: %v", types.ErrDataContract, name, err)
	}
	return nil
}
