//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Pipeline runs the built binary through every stage in order: screen,
// evolve, evaluate, report. Stages that already wrote their checkpoint are
// skipped by the binary itself, so Pipeline is safe to re-run after a
// failure.
func Pipeline() error {
	bin := filepath.Join(binDir, binName)
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("%s not found, run mage build first", bin)
	}
	for _, stage := range []string{"screen", "evolve", "evaluate", "report"} {
		fmt.Printf("==> %s\n", stage)
		cmd := exec.Command(bin, stage)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
	}
	return nil
}
