// Package mover stages pipeline outputs into the configured directory
// structure: (assay, component, output key) names a relative destination,
// inputs expand to concrete files, and every decision is made before the
// first file operation.
package mover

import (
	"fmt"
	"os"
	"path/filepath"

	simple_util "github.com/liserjrqlxue/simple-util"
	"go.uber.org/zap"

	"dptool/internal/config"
	"dptool/internal/match"
)

// Input binds one output key to a source spec: a file, a directory, or a
// glob pattern.
type Input struct {
	Key    string
	Source string
}

// Move is one planned file operation.
type Move struct {
	Source string
	Dest   string
}

// Planner resolves inputs against a config's structure table.
type Planner struct {
	Config *config.Config
	Log    *zap.Logger
}

// Plan resolves every input to concrete moves under outDir. Unknown output
// keys fail before any input expansion, so a typo never leaves a partial
// staging behind.
func (p *Planner) Plan(assay, component, outDir string, inputs []Input) ([]Move, error) {
	outputs, err := p.Config.ComponentOutputs(assay, component)
	if err != nil {
		return nil, err
	}
	for _, input := range inputs {
		if _, ok := outputs[input.Key]; !ok {
			return nil, &config.ConfigError{
				Rule: fmt.Sprintf("%s/%s/%s", assay, component, input.Key),
				Msg:  "output key not declared in structure config",
			}
		}
	}

	var moves []Move
	for _, input := range inputs {
		destDir := filepath.Join(outDir, filepath.FromSlash(outputs[input.Key]))
		files, err := match.Expand(input.Source)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("input %q for key %q matched no files", input.Source, input.Key)
		}
		for _, f := range files {
			if !simple_util.FileExists(f) {
				return nil, fmt.Errorf("input file does not exist: %s", f)
			}
			moves = append(moves, Move{Source: f, Dest: filepath.Join(destDir, filepath.Base(f))})
		}
	}
	return moves, nil
}

// Execute performs the planned moves. With dryRun set, every decision is
// logged and nothing touches the filesystem. With useSymlinks set, absolute
// symlinks replace copies.
func (p *Planner) Execute(moves []Move, useSymlinks, dryRun bool) error {
	for _, mv := range moves {
		if dryRun {
			if p.Log != nil {
				p.Log.Info("dry run",
					zap.String("source", mv.Source),
					zap.String("dest", mv.Dest),
					zap.Bool("symlink", useSymlinks))
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(mv.Dest), 0755); err != nil {
			return err
		}
		if useSymlinks {
			abs, err := filepath.Abs(mv.Source)
			if err != nil {
				return err
			}
			if err := os.Remove(mv.Dest); err != nil && !os.IsNotExist(err) {
				return err
			}
			if err := os.Symlink(abs, mv.Dest); err != nil {
				return fmt.Errorf("link %s: %w", mv.Dest, err)
			}
		} else {
			if err := simple_util.CopyFile(mv.Dest, mv.Source); err != nil {
				return fmt.Errorf("copy %s: %w", mv.Dest, err)
			}
		}
		if p.Log != nil {
			p.Log.Info("staged",
				zap.String("source", mv.Source),
				zap.String("dest", mv.Dest),
				zap.Bool("symlink", useSymlinks))
		}
	}
	return nil
}
