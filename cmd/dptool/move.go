package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dptool/internal/config"
	"dptool/internal/mover"
)

var (
	moveAssay      string
	moveComponent  string
	moveConfigPath string
	moveOutDir     string
	moveInputs     []string
	moveSymlinks   bool
	moveDryRun     bool
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Stage pipeline outputs into the configured directory structure",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(moveConfigPath)
		if err != nil {
			return err
		}
		inputs, err := parseInputs(moveInputs)
		if err != nil {
			return err
		}

		planner := &mover.Planner{Config: cfg, Log: logger}
		moves, err := planner.Plan(moveAssay, moveComponent, moveOutDir, inputs)
		if err != nil {
			return err
		}
		if err := planner.Execute(moves, moveSymlinks, moveDryRun); err != nil {
			return err
		}
		logger.Info("staging finished",
			zap.Int("files", len(moves)),
			zap.Bool("dry_run", moveDryRun))
		return nil
	},
}

// parseInputs splits -i key:path bindings, preserving order. Paths may
// contain colons only after the first.
func parseInputs(pairs []string) ([]mover.Input, error) {
	var inputs []mover.Input
	for _, pair := range pairs {
		key, source, ok := strings.Cut(pair, ":")
		if !ok || key == "" || source == "" {
			return nil, fmt.Errorf("bad --input %q, expected key:path", pair)
		}
		inputs = append(inputs, mover.Input{Key: key, Source: source})
	}
	return inputs, nil
}

func init() {
	moveCmd.Flags().StringVar(&moveAssay, "assay", "", "assay section of the structure config")
	moveCmd.Flags().StringVar(&moveComponent, "component", "", "component section of the structure config")
	moveCmd.Flags().StringVar(&moveConfigPath, "config", "", "staging configuration yaml")
	moveCmd.Flags().StringVar(&moveOutDir, "outdir", ".", "destination root directory")
	moveCmd.Flags().StringArrayVarP(&moveInputs, "input", "i", nil, "output key and source as key:path, repeatable; path may be a file, directory or glob")
	moveCmd.Flags().BoolVar(&moveSymlinks, "use-symlinks", false, "symlink instead of copying")
	moveCmd.Flags().BoolVar(&moveDryRun, "dry-run", false, "log every decision without touching the filesystem")
	_ = moveCmd.MarkFlagRequired("assay")
	_ = moveCmd.MarkFlagRequired("component")
	_ = moveCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(moveCmd)
}
