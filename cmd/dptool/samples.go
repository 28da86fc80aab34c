package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dptool/internal/multiqc"
	"dptool/internal/runsheet"
)

var (
	samplesSource       string
	samplesGeneralStats string
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List a runsheet's samples, optionally checking them against a MultiQC general stats table",
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := runsheet.LoadSamples(samplesSource)
		if err != nil {
			return err
		}
		for _, sample := range samples {
			fmt.Println(sample)
		}
		if samplesGeneralStats == "" {
			return nil
		}

		reported := make(map[string]bool)
		for _, sample := range multiqc.SamplesInGeneralStats(samplesGeneralStats) {
			reported[sample] = true
		}
		var missing []string
		for _, sample := range samples {
			if !reported[sample] {
				missing = append(missing, sample)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("samples absent from %s: %s", samplesGeneralStats, strings.Join(missing, ", "))
		}
		logger.Info("all samples present in general stats",
			zap.Int("samples", len(samples)),
			zap.String("general_stats", samplesGeneralStats))
		return nil
	},
}

func init() {
	samplesCmd.Flags().StringVar(&samplesSource, "runsheet", "", "runsheet csv or plain sample list file")
	samplesCmd.Flags().StringVar(&samplesGeneralStats, "general-stats", "", "multiqc_general_stats.txt to verify every sample appears in")
	_ = samplesCmd.MarkFlagRequired("runsheet")
	rootCmd.AddCommand(samplesCmd)
}
