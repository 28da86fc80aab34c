package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dptool/internal/config"
	"dptool/internal/multiqc"
	"dptool/internal/osdr"
	"dptool/internal/runsheet"
)

var (
	runsheetAccession  string
	runsheetArchive    string
	runsheetConfigPath string
	runsheetOutDir     string
	runsheetSearchDir  string
	runsheetInject     []string
	runsheetMQCInputs  []string
	runsheetXLSX       bool
)

var runsheetCmd = &cobra.Command{
	Use:   "runsheet",
	Short: "Generate per-sample runsheets from an ISA metadata archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runsheetConfigPath)
		if err != nil {
			return err
		}
		inject, err := parseInject(runsheetInject)
		if err != nil {
			return err
		}

		outDir := runsheet.ExpandTemplate(runsheetOutDir, runsheetAccession)
		searchDir := runsheet.ExpandTemplate(runsheetSearchDir, runsheetAccession)

		archive := runsheetArchive
		client := osdr.NewClient(logger)
		if archive == "" {
			logger.Info("no local ISA archive given, fetching from OSDR",
				zap.String("accession", runsheetAccession))
			archive, err = client.DownloadISA(runsheetAccession, outDir)
			if err != nil {
				return err
			}
		}

		if len(runsheetMQCInputs) > 0 {
			logger.Info("running multiqc over raw QC logs",
				zap.Strings("inputs", runsheetMQCInputs),
				zap.String("outdir", searchDir))
			if err := multiqc.Run(searchDir, runsheetMQCInputs); err != nil {
				return err
			}
		}

		results, err := runsheet.Build(cfg, runsheet.Options{
			Accession:  runsheetAccession,
			ISAArchive: archive,
			SearchDir:  searchDir,
			Inject:     inject,
			Resolver:   client,
			Log:        logger,
		})
		if err != nil {
			return err
		}

		multiple := len(results) > 1
		for _, result := range results {
			name := runsheet.OutputName(runsheetAccession, cfg.Name, cfg.Version, result.AssayFile, multiple, ".csv")
			path := filepath.Join(outDir, name)
			if err := runsheet.WriteCSV(result.Sheet, path); err != nil {
				return err
			}
			logger.Info("wrote runsheet",
				zap.String("path", path),
				zap.Int("samples", len(result.Sheet.Samples)),
				zap.Int("columns", len(result.Sheet.Columns)))
			if runsheetXLSX {
				name = runsheet.OutputName(runsheetAccession, cfg.Name, cfg.Version, result.AssayFile, multiple, ".xlsx")
				if err := runsheet.WriteXLSX(result.Sheet, filepath.Join(outDir, name)); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

// parseInject splits --inject column:value pairs, preserving order.
func parseInject(pairs []string) ([]config.UserField, error) {
	var fields []config.UserField
	for _, pair := range pairs {
		column, value, ok := strings.Cut(pair, ":")
		if !ok || column == "" {
			return nil, fmt.Errorf("bad --inject %q, expected column:value", pair)
		}
		fields = append(fields, config.UserField{RunsheetColumn: column, Value: value})
	}
	return fields, nil
}

func init() {
	runsheetCmd.Flags().StringVar(&runsheetAccession, "accession", "", "dataset accession, e.g. OSD-194 or GLDS-194")
	runsheetCmd.Flags().StringVar(&runsheetArchive, "isa-archive", "", "local ISA archive zip; fetched from OSDR when omitted")
	runsheetCmd.Flags().StringVar(&runsheetConfigPath, "config", "", "staging configuration yaml")
	runsheetCmd.Flags().StringVar(&runsheetOutDir, "output-dir", ".", "directory runsheets are written into; {dataset} and {datasystem} expand to the accession")
	runsheetCmd.Flags().StringVar(&runsheetSearchDir, "search-dir", ".", "root directory MultiQC rule patterns resolve under; accession tokens expand as in --output-dir")
	runsheetCmd.Flags().StringArrayVar(&runsheetMQCInputs, "run-multiqc", nil, "raw QC log path handed to the multiqc binary before extraction, repeatable; the report lands in --search-dir")
	runsheetCmd.Flags().StringArrayVar(&runsheetInject, "inject", nil, "extra constant column as column:value, repeatable")
	runsheetCmd.Flags().BoolVar(&runsheetXLSX, "xlsx", false, "additionally write each runsheet as a workbook")
	_ = runsheetCmd.MarkFlagRequired("accession")
	_ = runsheetCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runsheetCmd)
}
