package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dptool/internal/osdr"
	"dptool/internal/runsheet"
)

var (
	getISAAccession string
	getISAOutDir    string
)

var getISACmd = &cobra.Command{
	Use:   "get-isa",
	Short: "Download a dataset's ISA metadata archive from OSDR",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := osdr.NewClient(logger)
		outDir := runsheet.ExpandTemplate(getISAOutDir, getISAAccession)
		path, err := client.DownloadISA(getISAAccession, outDir)
		if err != nil {
			return err
		}
		logger.Info("ISA archive ready", zap.String("path", path))
		return nil
	},
}

func init() {
	getISACmd.Flags().StringVar(&getISAAccession, "accession", "", "dataset accession, e.g. OSD-194 or GLDS-194")
	getISACmd.Flags().StringVar(&getISAOutDir, "output-dir", ".", "directory the archive is written into; {dataset} and {datasystem} expand to the accession")
	_ = getISACmd.MarkFlagRequired("accession")
	rootCmd.AddCommand(getISACmd)
}
