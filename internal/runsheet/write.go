package runsheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	simple_util "github.com/liserjrqlxue/simple-util"
)

// OutputName builds the runsheet file name. With one matched assay the name
// is {accession}_{config}_v{version}_runsheet; with several, the assay table
// base name keeps the outputs distinct.
func OutputName(accession, configName, configVersion, assayFile string, multipleAssays bool, ext string) string {
	parts := []string{accession, configName}
	if multipleAssays {
		base := strings.TrimSuffix(filepath.Base(assayFile), filepath.Ext(assayFile))
		parts = append(parts, base)
	}
	parts = append(parts, "v"+configVersion, "runsheet")
	return strings.Join(parts, "_") + ext
}

// ExpandTemplate substitutes accession tokens: {dataset} is the full
// accession, {datasystem} its prefix before the first dash.
func ExpandTemplate(template, accession string) string {
	system, _, _ := strings.Cut(accession, "-")
	template = strings.ReplaceAll(template, "{dataset}", accession)
	return strings.ReplaceAll(template, "{datasystem}", system)
}

// WriteCSV writes the sheet with its column order, one row per sample.
func WriteCSV(sheet *Sheet, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer simple_util.DeferClose(f)

	w := csv.NewWriter(f)
	if err := w.Write(sheet.Columns); err != nil {
		return err
	}
	for _, sample := range sheet.Samples {
		if err := w.Write(sheet.Row(sample)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes the sheet as a single-sheet workbook.
func WriteXLSX(sheet *Sheet, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	xlsx := excelize.NewFile()
	for c, column := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := xlsx.SetCellValue("Sheet1", cell, column); err != nil {
			return err
		}
	}
	for r, sample := range sheet.Samples {
		for c, value := range sheet.Row(sample) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := xlsx.SetCellValue("Sheet1", cell, value); err != nil {
				return err
			}
		}
	}
	if err := xlsx.SaveAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
