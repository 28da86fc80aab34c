// Package runsheet applies declarative field rules to ISA tables and
// assembles the per-sample runsheet consumed by downstream pipelines.
package runsheet

import (
	"strings"

	"go.uber.org/zap"
)

// SampleColumn heads the first runsheet column.
const SampleColumn = "Sample Name"

// OriginalSampleColumn preserves names before processing normalization.
const OriginalSampleColumn = "Original Sample Name"

// Sheet is the runsheet under construction: one row per sample in discovery
// order, one ordered column set shared by every row. Cells a rule never set
// read back as empty strings, keeping the column set uniform across rows.
type Sheet struct {
	Samples []string
	Columns []string
	cells   map[string]map[string]string
}

// NewSheet starts a sheet for samples in their source-table order.
func NewSheet(samples []string) *Sheet {
	s := &Sheet{
		Samples: append([]string(nil), samples...),
		cells:   make(map[string]map[string]string, len(samples)),
	}
	for _, sample := range samples {
		s.cells[sample] = make(map[string]string)
	}
	return s
}

// EnsureColumn registers a column at the end of the current order. Setting a
// cell registers its column implicitly; EnsureColumn exists for columns that
// stay empty for every sample.
func (s *Sheet) EnsureColumn(column string) {
	for _, c := range s.Columns {
		if c == column {
			return
		}
	}
	s.Columns = append(s.Columns, column)
}

// Set writes one cell, registering the column if new. Unknown samples are
// ignored: MultiQC reports may carry extra entries that are not samples.
func (s *Sheet) Set(sample, column, value string) {
	row, ok := s.cells[sample]
	if !ok {
		return
	}
	s.EnsureColumn(column)
	row[column] = value
}

// SetAll writes the same value for every sample.
func (s *Sheet) SetAll(column, value string) {
	s.EnsureColumn(column)
	for _, row := range s.cells {
		row[column] = value
	}
}

// Get reads one cell; unset cells are empty strings.
func (s *Sheet) Get(sample, column string) string {
	return s.cells[sample][column]
}

// Row returns the ordered cell values for one sample.
func (s *Sheet) Row(sample string) []string {
	values := make([]string, len(s.Columns))
	for i, column := range s.Columns {
		values[i] = s.cells[sample][column]
	}
	return values
}

// ColumnsMatching returns registered columns with the given prefix.
func (s *Sheet) ColumnsMatching(prefix string) []string {
	var matched []string
	for _, column := range s.Columns {
		if strings.HasPrefix(column, prefix) {
			matched = append(matched, column)
		}
	}
	return matched
}

// NormalizeSampleNames records each original name in OriginalSampleColumn,
// then replaces spaces with underscores in the row keys and in the emitted
// SampleColumn cell, so the written runsheet carries the processing form.
// Modified names are logged.
func (s *Sheet) NormalizeSampleNames(log *zap.Logger) {
	for _, sample := range s.Samples {
		s.Set(sample, OriginalSampleColumn, sample)
	}
	var modified []string
	for i, sample := range s.Samples {
		clean := strings.ReplaceAll(sample, " ", "_")
		if clean == sample {
			continue
		}
		modified = append(modified, sample)
		s.cells[clean] = s.cells[sample]
		delete(s.cells, sample)
		s.Samples[i] = clean
		s.Set(clean, SampleColumn, clean)
	}
	if len(modified) > 0 && log != nil {
		log.Info("sample names modified for processing",
			zap.Strings("original_names", modified))
	}
}
