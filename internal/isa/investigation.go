package isa

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	simple_util "github.com/liserjrqlxue/simple-util"

	"dptool/internal/config"
)

// InvestigationHeaders are the fixed section names of an ISA investigation
// file. Every section becomes one subtable.
var InvestigationHeaders = map[string]bool{
	"ONTOLOGY SOURCE REFERENCE":  true,
	"INVESTIGATION":              true,
	"INVESTIGATION PUBLICATIONS": true,
	"INVESTIGATION CONTACTS":     true,
	"STUDY":                      true,
	"STUDY DESIGN DESCRIPTORS":   true,
	"STUDY PUBLICATIONS":         true,
	"STUDY FACTORS":              true,
	"STUDY ASSAYS":               true,
	"STUDY PROTOCOLS":            true,
	"STUDY CONTACTS":             true,
}

// ParseInvestigation splits an investigation file into its subtables. Each
// section is stored row-major in the file (field name first on each line) and
// is transposed here so field names become column headers.
func ParseInvestigation(path string) (map[string]*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer simple_util.DeferClose(f)

	tables := make(map[string]*Table)
	var section string
	var lines [][]string

	flush := func() {
		if section == "" {
			return
		}
		tables[section] = transpose(path, lines)
		lines = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if InvestigationHeaders[line] {
			flush()
			section = line
			continue
		}
		if section == "" {
			continue
		}
		tokens := strings.Split(line, "\t")
		for i, tok := range tokens {
			tokens[i] = strings.Trim(tok, `"'`)
		}
		lines = append(lines, tokens)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	for header := range InvestigationHeaders {
		if _, ok := tables[header]; !ok {
			return nil, fmt.Errorf("investigation file missing section %q", header)
		}
	}
	return tables, nil
}

// transpose turns section lines (field name, then one token per study row)
// into a Table with field names as headers.
func transpose(path string, lines [][]string) *Table {
	t := &Table{Path: path}
	rows := 0
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		t.Columns = append(t.Columns, line[0])
		if len(line)-1 > rows {
			rows = len(line) - 1
		}
	}
	t.Rows = make([][]string, rows)
	for r := range t.Rows {
		t.Rows[r] = make([]string, len(t.Columns))
	}
	col := 0
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		for r := 0; r < rows; r++ {
			if r+1 < len(line) {
				t.Rows[r][col] = line[r+1]
			}
		}
		col++
	}
	return t
}

// AssayMatch is one STUDY ASSAYS row accepted by the config's valid
// (measurement, technology) pairs.
type AssayMatch struct {
	// FileName is the assay table file named by the investigation.
	FileName string
	// Row is the index into the STUDY ASSAYS subtable.
	Row int
}

// SelectAssays returns the assay tables matching the configured measurement
// and technology types. Zero matches is fatal: the archive does not contain
// the assay this config describes.
func SelectAssays(inv map[string]*Table, valid []config.AssayType) ([]AssayMatch, error) {
	assays, ok := inv["STUDY ASSAYS"]
	if !ok {
		return nil, fmt.Errorf("investigation has no STUDY ASSAYS subtable")
	}
	measurements, ok1 := assays.Column("Study Assay Measurement Type")
	technologies, ok2 := assays.Column("Study Assay Technology Type")
	fileNames, ok3 := assays.Column("Study Assay File Name")
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("STUDY ASSAYS subtable missing measurement/technology/file columns")
	}

	var matches []AssayMatch
	for _, want := range valid {
		for i := range fileNames {
			if measurements[i] == want.Measurement && technologies[i] == want.Technology {
				matches = append(matches, AssayMatch{FileName: fileNames[i], Row: i})
			}
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf(
			"no assay matches configured measurement/technology pairs %v; archive lists measurements %v with technologies %v",
			valid, measurements, technologies)
	}
	return matches, nil
}
