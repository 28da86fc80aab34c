package runsheet

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"dptool/internal/config"
	"dptool/internal/isa"
)

// URLResolver maps a filename to its unique public download URL for an
// accession. Not exactly one match is an error.
type URLResolver interface {
	RetrieveFileURL(accession, filename string) (string, error)
}

// readTwoDesignations mark second-of-pair read files; when a split value
// list leads with one of these, the first two values are swapped.
var readTwoDesignations = []string{"_R2_", "_R2.", "-R2.", "-R2-", ".R2.", "_2."}

// ownerPrefixes start a new column group in ISA tables; scanning for a
// suffix column stops at the next owner.
var ownerPrefixes = []string{"Parameter Value[", "Factor Value[", "Characteristics["}

// Mapper applies field rules to the merged sample/assay table and the
// investigation subtables, writing runsheet columns.
type Mapper struct {
	Accession string
	Resolver  URLResolver
	Log       *zap.Logger
}

// Apply runs one rule. Rules apply in declaration order; each failure
// carries the rule and, where known, the sample it failed on.
func (m *Mapper) Apply(rule config.FieldRule, merged *isa.Table, inv map[string]*isa.Table, assayRow int, sheet *Sheet) error {
	switch {
	case len(rule.TrueIfIncludesAtLeastOne) > 0:
		return m.applyMembership(rule, inv, sheet)
	case sourcesInvestigation(rule):
		return m.applyInvestigation(rule, inv, assayRow, sheet)
	case rule.MatchesMultipleColumns:
		return m.applyMultiColumn(rule, merged, sheet)
	default:
		return m.applyScalar(rule, merged, sheet)
	}
}

func sourcesInvestigation(rule config.FieldRule) bool {
	for _, src := range rule.TableSource {
		if src == "Investigation" {
			return true
		}
	}
	return false
}

// applyMembership emits True when the configured value set intersects the
// subtable column, compared without case or surrounding whitespace.
func (m *Mapper) applyMembership(rule config.FieldRule, inv map[string]*isa.Table, sheet *Sheet) error {
	subtable, ok := inv[rule.InvestigationSubtable]
	if !ok {
		return &config.ConfigError{Rule: rule.ID(), Msg: fmt.Sprintf("unknown investigation subtable %q", rule.InvestigationSubtable)}
	}
	values, err := resolveColumn(rule, subtable)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(values))
	for _, v := range values {
		present[strings.ToLower(strings.TrimSpace(v))] = true
	}
	result := "False"
	for _, want := range rule.TrueIfIncludesAtLeastOne {
		if present[strings.ToLower(strings.TrimSpace(want))] {
			result = "True"
			break
		}
	}
	sheet.SetAll(rule.RunsheetColumn.Columns[0].Name, result)
	return nil
}

// applyInvestigation broadcasts one subtable cell, taken at the selected
// assay's row, to every sample.
func (m *Mapper) applyInvestigation(rule config.FieldRule, inv map[string]*isa.Table, assayRow int, sheet *Sheet) error {
	subtable, ok := inv[rule.InvestigationSubtable]
	if !ok {
		return &config.ConfigError{Rule: rule.ID(), Msg: fmt.Sprintf("unknown investigation subtable %q", rule.InvestigationSubtable)}
	}
	values, err := resolveColumn(rule, subtable)
	if err != nil {
		return err
	}
	row := assayRow
	if row >= len(values) {
		if len(values) == 1 {
			row = 0
		} else {
			return &config.DataError{Rule: rule.ID(), Msg: fmt.Sprintf("subtable %q has %d rows, assay row %d out of range", rule.InvestigationSubtable, len(values), assayRow)}
		}
	}
	value := remap(rule, values[row])
	sheet.SetAll(rule.RunsheetColumn.Columns[0].Name, value)
	return nil
}

// applyMultiColumn treats the rule's source name as a regex over all table
// headers; each match passes through under its own name, with the optional
// adjacent suffix column concatenated per sample.
func (m *Mapper) applyMultiColumn(rule config.FieldRule, merged *isa.Table, sheet *Sheet) error {
	re, err := regexp.Compile("^(?:" + rule.MatchRegex + ")")
	if err != nil {
		return &config.ConfigError{Rule: rule.ID(), Msg: fmt.Sprintf("bad match_regex: %v", err)}
	}
	sampleCol := merged.ColumnIndex(SampleColumn)
	matchedAny := false
	for i, column := range merged.Columns {
		if !re.MatchString(column) {
			continue
		}
		matchedAny = true
		values := merged.ColumnAt(i)
		if rule.AppendColumnFollowing != "" {
			values = appendSuffixColumn(merged, i, rule.AppendColumnFollowing)
		}
		for r, value := range values {
			sheet.Set(merged.Cell(r, sampleCol), column, value)
		}
	}
	if !matchedAny {
		m.warn(rule, "", fmt.Sprintf("no table column matches %q", rule.MatchRegex))
	}
	return nil
}

// appendSuffixColumn resolves the Factor Value/Unit cross-reference: scan
// the headers after col until the next owner column; a column starting with
// prefix supplies a per-sample suffix. The suffix column itself is never
// emitted as a runsheet column.
func appendSuffixColumn(t *isa.Table, col int, prefix string) []string {
	values := t.ColumnAt(col)
	for scan := col + 1; scan < len(t.Columns); scan++ {
		header := t.Columns[scan]
		if isOwnerColumn(header) {
			break
		}
		if !strings.HasPrefix(header, prefix) {
			continue
		}
		suffixes := t.ColumnAt(scan)
		for r := range values {
			if suffixes[r] != "" {
				values[r] = values[r] + " " + suffixes[r]
			}
		}
		break
	}
	return values
}

func isOwnerColumn(header string) bool {
	for _, prefix := range ownerPrefixes {
		if strings.HasPrefix(header, prefix) {
			return true
		}
	}
	return false
}

// applyScalar runs the per-sample stage chain: source resolution, value
// remapping, regex extraction, multi-value splitting, indexed assignment,
// URL mapping.
func (m *Mapper) applyScalar(rule config.FieldRule, merged *isa.Table, sheet *Sheet) error {
	sampleCol := merged.ColumnIndex(SampleColumn)

	col := -1
	for _, candidate := range rule.ISAFieldName {
		if i := merged.ColumnIndex(candidate); i >= 0 {
			col = i
			break
		}
	}
	if col < 0 {
		switch {
		case rule.FallbackValue != "":
			m.warn(rule, "", fmt.Sprintf("no candidate column of %v found, using fallback value %q", []string(rule.ISAFieldName), rule.FallbackValue))
			for _, target := range rule.RunsheetColumn.Columns {
				sheet.SetAll(target.Name, rule.FallbackValue)
			}
			return nil
		case rule.Optional:
			m.warn(rule, "", fmt.Sprintf("no candidate column of %v found, emitting empty column", []string(rule.ISAFieldName)))
			for _, target := range rule.RunsheetColumn.Columns {
				sheet.SetAll(target.Name, "")
			}
			return nil
		default:
			return &config.DataError{
				Rule: rule.ID(),
				Msg: fmt.Sprintf("none of the candidate columns %v present; table has: %v",
					[]string(rule.ISAFieldName), merged.Columns),
			}
		}
	}

	for r := range merged.Rows {
		sample := merged.Cell(r, sampleCol)
		if err := m.applyToSample(rule, sample, merged.Cell(r, col), sheet); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) applyToSample(rule config.FieldRule, sample, raw string, sheet *Sheet) error {
	value := remap(rule, raw)

	var parts []string
	if rule.MultipleValues {
		var err error
		parts, err = m.splitValue(rule, sample, value)
		if err != nil {
			return err
		}
	} else {
		v, matched := extractOne(rule, value)
		if rule.MatchRegex != "" && !matched {
			m.warn(rule, sample, fmt.Sprintf("match_regex %q did not match %q, passing raw value through", rule.MatchRegex, value))
		}
		parts = []string{v}
	}

	if rule.GLDSURLMapping {
		if m.Resolver == nil {
			return &config.ConfigError{Rule: rule.ID(), Msg: "glds_url_mapping set but no URL resolver available"}
		}
		for i, filename := range parts {
			url, err := m.Resolver.RetrieveFileURL(m.Accession, filename)
			if err != nil {
				return &config.DataError{Rule: rule.ID(), Sample: sample, Msg: err.Error()}
			}
			parts[i] = url
		}
	}

	return assignTargets(rule, sample, parts, sheet)
}

// splitValue produces the ordered value sequence for multi-value rules:
// all regex captures when a match regex is declared, a delimiter split
// otherwise. Read pairs listed R2-first are swapped into R1, R2 order.
func (m *Mapper) splitValue(rule config.FieldRule, sample, value string) ([]string, error) {
	var parts []string
	if rule.MatchRegex != "" {
		re, err := regexp.Compile(rule.MatchRegex)
		if err != nil {
			return nil, &config.ConfigError{Rule: rule.ID(), Msg: fmt.Sprintf("bad match_regex: %v", err)}
		}
		for _, groups := range re.FindAllStringSubmatch(value, -1) {
			if len(groups) > 1 {
				parts = append(parts, groups[1])
			}
		}
		if len(parts) == 0 {
			m.warn(rule, sample, fmt.Sprintf("match_regex %q found nothing in %q, falling back to delimiter split", rule.MatchRegex, value))
		}
	}
	if len(parts) == 0 {
		delim := rule.MultipleValuesDelimiter
		if delim == "" {
			parts = []string{value}
		} else {
			re, err := regexp.Compile(delim)
			if err != nil {
				return nil, &config.ConfigError{Rule: rule.ID(), Msg: fmt.Sprintf("bad multiple_values_delimiter: %v", err)}
			}
			parts = re.Split(value, -1)
		}
	}
	if len(parts) > 1 && hasReadTwoDesignation(parts[0]) {
		parts[0], parts[1] = parts[1], parts[0]
	}
	return parts, nil
}

func hasReadTwoDesignation(name string) bool {
	lower := strings.ToLower(name)
	for _, designation := range readTwoDesignations {
		if strings.Contains(lower, strings.ToLower(designation)) {
			return true
		}
	}
	return false
}

// assignTargets writes the value sequence to the declared columns. Indexed
// descriptors pull by position; a missing position is empty for optional
// targets and fatal for required ones. A single-name target takes the first
// value.
func assignTargets(rule config.FieldRule, sample string, parts []string, sheet *Sheet) error {
	if !rule.RunsheetColumn.Indexed {
		sheet.Set(sample, rule.RunsheetColumn.Columns[0].Name, parts[0])
		return nil
	}
	for _, target := range rule.RunsheetColumn.Columns {
		if target.Index < len(parts) {
			sheet.Set(sample, target.Name, parts[target.Index])
			continue
		}
		if !target.Optional {
			return &config.DataError{
				Rule:   rule.ID(),
				Sample: sample,
				Msg: fmt.Sprintf("required column %q wants value index %d but only %d value(s) present",
					target.Name, target.Index, len(parts)),
			}
		}
		sheet.Set(sample, target.Name, "")
	}
	return nil
}

// remap substitutes mapped values; unmapped values pass through unchanged.
func remap(rule config.FieldRule, value string) string {
	if rule.Remapping == nil {
		return value
	}
	if mapped, ok := rule.Remapping[value]; ok {
		return mapped
	}
	return value
}

// extractOne applies a single-capture match regex; a non-match yields the
// raw value unchanged.
func extractOne(rule config.FieldRule, value string) (string, bool) {
	if rule.MatchRegex == "" {
		return value, true
	}
	re, err := regexp.Compile(rule.MatchRegex)
	if err != nil {
		return value, false
	}
	groups := re.FindStringSubmatch(value)
	if len(groups) < 2 {
		return value, false
	}
	return groups[1], true
}

// resolveColumn finds the first candidate source column in a table.
func resolveColumn(rule config.FieldRule, t *isa.Table) ([]string, error) {
	for _, candidate := range rule.ISAFieldName {
		if values, ok := t.Column(candidate); ok {
			return values, nil
		}
	}
	return nil, &config.DataError{
		Rule: rule.ID(),
		Msg:  fmt.Sprintf("none of the candidate columns %v present; table has: %v", []string(rule.ISAFieldName), t.Columns),
	}
}

func (m *Mapper) warn(rule config.FieldRule, sample, msg string) {
	if m.Log == nil {
		return
	}
	fields := []zap.Field{zap.String("rule", rule.ID())}
	if sample != "" {
		fields = append(fields, zap.String("sample", sample))
	}
	m.Log.Warn(msg, fields...)
}
