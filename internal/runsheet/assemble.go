package runsheet

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"dptool/internal/config"
	"dptool/internal/isa"
	"dptool/internal/match"
	"dptool/internal/multiqc"
)

// GroupsColumn joins all Factor Value columns per sample.
const GroupsColumn = "groups"

// Options carry everything one runsheet build needs beyond the config.
type Options struct {
	Accession  string
	ISAArchive string
	// SearchDir is the root that MultiQC rule patterns resolve under.
	SearchDir string
	// Inject appends constant columns after all config-derived ones, in
	// the order given on the command line.
	Inject   []config.UserField
	Resolver URLResolver
	Log      *zap.Logger
}

// Result is one assembled runsheet: one per matched assay table.
type Result struct {
	// AssayFile is the assay table's base name from the investigation.
	AssayFile string
	Sheet     *Sheet
}

// Build extracts the ISA archive, selects the assay tables the config
// declares valid, and assembles one runsheet per selected assay by applying
// the staging rules in declaration order.
func Build(cfg *config.Config, opts Options) ([]Result, error) {
	files, err := isa.ExtractArchive(opts.ISAArchive)
	if err != nil {
		return nil, err
	}
	invPath, err := isa.FindFileWithPrefix(files, "i_")
	if err != nil {
		return nil, err
	}
	inv, err := isa.ParseInvestigation(invPath)
	if err != nil {
		return nil, err
	}
	assays, err := isa.SelectAssays(inv, cfg.ISAMeta.ValidAssays)
	if err != nil {
		return nil, err
	}
	studyPath, err := isa.FindFileWithPrefix(files, "s_")
	if err != nil {
		return nil, err
	}
	study, err := isa.ReadTable(studyPath)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, assay := range assays {
		assayPath, ok := isa.FileByName(files, assay.FileName)
		if !ok {
			return nil, fmt.Errorf("investigation names assay table %q but the archive does not contain it", assay.FileName)
		}
		assayTable, err := isa.ReadTable(assayPath)
		if err != nil {
			return nil, err
		}
		merged, err := isa.Merge(study, assayTable, SampleColumn)
		if err != nil {
			return nil, err
		}
		sheet, err := assemble(cfg, opts, merged, inv, assay.Row)
		if err != nil {
			return nil, fmt.Errorf("assay %s: %w", assay.FileName, err)
		}
		results = append(results, Result{AssayFile: assay.FileName, Sheet: sheet})
	}
	return results, nil
}

// assemble builds one runsheet from a merged study+assay table. Column order
// follows the config: from_isa rules in declaration order, the preserved
// original sample names, from_multiqc columns, the groups column, from_user
// constants, then injected constants.
func assemble(cfg *config.Config, opts Options, merged *isa.Table, inv map[string]*isa.Table, assayRow int) (*Sheet, error) {
	sampleValues, ok := merged.Column(SampleColumn)
	if !ok {
		return nil, fmt.Errorf("merged table has no %q column", SampleColumn)
	}
	sheet := NewSheet(sampleValues)

	mapper := &Mapper{Accession: opts.Accession, Resolver: opts.Resolver, Log: opts.Log}
	for _, rule := range cfg.Staging.FromISA {
		if err := mapper.Apply(rule, merged, inv, assayRow, sheet); err != nil {
			return nil, err
		}
	}

	sheet.NormalizeSampleNames(opts.Log)

	for _, rule := range cfg.Staging.FromMultiQC {
		if err := applyMultiQC(rule, opts, sheet); err != nil {
			return nil, err
		}
	}

	if cfg.ISAMeta.GroupsFromFactorValues {
		if err := deriveGroups(cfg, sheet); err != nil {
			return nil, err
		}
	}

	for _, field := range cfg.Staging.FromUser {
		sheet.SetAll(field.RunsheetColumn, field.Value)
	}
	for _, field := range opts.Inject {
		sheet.SetAll(field.RunsheetColumn, field.Value)
	}

	if err := Validate(cfg.Checks, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

// applyMultiQC locates the rule's report and writes one column. A required
// rule with no report is fatal; otherwise the column is emitted empty.
func applyMultiQC(rule config.MultiQCRule, opts Options, sheet *Sheet) error {
	reports, err := match.Files(opts.SearchDir, rule.SearchIn, rule.Patterns, rule.Recursive)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		if rule.Required {
			return &config.DataError{
				Rule: rule.RunsheetColumn,
				Msg: fmt.Sprintf("no MultiQC report matches %v under %s",
					rule.Patterns, filepath.Join(append([]string{opts.SearchDir}, rule.SearchIn...)...)),
			}
		}
		if opts.Log != nil {
			opts.Log.Warn("no MultiQC report found, emitting empty column",
				zap.String("rule", rule.RunsheetColumn),
				zap.Strings("patterns", rule.Patterns))
		}
		sheet.EnsureColumn(rule.RunsheetColumn)
		return nil
	}
	report, err := multiqc.Load(reports[0])
	if err != nil {
		return err
	}
	values, err := report.ExtractColumn(rule)
	if err != nil {
		return err
	}
	sheet.EnsureColumn(rule.RunsheetColumn)
	for sample, value := range values {
		sheet.Set(sample, rule.RunsheetColumn, value)
	}
	return nil
}

// deriveGroups joins every Factor Value column per sample with " & ".
func deriveGroups(cfg *config.Config, sheet *Sheet) error {
	factors := sheet.ColumnsMatching("Factor Value[")
	if len(factors) == 0 {
		if cfg.ISAMeta.RequireFactorValues {
			return &config.DataError{Rule: GroupsColumn, Msg: "no Factor Value columns extracted but the config requires them"}
		}
		sheet.EnsureColumn(GroupsColumn)
		return nil
	}
	for _, sample := range sheet.Samples {
		parts := make([]string, len(factors))
		for i, factor := range factors {
			parts[i] = sheet.Get(sample, factor)
		}
		sheet.Set(sample, GroupsColumn, strings.Join(parts, " & "))
	}
	return nil
}
