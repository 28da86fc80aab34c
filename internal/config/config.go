// Package config loads and validates the declarative staging configuration:
// field rules for runsheet generation, MultiQC extraction rules, assay
// selection criteria, output structure tables and runsheet checks.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the full declarative configuration, versioned by Name/Version.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	ISAMeta   ISAMeta                         `yaml:"isa_meta"`
	Staging   Staging                         `yaml:"staging"`
	Structure map[string]map[string]Component `yaml:"structure"`
	Checks    []ColumnCheck                   `yaml:"runsheet_checks"`
}

// ISAMeta selects which assay tables of an ISA archive this config applies to.
type ISAMeta struct {
	ValidAssays []AssayType `yaml:"valid_assays"`
	// GroupsFromFactorValues adds a "groups" column joining all Factor
	// Value columns with " & ".
	GroupsFromFactorValues bool `yaml:"groups_from_factor_values"`
	// RequireFactorValues fails the run when no Factor Value column was
	// extracted.
	RequireFactorValues bool `yaml:"require_factor_values"`
}

// AssayType is a valid (measurement, technology) pair from the STUDY ASSAYS
// investigation subtable.
type AssayType struct {
	Measurement string `yaml:"measurement"`
	Technology  string `yaml:"technology"`
}

// Staging declares the runsheet columns, in output order per section.
type Staging struct {
	FromISA     []FieldRule   `yaml:"from_isa"`
	FromUser    []UserField   `yaml:"from_user"`
	FromMultiQC []MultiQCRule `yaml:"from_multiqc"`
}

// FieldRule maps one or more ISA source columns to runsheet output columns,
// with an ordered set of optional transformation stages.
type FieldRule struct {
	// Candidate source column names, tried in order, exact match.
	ISAFieldName StringList `yaml:"isa_field_name"`
	// One or more of Investigation, Study, Assay, Sample.
	TableSource StringList `yaml:"table_source"`
	// Subtable of the investigation file, e.g. "STUDY ASSAYS". Only
	// meaningful for Investigation-sourced rules.
	InvestigationSubtable string `yaml:"investigation_subtable,omitempty"`

	// Target column name, or a list of {name, index, optional} descriptors
	// when the source value splits into several columns.
	RunsheetColumn Targets `yaml:"runsheet_column"`

	Remapping  map[string]string `yaml:"remapping,omitempty"`
	MatchRegex string            `yaml:"match_regex,omitempty"`

	MultipleValues          bool   `yaml:"multiple_values_per_entry,omitempty"`
	MultipleValuesDelimiter string `yaml:"multiple_values_delimiter,omitempty"`

	// When set, ISAFieldName[0] is a regex matched against all source
	// column headers; every match is emitted as a pass-through column.
	MatchesMultipleColumns bool `yaml:"matches_multiple_columns,omitempty"`
	// Prefix of an adjacent suffix column (e.g. "Unit") concatenated onto
	// each matched column's value. The suffix column is never emitted.
	AppendColumnFollowing string `yaml:"append_column_following,omitempty"`

	// Resolve the extracted filename against the accession's OSDR file
	// listing; each filename must map to exactly one URL.
	GLDSURLMapping bool `yaml:"glds_url_mapping,omitempty"`

	// Membership test against an investigation subtable column, emitting
	// True/False. Comparison is whitespace- and case-insensitive.
	TrueIfIncludesAtLeastOne []string `yaml:"true_if_includes_at_least_one,omitempty"`

	// Optional rules yield empty values instead of failing when no
	// candidate source column exists.
	Optional bool `yaml:"optional,omitempty"`
	// Constant used when no candidate source column exists. Logged as a
	// warning, never an error.
	FallbackValue string `yaml:"fallback_value,omitempty"`
}

// UserField is a constant column appended after all rule-derived columns.
type UserField struct {
	RunsheetColumn string `yaml:"runsheet_column"`
	Value          string `yaml:"value"`
}

// MultiQCRule derives a runsheet column from a MultiQC report.
type MultiQCRule struct {
	RunsheetColumn string `yaml:"runsheet_column"`
	// Module name as recognized by MultiQC, e.g. "fastqc". Unrecognized
	// names are a configuration error.
	Module string `yaml:"module"`
	// Subdirectory segments under the search root to descend before
	// matching.
	SearchIn  []string `yaml:"search_in,omitempty"`
	Patterns  []string `yaml:"patterns"`
	Recursive bool     `yaml:"recursive,omitempty"`
	// Path into each sample's module record; segments are string keys or
	// integer list indices.
	KeyPath  KeyPath `yaml:"key_path"`
	Required bool    `yaml:"required,omitempty"`
}

// Component maps output keys to relative paths under the destination root.
type Component struct {
	Outputs map[string]string `yaml:"outputs"`
}

// ColumnCheck is a declarative constraint on an assembled runsheet column.
type ColumnCheck struct {
	Column string `yaml:"column"`
	// Required defaults to true.
	Required *bool `yaml:"required,omitempty"`
	// Bool columns must hold True or False.
	Bool bool `yaml:"bool,omitempty"`
	// SingleValue columns must hold one identical value across all rows.
	SingleValue bool `yaml:"single_value,omitempty"`
	// OnlyIf names a bool column; this column may (and must, when
	// required) be populated only when that column is True.
	OnlyIf string `yaml:"only_if,omitempty"`
}

// IsRequired applies the default.
func (c ColumnCheck) IsRequired() bool {
	return c.Required == nil || *c.Required
}

// StringList accepts a YAML scalar or sequence of scalars.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = v
		return nil
	}
	return fmt.Errorf("expected string or list of strings, got yaml kind %v", node.Kind)
}

// ColumnTarget is one output column descriptor of an indexed target list.
type ColumnTarget struct {
	Name     string `yaml:"name"`
	Index    int    `yaml:"index"`
	Optional bool   `yaml:"optional"`
}

// Targets is either a single column name or an ordered list of indexed
// column descriptors.
type Targets struct {
	// Indexed reports whether the target was declared as a descriptor
	// list. A single name uses the first value directly.
	Indexed bool
	Columns []ColumnTarget
}

func (t *Targets) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		t.Indexed = false
		t.Columns = []ColumnTarget{{Name: name}}
		return nil
	case yaml.SequenceNode:
		var cols []ColumnTarget
		if err := node.Decode(&cols); err != nil {
			return err
		}
		t.Indexed = true
		t.Columns = cols
		return nil
	}
	return fmt.Errorf("expected column name or list of column descriptors, got yaml kind %v", node.Kind)
}

// KeyPath navigates nested JSON; each segment is a string key or an integer
// index. Negative indices count from the end.
type KeyPath []any

func (k *KeyPath) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("key_path must be a list")
	}
	var raw []yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	path := make(KeyPath, 0, len(raw))
	for _, seg := range raw {
		var i int
		if err := seg.Decode(&i); err == nil && seg.Tag == "!!int" {
			path = append(path, i)
			continue
		}
		var s string
		if err := seg.Decode(&s); err != nil {
			return err
		}
		path = append(path, s)
	}
	*k = path
	return nil
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validTableSources = map[string]bool{
	"Investigation": true,
	"Study":         true,
	"Assay":         true,
	"Sample":        true,
}

// Validate rejects malformed or ambiguous rule definitions up front, before
// any filesystem or table work starts.
func (c *Config) Validate() error {
	if c.Name == "" || c.Version == "" {
		return &ConfigError{Msg: "config requires top-level name and version"}
	}
	for _, rule := range c.Staging.FromISA {
		id := rule.ID()
		if len(rule.ISAFieldName) == 0 {
			return &ConfigError{Rule: id, Msg: "rule has no isa_field_name"}
		}
		if len(rule.RunsheetColumn.Columns) == 0 && !rule.MatchesMultipleColumns {
			return &ConfigError{Rule: id, Msg: "rule has no runsheet_column"}
		}
		for _, src := range rule.TableSource {
			if !validTableSources[src] {
				return &ConfigError{Rule: id, Msg: fmt.Sprintf("unknown table_source %q", src)}
			}
		}
		if rule.MatchRegex != "" {
			if _, err := regexp.Compile(rule.MatchRegex); err != nil {
				return &ConfigError{Rule: id, Msg: fmt.Sprintf("bad match_regex: %v", err)}
			}
		}
		if rule.MultipleValues && rule.MultipleValuesDelimiter == "" && rule.MatchRegex == "" {
			return &ConfigError{Rule: id, Msg: "multiple_values_per_entry requires a delimiter or match_regex"}
		}
		if rule.MatchesMultipleColumns && rule.MatchRegex == "" {
			return &ConfigError{Rule: id, Msg: "matches_multiple_columns requires match_regex"}
		}
	}
	for _, rule := range c.Staging.FromMultiQC {
		if rule.Module == "" {
			return &ConfigError{Rule: rule.RunsheetColumn, Msg: "multiqc rule has no module"}
		}
		if len(rule.Patterns) == 0 {
			return &ConfigError{Rule: rule.RunsheetColumn, Msg: "multiqc rule has no file patterns"}
		}
	}
	for assay, components := range c.Structure {
		for component, entry := range components {
			for key, rel := range entry.Outputs {
				if rel == "" {
					return &ConfigError{
						Rule: fmt.Sprintf("%s/%s/%s", assay, component, key),
						Msg:  "structure entry has empty relative path",
					}
				}
			}
		}
	}
	return nil
}

// ComponentOutputs returns the output-key table for (assay, component).
// Unknown pairs are a configuration error.
func (c *Config) ComponentOutputs(assay, component string) (map[string]string, error) {
	components, ok := c.Structure[assay]
	if !ok {
		return nil, &ConfigError{Rule: assay, Msg: "assay not present in structure config"}
	}
	entry, ok := components[component]
	if !ok {
		return nil, &ConfigError{
			Rule: fmt.Sprintf("%s/%s", assay, component),
			Msg:  "component not present in structure config",
		}
	}
	return entry.Outputs, nil
}

// ID names a rule in error messages: the first declared target column, or
// the first source field when the rule only expands source columns.
func (r *FieldRule) ID() string {
	if len(r.RunsheetColumn.Columns) > 0 {
		return r.RunsheetColumn.Columns[0].Name
	}
	if len(r.ISAFieldName) > 0 {
		return r.ISAFieldName[0]
	}
	return "<unnamed rule>"
}
