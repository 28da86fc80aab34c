package config

import "fmt"

// ConfigError reports a bad or ambiguous declaration: an unknown output key,
// a malformed rule, an unrecognized module name. Always fatal.
type ConfigError struct {
	Rule string
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("configuration error: %s", e.Msg)
	}
	return fmt.Sprintf("configuration error in rule %q: %s", e.Rule, e.Msg)
}

// DataError reports input data that a valid rule could not be applied to: a
// missing required ISA field, a non-unique URL mapping, an out-of-range
// required index. Fatal for the run, with sample context where applicable.
type DataError struct {
	Rule   string
	Sample string
	Msg    string
}

func (e *DataError) Error() string {
	if e.Sample == "" {
		return fmt.Sprintf("data error in rule %q: %s", e.Rule, e.Msg)
	}
	return fmt.Sprintf("data error in rule %q for sample %q: %s", e.Rule, e.Sample, e.Msg)
}
