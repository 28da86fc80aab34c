package runsheet

import (
	"fmt"

	"dptool/internal/config"
)

// Validate enforces the config's column checks on an assembled sheet.
func Validate(checks []config.ColumnCheck, sheet *Sheet) error {
	for _, check := range checks {
		if err := applyCheck(check, sheet); err != nil {
			return err
		}
	}
	return nil
}

func applyCheck(check config.ColumnCheck, sheet *Sheet) error {
	present := false
	for _, column := range sheet.Columns {
		if column == check.Column {
			present = true
			break
		}
	}
	if !present {
		if check.IsRequired() && check.OnlyIf == "" {
			return &config.DataError{Rule: check.Column, Msg: "required runsheet column missing"}
		}
		return nil
	}

	var first string
	firstSeen := false
	for _, sample := range sheet.Samples {
		value := sheet.Get(sample, check.Column)

		if check.OnlyIf != "" {
			gate := sheet.Get(sample, check.OnlyIf)
			if gate != "True" {
				if value != "" {
					return &config.DataError{
						Rule:   check.Column,
						Sample: sample,
						Msg:    fmt.Sprintf("populated although %q is not True", check.OnlyIf),
					}
				}
				continue
			}
		}

		if check.IsRequired() && value == "" {
			return &config.DataError{Rule: check.Column, Sample: sample, Msg: "required value is empty"}
		}
		if check.Bool && value != "" && value != "True" && value != "False" {
			return &config.DataError{
				Rule:   check.Column,
				Sample: sample,
				Msg:    fmt.Sprintf("expected True or False, got %q", value),
			}
		}
		if check.SingleValue {
			if !firstSeen {
				first = value
				firstSeen = true
			} else if value != first {
				return &config.DataError{
					Rule:   check.Column,
					Sample: sample,
					Msg:    fmt.Sprintf("expected a single value across all samples, got %q and %q", first, value),
				}
			}
		}
	}
	return nil
}
