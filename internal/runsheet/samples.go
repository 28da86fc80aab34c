package runsheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	simple_util "github.com/liserjrqlxue/simple-util"
)

// LoadSamples reads sample names back out of a written runsheet (.csv) or a
// plain one-name-per-line list file.
func LoadSamples(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return samplesFromRunsheet(path)
	}
	return samplesFromList(path)
}

func samplesFromRunsheet(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer simple_util.DeferClose(f)

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty runsheet: %s", filepath.Base(path))
	}
	col := -1
	for i, header := range records[0] {
		if header == SampleColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%s has no %q column", filepath.Base(path), SampleColumn)
	}
	var samples []string
	for _, row := range records[1:] {
		if col < len(row) && row[col] != "" {
			samples = append(samples, row[col])
		}
	}
	return samples, nil
}

func samplesFromList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer simple_util.DeferClose(f)

	var samples []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			samples = append(samples, name)
		}
	}
	return samples, scanner.Err()
}
