// Package multiqc locates MultiQC report data and extracts per-sample values
// by module and key path. It consumes the JSON the external multiqc tool
// wrote; it does not reimplement any parsing of the underlying QC logs.
package multiqc

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/liserjrqlxue/goUtil/textUtil"
	simple_util "github.com/liserjrqlxue/simple-util"

	"dptool/internal/config"
)

// Missing is the value recorded when a key path segment is absent for a
// sample. Absence is a per-sample soft miss, never an error.
const Missing = "missing"

// DataFileName is the machine-readable report MultiQC writes alongside the
// HTML report.
const DataFileName = "multiqc_data.json"

// Report is a parsed multiqc_data.json.
type Report struct {
	Path string
	data map[string]any
}

// Load reads a report given a multiqc_data.json path, a directory containing
// one (directly or in a *_data subdirectory), or a report zip.
func Load(path string) (*Report, error) {
	resolved, err := locateData(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", resolved, err)
	}
	return &Report{Path: resolved, data: data}, nil
}

func locateData(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	switch {
	case !info.IsDir() && strings.HasSuffix(path, ".json"):
		return path, nil
	case !info.IsDir() && strings.HasSuffix(path, ".zip"):
		return extractDataFromZip(path)
	case info.IsDir():
		direct := filepath.Join(path, DataFileName)
		if simple_util.FileExists(direct) {
			return direct, nil
		}
		nested, _ := filepath.Glob(filepath.Join(path, "*_data", DataFileName))
		if len(nested) == 1 {
			return nested[0], nil
		}
		return "", fmt.Errorf("no %s under %s", DataFileName, path)
	}
	return "", fmt.Errorf("unsupported MultiQC report location: %s", path)
}

func extractDataFromZip(zipPath string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", err
	}
	defer simple_util.DeferClose(r)

	for _, zf := range r.File {
		if filepath.Base(zf.Name) != DataFileName {
			continue
		}
		src, err := zf.Open()
		if err != nil {
			return "", err
		}
		defer simple_util.DeferClose(src)

		tempDir, err := os.MkdirTemp("", "multiqc-data-")
		if err != nil {
			return "", err
		}
		dest := filepath.Join(tempDir, DataFileName)
		out, err := os.Create(dest)
		if err != nil {
			return "", err
		}
		defer simple_util.DeferClose(out)
		if _, err := io.Copy(out, src); err != nil {
			return "", err
		}
		return dest, nil
	}
	return "", fmt.Errorf("no %s inside %s", DataFileName, zipPath)
}

// Modules lists the module names the report carries data for.
func (r *Report) Modules() []string {
	var names []string
	if sources, ok := r.data["report_data_sources"].(map[string]any); ok {
		for name := range sources {
			names = append(names, name)
		}
	}
	if raw, ok := r.data["report_saved_raw_data"].(map[string]any); ok {
		for key := range raw {
			names = append(names, strings.TrimPrefix(key, "multiqc_"))
		}
	}
	return names
}

// HasModule reports whether the underlying report recognizes a module name,
// case-insensitively.
func (r *Report) HasModule(name string) bool {
	for _, m := range r.Modules() {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return strings.EqualFold(name, "general_stats")
}

// moduleSamples returns per-sample records for a module. "general_stats"
// addresses the merged general statistics table.
func (r *Report) moduleSamples(module string) (map[string]any, error) {
	if strings.EqualFold(module, "general_stats") {
		stats, ok := r.data["report_general_stats_data"].([]any)
		if !ok || len(stats) == 0 {
			return nil, fmt.Errorf("report has no general stats data")
		}
		// the last element aggregates the most modules
		last, ok := stats[len(stats)-1].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed general stats data")
		}
		return last, nil
	}
	raw, ok := r.data["report_saved_raw_data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("report has no saved raw data")
	}
	for key, v := range raw {
		if strings.EqualFold(key, "multiqc_"+module) || strings.EqualFold(key, module) {
			samples, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("malformed data for module %q", module)
			}
			return samples, nil
		}
	}
	return nil, fmt.Errorf("module %q has no raw data table", module)
}

// ExtractColumn applies one MultiQC rule: per sample, navigate the key path
// inside the module's record. Unrecognized modules are a configuration
// error; absent path segments yield Missing for that sample only.
func (r *Report) ExtractColumn(rule config.MultiQCRule) (map[string]string, error) {
	if !r.HasModule(rule.Module) {
		return nil, &config.ConfigError{
			Rule: rule.RunsheetColumn,
			Msg: fmt.Sprintf("module %q not recognized by MultiQC report %s (has: %s)",
				rule.Module, r.Path, strings.Join(r.Modules(), ", ")),
		}
	}
	samples, err := r.moduleSamples(rule.Module)
	if err != nil {
		return nil, &config.ConfigError{Rule: rule.RunsheetColumn, Msg: err.Error()}
	}

	values := make(map[string]string)
	for rawName, record := range samples {
		sample, read := CleanSampleName(rawName)
		// R1 carries the sample-level value; R2 duplicates it
		if read == "R2" {
			if _, ok := values[sample]; ok {
				continue
			}
		}
		v, ok := Navigate(record, rule.KeyPath)
		if !ok {
			values[sample] = Missing
			continue
		}
		values[sample] = formatValue(v)
	}
	return values, nil
}

// Navigate walks a key path through nested JSON. String segments index
// objects, integer segments index arrays; negative indices count from the
// end. The second return is false as soon as any segment is absent.
func Navigate(v any, path config.KeyPath) (any, bool) {
	for _, seg := range path {
		switch key := seg.(type) {
		case string:
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			v, ok = obj[key]
			if !ok {
				return nil, false
			}
		case int:
			arr, ok := v.([]any)
			if !ok {
				return nil, false
			}
			i := key
			if i < 0 {
				i += len(arr)
			}
			if i < 0 || i >= len(arr) {
				return nil, false
			}
			v = arr[i]
		default:
			return nil, false
		}
	}
	return v, true
}

// CleanSampleName strips MultiQC's "_raw" suffix and a trailing read
// designator, returning the bare sample name and "R1"/"R2"/"".
func CleanSampleName(name string) (string, string) {
	name = strings.TrimSuffix(name, "_raw")
	for _, read := range []string{"R1", "R2"} {
		for _, sep := range []string{"_", "."} {
			if strings.HasSuffix(name, sep+read) {
				return strings.TrimSuffix(name, sep+read), read
			}
		}
	}
	return name, ""
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case nil:
		return Missing
	default:
		return fmt.Sprintf("%v", val)
	}
}

// SamplesInGeneralStats reads sample names from a multiqc_general_stats.txt
// table, the tab-delimited export next to the JSON report.
func SamplesInGeneralStats(path string) []string {
	records, _ := textUtil.File2MapArray(path, "\t", nil)
	var samples []string
	seen := make(map[string]bool)
	for _, record := range records {
		sample, _ := CleanSampleName(record["Sample"])
		if sample != "" && !seen[sample] {
			seen[sample] = true
			samples = append(samples, sample)
		}
	}
	return samples
}

// Run shells out to the external multiqc binary, writing its report into
// outDir. Used when only the raw QC logs exist yet.
func Run(outDir string, inputs []string) error {
	args := append([]string{"--outdir", outDir, "--force"}, inputs...)
	return simple_util.RunCmd("multiqc", args...)
}
