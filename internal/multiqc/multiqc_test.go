package multiqc

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dptool/internal/config"
)

const reportJSON = `{
  "report_data_sources": {
    "FastQC": {"all_sections": {"Sample1_R1": "f1", "Sample1_R2": "f2"}}
  },
  "report_saved_raw_data": {
    "multiqc_fastqc": {
      "Sample1_R1_raw": {"total_sequences": 1000000, "avg_sequence_length": 100.5},
      "Sample1_R2_raw": {"total_sequences": 1000000, "avg_sequence_length": 99.5},
      "Sample2_R1_raw": {"total_sequences": 2000000}
    }
  },
  "report_general_stats_data": [
    {"Sample1_R1": {"percent_gc": 48.0}},
    {
      "Sample1_R1": {"total_sequences": 1000000, "quartiles": [10, 20, 30]},
      "Sample2_R1": {"total_sequences": 2000000, "quartiles": [11, 21, 31]}
    }
  ]
}`

func writeReport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DataFileName)
	require.NoError(t, os.WriteFile(path, []byte(reportJSON), 0644))
	return path
}

func TestLoadLocations(t *testing.T) {
	jsonPath := writeReport(t)

	// direct json path
	_, err := Load(jsonPath)
	require.NoError(t, err)

	// directory containing the json
	_, err = Load(filepath.Dir(jsonPath))
	require.NoError(t, err)

	// directory with a *_data subdirectory
	root := t.TempDir()
	dataDir := filepath.Join(root, "raw_multiqc_data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, DataFileName), []byte(reportJSON), 0644))
	_, err = Load(root)
	require.NoError(t, err)

	// report zip
	zipPath := filepath.Join(t.TempDir(), "raw_multiqc_report.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.Create("raw_multiqc_data/" + DataFileName)
	require.NoError(t, err)
	_, err = entry.Write([]byte(reportJSON))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	_, err = Load(zipPath)
	require.NoError(t, err)
}

func TestModules(t *testing.T) {
	report, err := Load(writeReport(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"FastQC", "fastqc"}, report.Modules())
	assert.True(t, report.HasModule("fastqc"))
	assert.True(t, report.HasModule("FASTQC"))
	assert.True(t, report.HasModule("general_stats"))
	assert.False(t, report.HasModule("star"))
}

func TestExtractColumnFromRawData(t *testing.T) {
	report, err := Load(writeReport(t))
	require.NoError(t, err)

	values, err := report.ExtractColumn(config.MultiQCRule{
		RunsheetColumn: "mean read length",
		Module:         "fastqc",
		KeyPath:        config.KeyPath{"avg_sequence_length"},
	})
	require.NoError(t, err)

	// R1 answers for the sample, the R2 record does not overwrite it
	assert.Equal(t, "100.5", values["Sample1"])
	// a missing key is a per-sample soft miss
	assert.Equal(t, Missing, values["Sample2"])
}

func TestExtractColumnGeneralStats(t *testing.T) {
	report, err := Load(writeReport(t))
	require.NoError(t, err)

	values, err := report.ExtractColumn(config.MultiQCRule{
		RunsheetColumn: "read depth",
		Module:         "general_stats",
		KeyPath:        config.KeyPath{"total_sequences"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1000000", values["Sample1"])
	assert.Equal(t, "2000000", values["Sample2"])

	// negative indices count from the end of an array segment
	quartiles, err := report.ExtractColumn(config.MultiQCRule{
		RunsheetColumn: "upper quartile",
		Module:         "general_stats",
		KeyPath:        config.KeyPath{"quartiles", -1},
	})
	require.NoError(t, err)
	assert.Equal(t, "30", quartiles["Sample1"])
}

func TestExtractColumnUnknownModule(t *testing.T) {
	report, err := Load(writeReport(t))
	require.NoError(t, err)

	_, err = report.ExtractColumn(config.MultiQCRule{
		RunsheetColumn: "alignment rate",
		Module:         "star",
		KeyPath:        config.KeyPath{"uniquely_mapped_percent"},
	})
	require.Error(t, err)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCleanSampleName(t *testing.T) {
	cases := []struct {
		in, sample, read string
	}{
		{"Sample1_R1_raw", "Sample1", "R1"},
		{"Sample1_R2", "Sample1", "R2"},
		{"Sample1.R1", "Sample1", "R1"},
		{"Sample1", "Sample1", ""},
		{"Sample_R1_extra", "Sample_R1_extra", ""},
	}
	for _, tc := range cases {
		sample, read := CleanSampleName(tc.in)
		assert.Equal(t, tc.sample, sample, tc.in)
		assert.Equal(t, tc.read, read, tc.in)
	}
}

func TestNavigate(t *testing.T) {
	data := map[string]any{
		"a": []any{map[string]any{"b": 1.0}, map[string]any{"b": 2.0}},
	}

	v, ok := Navigate(data, config.KeyPath{"a", 0, "b"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = Navigate(data, config.KeyPath{"a", -1, "b"})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = Navigate(data, config.KeyPath{"a", 5, "b"})
	assert.False(t, ok)
	_, ok = Navigate(data, config.KeyPath{"missing"})
	assert.False(t, ok)
}

func TestSamplesInGeneralStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multiqc_general_stats.txt")
	body := "Sample\ttotal_sequences\n" +
		"Sample1_R1\t1000000\n" +
		"Sample1_R2\t1000000\n" +
		"Sample2_R1\t2000000\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	assert.Equal(t, []string{"Sample1", "Sample2"}, SamplesInGeneralStats(path))
}
