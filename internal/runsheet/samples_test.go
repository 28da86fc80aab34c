package runsheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSamplesFromRunsheet(t *testing.T) {
	sheet := NewSheet([]string{"S1", "S2"})
	sheet.Set("S1", SampleColumn, "S1")
	sheet.Set("S2", SampleColumn, "S2")
	sheet.SetAll("organism", "Mus musculus")

	path := filepath.Join(t.TempDir(), "runsheet.csv")
	require.NoError(t, WriteCSV(sheet, path))

	samples, err := LoadSamples(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, samples)
}

func TestLoadSamplesFromRunsheetWithoutColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runsheet.csv")
	require.NoError(t, os.WriteFile(path, []byte("organism\nMus musculus\n"), 0644))

	_, err := LoadSamples(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SampleColumn)
}

func TestLoadSamplesFromList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	require.NoError(t, os.WriteFile(path, []byte("S1\n\n  S2  \nS3\n"), 0644))

	samples, err := LoadSamples(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, samples)
}
