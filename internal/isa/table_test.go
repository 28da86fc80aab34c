package isa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestReadTableKeepsDuplicateHeaders(t *testing.T) {
	path := writeTable(t, "a_assay.txt",
		"Sample Name\tParameter Value[dose]\tUnit\tParameter Value[time]\tUnit\n"+
			"S1\t10\tmg\t2\th\n"+
			"S2\t20\tmg\t4\th\n")

	table, err := ReadTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sample Name", "Parameter Value[dose]", "Unit", "Parameter Value[time]", "Unit"}, table.Columns)
	// first match wins for named lookups, positional lookups see both
	assert.Equal(t, 2, table.ColumnIndex("Unit"))
	assert.Equal(t, []string{"mg", "mg"}, table.ColumnAt(2))
	assert.Equal(t, []string{"h", "h"}, table.ColumnAt(4))
}

func TestReadTablePadsRaggedRows(t *testing.T) {
	path := writeTable(t, "s_study.txt",
		"Sample Name\tCharacteristics[Organism]\tProtocol REF\n"+
			"S1\tMus musculus\n")

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, "", table.Cell(0, 2))
}

func TestMergeKeepsLeftOrder(t *testing.T) {
	study, err := ReadTable(writeTable(t, "s_study.txt",
		"Sample Name\tCharacteristics[Organism]\n"+
			"S2\tMus musculus\n"+
			"S1\tMus musculus\n"))
	require.NoError(t, err)
	assay, err := ReadTable(writeTable(t, "a_assay.txt",
		"Sample Name\tRaw Data File\n"+
			"S1\ts1.fastq.gz\n"+
			"S2\ts2.fastq.gz\n"))
	require.NoError(t, err)

	merged, err := Merge(study, assay, "Sample Name")
	require.NoError(t, err)

	want := &Table{
		Path:    study.Path,
		Columns: []string{"Sample Name", "Characteristics[Organism]", "Raw Data File"},
		Rows: [][]string{
			{"S2", "Mus musculus", "s2.fastq.gz"},
			{"S1", "Mus musculus", "s1.fastq.gz"},
		},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merged table mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeErrors(t *testing.T) {
	study, err := ReadTable(writeTable(t, "s_study.txt",
		"Sample Name\tX\nS1\t1\nS3\t3\n"))
	require.NoError(t, err)
	assay, err := ReadTable(writeTable(t, "a_assay.txt",
		"Sample Name\tY\nS1\ta\n"))
	require.NoError(t, err)

	_, err = Merge(study, assay, "Sample Name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"S3"`)

	dup, err := ReadTable(writeTable(t, "a_dup.txt",
		"Sample Name\tY\nS1\ta\nS1\tb\nS3\tc\n"))
	require.NoError(t, err)
	_, err = Merge(study, dup, "Sample Name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
