package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const minimalConfig = `
name: bulkRNASeq
version: "1"
isa_meta:
  valid_assays:
    - measurement: transcription profiling
      technology: RNA Sequencing (RNA-Seq)
staging:
  from_isa:
    - isa_field_name: Sample Name
      table_source: [Study, Assay]
      runsheet_column: Sample Name
    - isa_field_name:
        - Characteristics[Organism]
        - Characteristics[organism]
      table_source: Sample
      runsheet_column: organism
    - isa_field_name: Raw Data File
      table_source: Assay
      multiple_values_per_entry: true
      multiple_values_delimiter: ",\\s*"
      runsheet_column:
        - name: read1_url
          index: 0
        - name: read2_url
          index: 1
          optional: true
  from_multiqc:
    - runsheet_column: raw read depth
      module: general_stats
      patterns: ["*multiqc_data.json"]
      key_path: [total_sequences, 0, -1]
structure:
  bulkRNASeq:
    raw_reads:
      outputs:
        fastq: "00-RawData/Fastq"
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "bulkRNASeq", cfg.Name)
	assert.Equal(t, "1", cfg.Version)
	require.Len(t, cfg.ISAMeta.ValidAssays, 1)
	assert.Equal(t, "transcription profiling", cfg.ISAMeta.ValidAssays[0].Measurement)

	require.Len(t, cfg.Staging.FromISA, 3)

	scalar := cfg.Staging.FromISA[0]
	assert.Equal(t, StringList{"Sample Name"}, scalar.ISAFieldName)
	assert.Equal(t, StringList{"Study", "Assay"}, scalar.TableSource)
	assert.False(t, scalar.RunsheetColumn.Indexed)
	assert.Equal(t, "Sample Name", scalar.RunsheetColumn.Columns[0].Name)

	candidates := cfg.Staging.FromISA[1]
	assert.Equal(t, StringList{"Characteristics[Organism]", "Characteristics[organism]"}, candidates.ISAFieldName)

	indexed := cfg.Staging.FromISA[2]
	assert.True(t, indexed.RunsheetColumn.Indexed)
	require.Len(t, indexed.RunsheetColumn.Columns, 2)
	assert.Equal(t, ColumnTarget{Name: "read1_url", Index: 0}, indexed.RunsheetColumn.Columns[0])
	assert.Equal(t, ColumnTarget{Name: "read2_url", Index: 1, Optional: true}, indexed.RunsheetColumn.Columns[1])

	require.Len(t, cfg.Staging.FromMultiQC, 1)
	assert.Equal(t, KeyPath{"total_sequences", 0, -1}, cfg.Staging.FromMultiQC[0].KeyPath)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing version",
			body: "name: x\nstaging: {}\n",
			want: "name and version",
		},
		{
			name: "no source field",
			body: "name: x\nversion: \"1\"\nstaging:\n  from_isa:\n    - runsheet_column: c\n",
			want: "no isa_field_name",
		},
		{
			name: "unknown table source",
			body: "name: x\nversion: \"1\"\nstaging:\n  from_isa:\n    - isa_field_name: f\n      table_source: Samples\n      runsheet_column: c\n",
			want: "unknown table_source",
		},
		{
			name: "bad regex",
			body: "name: x\nversion: \"1\"\nstaging:\n  from_isa:\n    - isa_field_name: f\n      runsheet_column: c\n      match_regex: \"([\"\n",
			want: "bad match_regex",
		},
		{
			name: "multi value without split",
			body: "name: x\nversion: \"1\"\nstaging:\n  from_isa:\n    - isa_field_name: f\n      runsheet_column: c\n      multiple_values_per_entry: true\n",
			want: "requires a delimiter",
		},
		{
			name: "multiqc without patterns",
			body: "name: x\nversion: \"1\"\nstaging:\n  from_multiqc:\n    - runsheet_column: c\n      module: fastqc\n",
			want: "no file patterns",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestComponentOutputs(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	outputs, err := cfg.ComponentOutputs("bulkRNASeq", "raw_reads")
	require.NoError(t, err)
	assert.Equal(t, "00-RawData/Fastq", outputs["fastq"])

	_, err = cfg.ComponentOutputs("bulkRNASeq", "nonsense")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = cfg.ComponentOutputs("scRNASeq", "raw_reads")
	require.Error(t, err)
}

func TestColumnCheckRequiredDefault(t *testing.T) {
	assert.True(t, ColumnCheck{Column: "c"}.IsRequired())
	no := false
	assert.False(t, ColumnCheck{Column: "c", Required: &no}.IsRequired())
}
