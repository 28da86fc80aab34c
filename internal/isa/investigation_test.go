package isa

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dptool/internal/config"
)

func investigationFixture() string {
	var b strings.Builder
	b.WriteString("ONTOLOGY SOURCE REFERENCE\n")
	b.WriteString("Term Source Name\tNCBITAXON\n")
	b.WriteString("INVESTIGATION\n")
	b.WriteString("Investigation Identifier\tOSD-194\n")
	b.WriteString("INVESTIGATION PUBLICATIONS\n")
	b.WriteString("Investigation PubMed ID\n")
	b.WriteString("INVESTIGATION CONTACTS\n")
	b.WriteString("Investigation Person Last Name\n")
	b.WriteString("STUDY\n")
	b.WriteString("Study Identifier\tOSD-194\n")
	b.WriteString("Study File Name\ts_OSD-194.txt\n")
	b.WriteString("STUDY DESIGN DESCRIPTORS\n")
	b.WriteString("Study Design Type\tspaceflight\n")
	b.WriteString("STUDY PUBLICATIONS\n")
	b.WriteString("Study PubMed ID\t12345\n")
	b.WriteString("STUDY FACTORS\n")
	b.WriteString("Study Factor Name\tSpaceflight\n")
	b.WriteString("STUDY ASSAYS\n")
	b.WriteString("Study Assay File Name\ta_rnaseq.txt\ta_microarray.txt\n")
	b.WriteString("Study Assay Measurement Type\t\"transcription profiling\"\t\"transcription profiling\"\n")
	b.WriteString("Study Assay Technology Type\t\"RNA Sequencing (RNA-Seq)\"\t\"DNA microarray\"\n")
	b.WriteString("STUDY PROTOCOLS\n")
	b.WriteString("Study Protocol Name\tnucleic acid sequencing\n")
	b.WriteString("Study Protocol Type\tpaired-end sequencing\n")
	b.WriteString("STUDY CONTACTS\n")
	b.WriteString("Study Person Last Name\tDoe\n")
	return b.String()
}

func writeInvestigation(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "i_investigation.txt")
	require.NoError(t, os.WriteFile(path, []byte(investigationFixture()), 0644))
	return path
}

func TestParseInvestigation(t *testing.T) {
	inv, err := ParseInvestigation(writeInvestigation(t))
	require.NoError(t, err)
	require.Len(t, inv, len(InvestigationHeaders))

	study := inv["STUDY"]
	id, ok := study.Column("Study Identifier")
	require.True(t, ok)
	assert.Equal(t, []string{"OSD-194"}, id)

	// quotes around values are stripped, one row per assay
	assays := inv["STUDY ASSAYS"]
	tech, ok := assays.Column("Study Assay Technology Type")
	require.True(t, ok)
	assert.Equal(t, []string{"RNA Sequencing (RNA-Seq)", "DNA microarray"}, tech)
}

func TestParseInvestigationMissingSection(t *testing.T) {
	body := strings.Replace(investigationFixture(), "STUDY PROTOCOLS\n", "", 1)
	path := filepath.Join(t.TempDir(), "i_investigation.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := ParseInvestigation(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUDY PROTOCOLS")
}

func TestSelectAssays(t *testing.T) {
	inv, err := ParseInvestigation(writeInvestigation(t))
	require.NoError(t, err)

	matches, err := SelectAssays(inv, []config.AssayType{
		{Measurement: "transcription profiling", Technology: "RNA Sequencing (RNA-Seq)"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, AssayMatch{FileName: "a_rnaseq.txt", Row: 0}, matches[0])

	_, err = SelectAssays(inv, []config.AssayType{
		{Measurement: "protein expression profiling", Technology: "mass spectrometry"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assay matches")
}
