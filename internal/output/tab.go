// Package output provides tab-delimited formatters for variants and
// annotation results.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/vcf"
)

const absent = "-"

// VariantWriter writes variant summaries in tab-delimited format, one row
// per stored record. Used by the export endpoint.
type VariantWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewVariantWriter creates a tab-delimited variant writer.
func NewVariantWriter(w io.Writer) *VariantWriter {
	return &VariantWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Variant_id",
			"Location",
			"Ref",
			"Alt",
			"Qual",
			"Filter",
		},
	}
}

// WriteHeader writes the header line.
func (vw *VariantWriter) WriteHeader() error {
	_, err := vw.w.WriteString(strings.Join(vw.columns, "\t") + "\n")
	return err
}

// Write writes a single variant row.
func (vw *VariantWriter) Write(v *vcf.Variant) error {
	qual := absent
	if v.Qual != nil {
		qual = strconv.FormatFloat(*v.Qual, 'g', -1, 64)
	}

	row := []string{
		v.ID,
		fmt.Sprintf("%s:%d", v.Chrom, v.Pos),
		v.Ref,
		strings.Join(v.Alts, ","),
		qual,
		v.Filter,
	}

	_, err := vw.w.WriteString(strings.Join(row, "\t") + "\n")
	return err
}

// Flush flushes buffered output.
func (vw *VariantWriter) Flush() error {
	return vw.w.Flush()
}

// AnnotationWriter writes annotation results in tab-delimited format. Used
// by the offline annotate command.
type AnnotationWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewAnnotationWriter creates a tab-delimited annotation writer.
func NewAnnotationWriter(w io.Writer) *AnnotationWriter {
	return &AnnotationWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Variant_id",
			"Location",
			"Allele",
			"Gene",
			"Consequence",
			"Clinical_significance",
			"Frequency",
		},
	}
}

// WriteHeader writes the header line.
func (aw *AnnotationWriter) WriteHeader() error {
	_, err := aw.w.WriteString(strings.Join(aw.columns, "\t") + "\n")
	return err
}

// Write writes one annotated variant row. Absent fields render as "-".
func (aw *AnnotationWriter) Write(v *vcf.Variant, res *annotate.Result) error {
	gene := absent
	if res.GeneSymbol != "" {
		gene = res.GeneSymbol
	}

	consequence := absent
	if res.Consequence != "" {
		consequence = res.Consequence
	}

	clinical := absent
	if res.ClinicalSignificance != "" {
		clinical = res.ClinicalSignificance
	}

	freq := absent
	if res.PopulationFrequency != nil {
		freq = strconv.FormatFloat(*res.PopulationFrequency, 'g', -1, 64)
	}

	row := []string{
		v.ID,
		fmt.Sprintf("%s:%d", v.Chrom, v.Pos),
		strings.Join(v.Alts, ","),
		gene,
		consequence,
		clinical,
		freq,
	}

	_, err := aw.w.WriteString(strings.Join(row, "\t") + "\n")
	return err
}

// Flush flushes buffered output.
func (aw *AnnotationWriter) Flush() error {
	return aw.w.Flush()
}
