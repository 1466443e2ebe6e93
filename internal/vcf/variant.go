// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"strings"
)

// Variant represents a single genomic variant from a VCF data line.
type Variant struct {
	ID     string         `json:"id"`             // synthetic identifier, stable across re-parses
	Name   string         `json:"name,omitempty"` // ID column (e.g. rs ID), empty when "."
	Chrom  string         `json:"chrom"`          // Chromosome name (e.g., "12", "chr12")
	Pos    int64          `json:"pos"`            // 1-based genomic position
	Ref    string         `json:"ref"`            // Reference allele
	Alts   []string       `json:"alt"`            // Alternate alleles in VCF order
	Qual   *float64       `json:"qual"`           // Quality score, nil when "."
	Filter string         `json:"filter"`         // Filter status (PASS or filter names)
	Info   map[string]any `json:"info"`           // INFO key-value pairs; flags map to true
}

// VariantID derives the synthetic identifier for a variant. Re-parsing the
// same data line always yields the same identifier, which keys the store and
// makes re-uploads idempotent.
func VariantID(chrom string, pos int64, ref string, alts []string) string {
	return fmt.Sprintf("%s_%d_%s_%s", chrom, pos, ref, strings.Join(alts, ","))
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	if len(v.Ref) != 1 {
		return false
	}
	for _, alt := range v.Alts {
		if len(alt) != 1 {
			return false
		}
	}
	return true
}

// IsIndel returns true if any alternate allele differs in length from the reference.
func (v *Variant) IsIndel() bool {
	for _, alt := range v.Alts {
		if len(alt) != len(v.Ref) {
			return true
		}
	}
	return false
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

// TypeKey classifies a variant by allele lengths (e.g. "1_1" for a SNV),
// used for the stats breakdown.
func (v *Variant) TypeKey() string {
	alt := ""
	if len(v.Alts) > 0 {
		alt = v.Alts[0]
	}
	return fmt.Sprintf("%d_%d", len(v.Ref), len(alt))
}
