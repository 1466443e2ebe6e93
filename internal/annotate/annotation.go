// Package annotate enriches variants with effect prediction, clinical
// significance, and population frequency from external backends.
package annotate

import (
	"fmt"
	"strings"
)

// Mode selects the annotation backend.
type Mode string

const (
	// ModeCLI invokes a local batch-style annotation tool.
	ModeCLI Mode = "cli"
	// ModeREST queries a remote annotation service per variant.
	ModeREST Mode = "rest"
)

// ParseMode validates a mode string. Anything other than "cli" or "rest"
// is an UnsupportedModeError; there is no fallback to a default.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCLI, ModeREST:
		return Mode(s), nil
	default:
		return "", &UnsupportedModeError{Mode: s}
	}
}

// Source names one of the annotation data categories a caller can request.
type Source string

const (
	SourceEffect    Source = "effect"    // transcript consequence, gene symbol
	SourceClinical  Source = "clinical"  // ClinVar-style clinical significance
	SourceFrequency Source = "frequency" // gnomAD-style population frequency
)

// allSources is the stable enumeration order used for listings.
var allSources = []Source{SourceEffect, SourceClinical, SourceFrequency}

// SourceSet is the set of sources a caller wants populated. Sources not in
// the set are left absent and their lookups skipped.
type SourceSet map[Source]bool

// AllSources returns a set containing every source.
func AllSources() SourceSet {
	set := make(SourceSet, len(allSources))
	for _, s := range allSources {
		set[s] = true
	}
	return set
}

// ParseSources parses a comma-separated include list. Empty string or "all"
// means every source.
func ParseSources(s string) (SourceSet, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return AllSources(), nil
	}

	set := make(SourceSet)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		switch Source(tok) {
		case SourceEffect, SourceClinical, SourceFrequency:
			set[Source(tok)] = true
		default:
			return nil, fmt.Errorf("unknown annotation source %q", tok)
		}
	}
	return set, nil
}

// Has reports whether the set requests the given source.
func (set SourceSet) Has(s Source) bool {
	return set[s]
}

// List returns the requested sources in stable order.
func (set SourceSet) List() []Source {
	var out []Source
	for _, s := range allSources {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// Result is the normalized annotation for one variant. The shape is
// identical regardless of backend; backend-specific structure is translated
// at the client boundary and preserved only in Raw. Absent fields stay
// empty/nil rather than carrying sentinel values.
type Result struct {
	VariantID            string         `json:"variant_id"`
	Mode                 Mode           `json:"mode"`
	GeneSymbol           string         `json:"gene_symbol,omitempty"`
	Consequence          string         `json:"consequence,omitempty"`
	ClinicalSignificance string         `json:"clinical_significance,omitempty"`
	PopulationFrequency  *float64       `json:"population_frequency,omitempty"`
	Raw                  map[string]any `json:"raw,omitempty"`
}

// setRaw stores the backend's source-specific payload for passthrough.
func (r *Result) setRaw(source string, payload any) {
	if r.Raw == nil {
		r.Raw = make(map[string]any)
	}
	r.Raw[source] = payload
}
