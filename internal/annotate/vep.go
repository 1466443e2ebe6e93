package annotate

import "strings"

// vepItem is one element of a VEP response, shared by the REST service
// (JSON array) and the CLI tool (one JSON object per output line).
type vepItem struct {
	Input                  string          `json:"input,omitempty"`
	MostSevereConsequence  string          `json:"most_severe_consequence,omitempty"`
	TranscriptConsequences []vepTranscript `json:"transcript_consequences,omitempty"`
	ColocatedVariants      []vepColocated  `json:"colocated_variants,omitempty"`
}

type vepTranscript struct {
	GeneSymbol       string   `json:"gene_symbol,omitempty"`
	TranscriptID     string   `json:"transcript_id,omitempty"`
	ConsequenceTerms []string `json:"consequence_terms,omitempty"`
	Impact           string   `json:"impact,omitempty"`
	Canonical        int      `json:"canonical,omitempty"`
}

type vepColocated struct {
	ID      string     `json:"id,omitempty"`
	ClinSig []string   `json:"clin_sig,omitempty"`
	GnomAD  *vepGnomAD `json:"gnomad,omitempty"`
}

type vepGnomAD struct {
	AF *float64 `json:"af,omitempty"`
}

// applyVEP fills the requested effect/frequency fields (and, for the CLI
// backend, clinical significance) from VEP payload items. Fields without
// usable data stay absent; a frequency outside [0,1] counts as unusable.
func applyVEP(res *Result, items []vepItem, include SourceSet) {
	for _, item := range items {
		if include.Has(SourceEffect) && res.Consequence == "" {
			if tc := pickTranscript(item.TranscriptConsequences); tc != nil {
				res.GeneSymbol = tc.GeneSymbol
				res.Consequence = strings.Join(tc.ConsequenceTerms, ",")
			}
			if res.Consequence == "" {
				res.Consequence = item.MostSevereConsequence
			}
		}

		for _, cv := range item.ColocatedVariants {
			if include.Has(SourceFrequency) && res.PopulationFrequency == nil &&
				cv.GnomAD != nil && cv.GnomAD.AF != nil {
				if af := *cv.GnomAD.AF; af >= 0 && af <= 1 {
					res.PopulationFrequency = &af
				}
			}
			if include.Has(SourceClinical) && res.ClinicalSignificance == "" && len(cv.ClinSig) > 0 {
				res.ClinicalSignificance = strings.Join(cv.ClinSig, ",")
			}
		}
	}
}

// pickTranscript prefers the canonical transcript, falling back to the first.
func pickTranscript(tcs []vepTranscript) *vepTranscript {
	for i := range tcs {
		if tcs[i].Canonical == 1 {
			return &tcs[i]
		}
	}
	if len(tcs) > 0 {
		return &tcs[0]
	}
	return nil
}
