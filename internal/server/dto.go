package server

import (
	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/service"
	"github.com/varlab/vas/internal/vcf"
)

// ErrorResponse is the uniform error body. Every failure maps to a
// distinct status and message so callers can tell "variant doesn't exist"
// from "backend is down" from "bad request mode".
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// InfoResponse describes the service and its endpoints.
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// UploadResponse reports an accepted VCF upload. Warnings list per-line
// parse issues that did not abort the upload.
type UploadResponse struct {
	UploadID string            `json:"upload_id"`
	Stored   int               `json:"stored"`
	Lines    int               `json:"lines_processed"`
	Warnings []service.Warning `json:"warnings"`
	Message  string            `json:"message"`
}

// VariantSummary is the listing row for one stored variant.
type VariantSummary struct {
	ID     string   `json:"id"`
	Chrom  string   `json:"chrom"`
	Pos    int64    `json:"pos"`
	Ref    string   `json:"ref"`
	Alt    []string `json:"alt"`
	Qual   *float64 `json:"qual"`
	Filter string   `json:"filter"`
}

func summarize(v *vcf.Variant) VariantSummary {
	return VariantSummary{
		ID:     v.ID,
		Chrom:  v.Chrom,
		Pos:    v.Pos,
		Ref:    v.Ref,
		Alt:    v.Alts,
		Qual:   v.Qual,
		Filter: v.Filter,
	}
}

// ListResponse wraps a variant listing with its paging parameters.
type ListResponse struct {
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	Results []VariantSummary `json:"results"`
}

// BatchAnnotationRequest asks for annotation of many stored variants.
type BatchAnnotationRequest struct {
	IDs     []string `json:"ids"`
	Mode    string   `json:"mode"`
	Include string   `json:"include"`
}

// BatchAnnotationItem is the per-variant outcome of a batch request.
// Exactly one of Annotation and Error is set.
type BatchAnnotationItem struct {
	VariantID  string           `json:"variant_id"`
	Annotation *annotate.Result `json:"annotation,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// BatchAnnotationResponse carries all per-variant outcomes.
type BatchAnnotationResponse struct {
	Mode    string                `json:"mode"`
	Results []BatchAnnotationItem `json:"results"`
}
