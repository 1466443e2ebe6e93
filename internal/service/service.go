// Package service orchestrates upload, lookup, and annotation flows over
// the variant store and the annotation client.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/store"
	"github.com/varlab/vas/internal/vcf"
)

// Warning is a non-fatal per-line parse issue collected during upload.
type Warning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// UploadResult reports the outcome of one VCF upload. Lines counts every
// data line processed, including the ones that became warnings.
type UploadResult struct {
	UploadID string    `json:"upload_id"`
	Stored   int       `json:"stored"`
	Lines    int       `json:"lines_processed"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// BatchItem is the per-variant outcome of a batch annotation. Exactly one
// of Result and Err is set.
type BatchItem struct {
	VariantID string
	Result    *annotate.Result
	Err       error
}

// Stats summarizes the store contents and annotation outcomes.
type Stats struct {
	TotalVariants int                `json:"total_variants"`
	VariantTypes  map[string]int     `json:"variant_types"`
	SuccessRates  map[string]float64 `json:"annotation_success_rates"`
	LastUpload    string             `json:"last_upload"`
}

// Service wires the store and the annotation client together. The store is
// an explicit dependency, not process-global state: construct one per
// service instance and reset it in tests.
type Service struct {
	store   *store.Store
	client  *annotate.Client
	workers int
	logger  *zap.Logger

	mu         sync.Mutex
	attempts   map[annotate.Mode]int
	successes  map[annotate.Mode]int
	lastUpload string
}

// New creates a service over the given store and annotation client.
func New(st *store.Store, client *annotate.Client) *Service {
	return &Service{
		store:     st,
		client:    client,
		workers:   4,
		logger:    zap.NewNop(),
		attempts:  make(map[annotate.Mode]int),
		successes: make(map[annotate.Mode]int),
	}
}

// SetLogger sets the logger for upload and annotation events.
func (s *Service) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetWorkers bounds batch-annotation parallelism.
func (s *Service) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Upload parses VCF content from r and stores every well-formed record.
// Per-line problems are collected as warnings; only an invalid header
// fails the whole upload. Re-uploading the same file is idempotent: the
// deterministic identifiers dedupe records in place.
func (s *Service) Upload(ctx context.Context, r io.Reader) (*UploadResult, error) {
	parser, err := vcf.NewParser(r)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	result := &UploadResult{UploadID: uuid.NewString()}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := parser.Next()
		if err != nil {
			var perr *vcf.ParseError
			if errors.As(err, &perr) {
				result.Warnings = append(result.Warnings, Warning{Line: perr.Line, Message: perr.Message})
				continue
			}
			return nil, err
		}
		if v == nil {
			break
		}

		s.store.Put(v)
		result.Stored++
	}
	result.Lines = parser.LineNumber()

	summary := fmt.Sprintf("stored %d variants (%d warnings)", result.Stored, len(result.Warnings))
	s.mu.Lock()
	s.lastUpload = summary
	s.mu.Unlock()

	s.logger.Info("vcf upload processed",
		zap.String("upload_id", result.UploadID),
		zap.Int("stored", result.Stored),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}

// Get returns a stored variant by id, or store.ErrNotFound.
func (s *Service) Get(id string) (*vcf.Variant, error) {
	return s.store.Get(id)
}

// List returns stored variants matching the filter in insertion order.
func (s *Service) List(f store.Filter) []*vcf.Variant {
	return s.store.List(f)
}

// Annotate annotates a stored variant. Unknown ids fail with
// store.ErrNotFound before any backend is contacted; the store lock is
// released before the (possibly slow) annotation call.
func (s *Service) Annotate(ctx context.Context, id string, mode annotate.Mode, include annotate.SourceSet) (*annotate.Result, error) {
	v, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Annotate(ctx, v, mode, include)
	s.recordOutcome(mode, err == nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AnnotateBatch annotates many stored variants, bounded by the configured
// worker count. Each id gets an independent outcome: unknown ids and
// backend failures never abort their siblings. An unsupported mode fails
// the whole batch.
func (s *Service) AnnotateBatch(ctx context.Context, ids []string, mode annotate.Mode, include annotate.SourceSet) ([]BatchItem, error) {
	items := make([]BatchItem, len(ids))
	var variants []*vcf.Variant
	var positions []int

	for i, id := range ids {
		v, err := s.store.Get(id)
		if err != nil {
			items[i] = BatchItem{VariantID: id, Err: err}
			continue
		}
		variants = append(variants, v)
		positions = append(positions, i)
	}

	results, err := s.client.AnnotateBatch(ctx, variants, mode, include, s.workers)
	if err != nil {
		return nil, err
	}

	for j, r := range results {
		i := positions[j]
		items[i] = BatchItem{VariantID: ids[i], Result: r.Result, Err: r.Err}
		s.recordOutcome(mode, r.Err == nil)
	}

	return items, nil
}

// Reset clears the store and the annotation counters.
func (s *Service) Reset() {
	s.store.Reset()
	s.mu.Lock()
	s.attempts = make(map[annotate.Mode]int)
	s.successes = make(map[annotate.Mode]int)
	s.lastUpload = ""
	s.mu.Unlock()
}

// Stats reports store totals, a variant-type breakdown, and per-mode
// annotation success rates.
func (s *Service) Stats() Stats {
	types := make(map[string]int)
	all := s.store.All()
	for _, v := range all {
		types[v.TypeKey()]++
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rates := make(map[string]float64)
	for mode, n := range s.attempts {
		if n > 0 {
			rates[string(mode)] = float64(s.successes[mode]) / float64(n)
		}
	}

	return Stats{
		TotalVariants: len(all),
		VariantTypes:  types,
		SuccessRates:  rates,
		LastUpload:    s.lastUpload,
	}
}

func (s *Service) recordOutcome(mode annotate.Mode, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[mode]++
	if ok {
		s.successes[mode]++
	}
}
