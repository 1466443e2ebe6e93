// Package store provides in-memory variant storage with filtered,
// paginated listing.
package store

import (
	"errors"
	"sync"

	"github.com/varlab/vas/internal/vcf"
)

// ErrNotFound is returned when a variant identifier is unknown.
var ErrNotFound = errors.New("variant not found")

// Filter restricts a listing. Zero values mean "no restriction" for Chrom
// and MinQual; Limit <= 0 means no cap. Variants without a quality score
// never satisfy MinQual.
type Filter struct {
	Chrom   string
	MinQual *float64
	Limit   int
	Offset  int
}

// Store is an insertion-ordered, concurrency-safe map of variant id to
// record. Records are never mutated after Put; a re-Put of an existing id
// replaces the record in place, keeping its original position.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*vcf.Variant
	order []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byID: make(map[string]*vcf.Variant),
	}
}

// Put inserts or replaces a variant, keyed by its synthetic identifier.
// Returns true if the id was new.
func (s *Store) Put(v *vcf.Variant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.byID[v.ID]
	s.byID[v.ID] = v
	if !exists {
		s.order = append(s.order, v.ID)
	}
	return !exists
}

// Get returns the variant with the given id, or ErrNotFound.
func (s *Store) Get(id string) (*vcf.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// List returns variants matching the filter in insertion order. An offset
// beyond the matching set yields an empty slice, never an error.
func (s *Store) List(f Filter) []*vcf.Variant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*vcf.Variant
	skipped := 0
	for _, id := range s.order {
		v := s.byID[id]
		if !matches(v, f) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, v)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func matches(v *vcf.Variant, f Filter) bool {
	if f.Chrom != "" && v.Chrom != f.Chrom {
		return false
	}
	if f.MinQual != nil {
		if v.Qual == nil || *v.Qual < *f.MinQual {
			return false
		}
	}
	return true
}

// All returns every stored variant in insertion order.
func (s *Store) All() []*vcf.Variant {
	return s.List(Filter{})
}

// Len returns the number of stored variants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Reset removes all stored variants.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*vcf.Variant)
	s.order = nil
}
