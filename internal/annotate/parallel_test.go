package annotate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vas/internal/vcf"
)

// stubBackend returns a canned result, failing for variants whose Chrom is "fail".
type stubBackend struct {
	mode Mode
}

func (s *stubBackend) Mode() Mode { return s.mode }

func (s *stubBackend) Annotate(ctx context.Context, v *vcf.Variant, include SourceSet) (*Result, error) {
	if v.Chrom == "fail" {
		return nil, unavailable(s.mode, "stub failure", nil)
	}
	return &Result{VariantID: v.ID, Mode: s.mode, GeneSymbol: "KRAS"}, nil
}

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := 0; i < n; i++ {
		ch <- WorkItem{
			Seq: i,
			Variant: &vcf.Variant{
				ID:    vcf.VariantID("1", int64(100+i), "A", []string{"T"}),
				Chrom: "1",
				Pos:   int64(100 + i),
				Ref:   "A",
				Alts:  []string{"T"},
			},
		}
	}
	close(ch)
	return ch
}

func TestParallelAnnotate_OrderPreservation(t *testing.T) {
	c := NewClient(&stubBackend{mode: ModeCLI})

	items := makeItems(200)
	results := c.ParallelAnnotate(context.Background(), items, ModeCLI, AllSources(), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelAnnotate_SingleWorker(t *testing.T) {
	c := NewClient(&stubBackend{mode: ModeCLI})

	items := makeItems(50)
	results := c.ParallelAnnotate(context.Background(), items, ModeCLI, AllSources(), 1)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, collected, 50)
}

func TestParallelAnnotate_EmptyInput(t *testing.T) {
	c := NewClient(&stubBackend{mode: ModeCLI})

	ch := make(chan WorkItem)
	close(ch)
	results := c.ParallelAnnotate(context.Background(), ch, ModeCLI, AllSources(), 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	c := NewClient(&stubBackend{mode: ModeCLI})

	items := makeItems(100)
	results := c.ParallelAnnotate(context.Background(), items, ModeCLI, AllSources(), 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestAnnotateBatch_PartialFailuresIndependent(t *testing.T) {
	c := NewClient(&stubBackend{mode: ModeCLI})

	variants := []*vcf.Variant{
		{ID: "1_100_A_G", Chrom: "1", Pos: 100, Ref: "A", Alts: []string{"G"}},
		{ID: "fail_200_A_G", Chrom: "fail", Pos: 200, Ref: "A", Alts: []string{"G"}},
		{ID: "2_300_A_G", Chrom: "2", Pos: 300, Ref: "A", Alts: []string{"G"}},
	}

	out, err := c.AnnotateBatch(context.Background(), variants, ModeCLI, AllSources(), 2)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.NoError(t, out[0].Err)
	assert.NotNil(t, out[0].Result)

	var unavail *UnavailableError
	require.ErrorAs(t, out[1].Err, &unavail)
	assert.Nil(t, out[1].Result)

	// The failure in the middle never aborts siblings.
	assert.NoError(t, out[2].Err)
}

func TestAnnotateBatch_UnsupportedMode(t *testing.T) {
	c := NewClient(&stubBackend{mode: ModeCLI})

	_, err := c.AnnotateBatch(context.Background(), makeVariants(3), Mode("grpc"), AllSources(), 2)
	var modeErr *UnsupportedModeError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, "grpc", modeErr.Mode)
}

func makeVariants(n int) []*vcf.Variant {
	out := make([]*vcf.Variant, n)
	for i := 0; i < n; i++ {
		out[i] = &vcf.Variant{
			ID:    vcf.VariantID("1", int64(100+i), "A", []string{"G"}),
			Chrom: "1",
			Pos:   int64(100 + i),
			Ref:   "A",
			Alts:  []string{"G"},
		}
	}
	return out
}
