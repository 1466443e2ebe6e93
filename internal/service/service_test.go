package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/store"
	"github.com/varlab/vas/internal/vcf"
)

const vcfHeader = "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

// stubBackend serves canned annotations; variants on chrom "down" fail.
type stubBackend struct {
	mode annotate.Mode
}

func (s *stubBackend) Mode() annotate.Mode { return s.mode }

func (s *stubBackend) Annotate(ctx context.Context, v *vcf.Variant, include annotate.SourceSet) (*annotate.Result, error) {
	if v.Chrom == "down" {
		return nil, &annotate.UnavailableError{Backend: s.mode, Reason: "stub backend down"}
	}
	return &annotate.Result{VariantID: v.ID, Mode: s.mode, GeneSymbol: "KRAS"}, nil
}

func newTestService() *Service {
	client := annotate.NewClient(&stubBackend{mode: annotate.ModeCLI}, &stubBackend{mode: annotate.ModeREST})
	return New(store.New(), client)
}

func TestService_Upload(t *testing.T) {
	svc := newTestService()

	content := vcfHeader +
		"1\t100\t.\tA\tG\t30\tPASS\tDP=10\n" +
		"2\t200\trs42\tC\tT\t.\tPASS\t.\n"

	res, err := svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	assert.NotEmpty(t, res.UploadID)
	assert.Equal(t, 2, res.Stored)
	assert.Empty(t, res.Warnings)

	v, err := svc.Get("1_100_A_G")
	require.NoError(t, err)
	assert.Equal(t, "1", v.Chrom)
	assert.Equal(t, int64(100), v.Pos)
	require.NotNil(t, v.Qual)
	assert.Equal(t, 30.0, *v.Qual)
}

func TestService_UploadCollectsWarnings(t *testing.T) {
	svc := newTestService()

	content := vcfHeader +
		"1\t100\t.\tA\tG\t30\tPASS\tDP=10\n" +
		"2\t200\t.\tC\tT\n" + // 5 fields
		"3\tnope\t.\tG\tA\t40\tPASS\t.\n" +
		"4\t400\t.\tT\tC\t50\tPASS\t.\n"

	res, err := svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err, "per-line problems must not fail the upload")

	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 4, res.Lines, "warning lines still count as processed")
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, 2, res.Warnings[0].Line)
	assert.Equal(t, 3, res.Warnings[1].Line)

	// Records before and after the bad lines are preserved.
	_, err = svc.Get("1_100_A_G")
	assert.NoError(t, err)
	_, err = svc.Get("4_400_T_C")
	assert.NoError(t, err)
}

func TestService_UploadInvalidHeaderFatal(t *testing.T) {
	svc := newTestService()

	_, err := svc.Upload(context.Background(), strings.NewReader("1\t100\t.\tA\tG\t30\tPASS\t.\n"))
	var perr *vcf.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, svc.Stats().TotalVariants)
}

func TestService_UploadIdempotent(t *testing.T) {
	svc := newTestService()
	content := vcfHeader + "1\t100\t.\tA\tG\t30\tPASS\t.\n"

	_, err := svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Stats().TotalVariants, "re-upload must not duplicate records")
}

func TestService_ListFilters(t *testing.T) {
	svc := newTestService()
	content := vcfHeader +
		"1\t100\t.\tA\tG\t30\tPASS\t.\n" +
		"1\t200\t.\tC\tT\t10\tPASS\t.\n" +
		"1\t300\t.\tG\tA\t.\tPASS\t.\n" + // quality absent
		"2\t400\t.\tT\tC\t50\tPASS\t.\n"

	_, err := svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	minQual := 20.0
	got := svc.List(store.Filter{Chrom: "1", MinQual: &minQual})
	require.Len(t, got, 1, "quality-absent variants excluded by min_quality")
	assert.Equal(t, int64(100), got[0].Pos)
}

func TestService_AnnotateUnknownID(t *testing.T) {
	svc := newTestService()

	_, err := svc.Annotate(context.Background(), "1_999_A_G", annotate.ModeREST, annotate.AllSources())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_Annotate(t *testing.T) {
	svc := newTestService()
	_, err := svc.Upload(context.Background(), strings.NewReader(vcfHeader+"1\t100\t.\tA\tG\t30\tPASS\t.\n"))
	require.NoError(t, err)

	res, err := svc.Annotate(context.Background(), "1_100_A_G", annotate.ModeREST, annotate.AllSources())
	require.NoError(t, err)
	assert.Equal(t, annotate.ModeREST, res.Mode)
	assert.Equal(t, "KRAS", res.GeneSymbol)
}

func TestService_AnnotateBackendDown(t *testing.T) {
	svc := newTestService()
	_, err := svc.Upload(context.Background(), strings.NewReader(vcfHeader+"down\t100\t.\tA\tG\t30\tPASS\t.\n"))
	require.NoError(t, err)

	_, err = svc.Annotate(context.Background(), "down_100_A_G", annotate.ModeREST, annotate.AllSources())
	var unavail *annotate.UnavailableError
	require.ErrorAs(t, err, &unavail)

	// A failed annotation never mutates the store.
	assert.Equal(t, 1, svc.Stats().TotalVariants)
}

func TestService_AnnotateBatch(t *testing.T) {
	svc := newTestService()
	content := vcfHeader +
		"1\t100\t.\tA\tG\t30\tPASS\t.\n" +
		"down\t200\t.\tC\tT\t30\tPASS\t.\n"
	_, err := svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	ids := []string{"1_100_A_G", "down_200_C_T", "9_900_G_A"}
	items, err := svc.AnnotateBatch(context.Background(), ids, annotate.ModeCLI, annotate.AllSources())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.NoError(t, items[0].Err)
	assert.NotNil(t, items[0].Result)

	var unavail *annotate.UnavailableError
	assert.ErrorAs(t, items[1].Err, &unavail)

	assert.ErrorIs(t, items[2].Err, store.ErrNotFound)
}

func TestService_Stats(t *testing.T) {
	svc := newTestService()
	content := vcfHeader +
		"1\t100\t.\tA\tG\t30\tPASS\t.\n" +
		"1\t200\t.\tAT\tA\t30\tPASS\t.\n" +
		"down\t300\t.\tC\tT\t30\tPASS\t.\n"
	_, err := svc.Upload(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	svc.Annotate(context.Background(), "1_100_A_G", annotate.ModeREST, annotate.AllSources())
	svc.Annotate(context.Background(), "down_300_C_T", annotate.ModeREST, annotate.AllSources())

	stats := svc.Stats()
	assert.Equal(t, 3, stats.TotalVariants)
	assert.Equal(t, 2, stats.VariantTypes["1_1"])
	assert.Equal(t, 1, stats.VariantTypes["2_1"])
	assert.InDelta(t, 0.5, stats.SuccessRates["rest"], 1e-9)
	assert.Contains(t, stats.LastUpload, "3 variants")
}

func TestService_Reset(t *testing.T) {
	svc := newTestService()
	_, err := svc.Upload(context.Background(), strings.NewReader(vcfHeader+"1\t100\t.\tA\tG\t30\tPASS\t.\n"))
	require.NoError(t, err)

	svc.Reset()
	stats := svc.Stats()
	assert.Equal(t, 0, stats.TotalVariants)
	assert.Empty(t, stats.SuccessRates)
}
