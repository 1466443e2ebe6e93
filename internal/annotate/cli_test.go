package annotate

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vas/internal/vcf"
)

// fakeExecutor scripts LookPath and Run outcomes and records the invocation.
type fakeExecutor struct {
	lookPathErr error
	stdout      []byte
	runErr      error

	ranName string
	ranArgs []string
	input   string // contents of the --input_file argument at run time
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}
	return "/usr/local/bin/" + file, nil
}

func (f *fakeExecutor) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	f.ranName = name
	f.ranArgs = args
	for i, a := range args {
		if a == "--input_file" && i+1 < len(args) {
			if data, err := os.ReadFile(args[i+1]); err == nil {
				f.input = string(data)
			}
		}
	}
	return f.stdout, f.runErr
}

func newTestCLI(exec *fakeExecutor) *CLIBackend {
	b := NewCLIBackend("vep", "data/vep_cache", "homo_sapiens", "GRCh38")
	b.exec = exec
	return b
}

func TestCLIBackend_Annotate(t *testing.T) {
	out := `## ENSEMBL VARIANT EFFECT PREDICTOR
{"input": "1 100 . A G . . .", "most_severe_consequence": "missense_variant", "transcript_consequences": [{"gene_symbol": "KRAS", "consequence_terms": ["missense_variant"], "canonical": 1}], "colocated_variants": [{"clin_sig": ["pathogenic"], "gnomad": {"af": 0.002}}]}
`
	exec := &fakeExecutor{stdout: []byte(out)}
	b := newTestCLI(exec)

	res, err := b.Annotate(context.Background(), testVariant(), AllSources())
	require.NoError(t, err)

	assert.Equal(t, ModeCLI, res.Mode)
	assert.Equal(t, "KRAS", res.GeneSymbol)
	assert.Equal(t, "missense_variant", res.Consequence)
	assert.Equal(t, "pathogenic", res.ClinicalSignificance, "cli mode sources clinical from tool output")
	require.NotNil(t, res.PopulationFrequency)
	assert.InDelta(t, 0.002, *res.PopulationFrequency, 1e-9)

	assert.Equal(t, "vep", exec.ranName)
	assert.Contains(t, exec.ranArgs, "--json")
	assert.Contains(t, exec.ranArgs, "--offline")

	// Variant serialized into the tool's expected input shape.
	assert.Contains(t, exec.input, "##fileformat=VCFv4.2")
	assert.Contains(t, exec.input, "1\t100\t.\tA\tG\t.\t.\t.")
}

func TestCLIBackend_ToolNotFound(t *testing.T) {
	exec := &fakeExecutor{lookPathErr: errors.New("executable file not found in $PATH")}
	b := newTestCLI(exec)

	_, err := b.Annotate(context.Background(), testVariant(), AllSources())
	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, ModeCLI, unavail.Backend)
	assert.Empty(t, exec.ranName, "tool must not run when the probe fails")
}

func TestCLIBackend_NonZeroExit(t *testing.T) {
	exec := &fakeExecutor{runErr: errors.New("exit status 2: cache not found")}
	b := newTestCLI(exec)

	_, err := b.Annotate(context.Background(), testVariant(), AllSources())
	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
}

func TestCLIBackend_MalformedOutput(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte("Wide character in print at vep line 42\n")}
	b := newTestCLI(exec)

	_, err := b.Annotate(context.Background(), testVariant(), AllSources())
	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
}

func TestCLIBackend_IncludeRestrictsFields(t *testing.T) {
	out := `{"transcript_consequences": [{"gene_symbol": "KRAS", "consequence_terms": ["missense_variant"]}], "colocated_variants": [{"clin_sig": ["pathogenic"], "gnomad": {"af": 0.002}}]}`
	exec := &fakeExecutor{stdout: []byte(out)}
	b := newTestCLI(exec)

	res, err := b.Annotate(context.Background(), testVariant(), SourceSet{SourceEffect: true})
	require.NoError(t, err)

	assert.Equal(t, "missense_variant", res.Consequence)
	assert.Empty(t, res.ClinicalSignificance)
	assert.Nil(t, res.PopulationFrequency)
}

func TestParseToolOutput_SkipsHeaderLines(t *testing.T) {
	out := "## header one\n#another\n\n" +
		`{"most_severe_consequence": "intergenic_variant"}` + "\n"

	items, err := parseToolOutput([]byte(out))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "intergenic_variant", items[0].MostSevereConsequence)
}

func TestWriteVCF_MultiAllelic(t *testing.T) {
	var sb strings.Builder
	v := testVariant()
	v.Alts = []string{"G", "T"}

	require.NoError(t, writeVCF(&sb, []*vcf.Variant{v}))
	assert.Contains(t, sb.String(), "1\t100\t.\tA\tG,T\t.\t.\t.")
}
