package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/varlab/vas/internal/vcf"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string) (stdout []byte, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}

// CLIBackend annotates variants by invoking a local VEP-style batch tool.
// The variant is serialized to a minimal VCF on disk, the tool is run with
// JSON output to stdout, and the output is translated to the shared Result
// shape. The tool is probed for availability at call time; a missing
// binary, non-zero exit, or malformed output all map to UnavailableError.
type CLIBackend struct {
	tool     string
	cacheDir string
	species  string
	assembly string
	exec     executor
	logger   *zap.Logger
}

// NewCLIBackend creates a CLI backend for the given tool binary.
func NewCLIBackend(tool, cacheDir, species, assembly string) *CLIBackend {
	return &CLIBackend{
		tool:     tool,
		cacheDir: cacheDir,
		species:  species,
		assembly: assembly,
		exec:     osExecutor{},
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for invocation warnings.
func (b *CLIBackend) SetLogger(l *zap.Logger) {
	b.logger = l
}

func (b *CLIBackend) Mode() Mode { return ModeCLI }

// Annotate runs the tool for a single variant.
func (b *CLIBackend) Annotate(ctx context.Context, v *vcf.Variant, include SourceSet) (*Result, error) {
	if _, err := b.exec.LookPath(b.tool); err != nil {
		return nil, unavailable(ModeCLI, fmt.Sprintf("annotation tool %q not found", b.tool), err)
	}

	input, err := os.CreateTemp("", "vas-*.vcf")
	if err != nil {
		return nil, unavailable(ModeCLI, "create input file", err)
	}
	defer os.Remove(input.Name())

	if err := writeVCF(input, []*vcf.Variant{v}); err != nil {
		input.Close()
		return nil, unavailable(ModeCLI, "write input file", err)
	}
	if err := input.Close(); err != nil {
		return nil, unavailable(ModeCLI, "write input file", err)
	}

	args := []string{
		"--input_file", input.Name(),
		"--output_file", "STDOUT",
		"--format", "vcf",
		"--cache",
		"--offline",
		"--dir_cache", b.cacheDir,
		"--species", b.species,
		"--assembly", b.assembly,
		"--json",
		"--no_stats",
	}

	out, err := b.exec.Run(ctx, b.tool, args)
	if err != nil {
		b.logger.Warn("annotation tool failed",
			zap.String("tool", b.tool),
			zap.Error(err))
		return nil, unavailable(ModeCLI, "tool invocation failed", err)
	}

	items, err := parseToolOutput(out)
	if err != nil {
		return nil, unavailable(ModeCLI, "malformed tool output", err)
	}

	res := &Result{VariantID: v.ID, Mode: ModeCLI}
	applyVEP(res, items, include)
	res.setRaw("vep", items)
	return res, nil
}

// parseToolOutput decodes the tool's JSON-lines stdout, skipping header
// lines carried over from VCF-shaped output.
func parseToolOutput(out []byte) ([]vepItem, error) {
	var items []vepItem
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var item vepItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("decode output line: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// writeVCF serializes variants as a minimal VCF the tool accepts.
func writeVCF(w io.Writer, variants []*vcf.Variant) error {
	if _, err := fmt.Fprint(w, "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"); err != nil {
		return err
	}
	for _, v := range variants {
		if _, err := fmt.Fprintf(w, "%s\t%d\t.\t%s\t%s\t.\t.\t.\n",
			v.Chrom, v.Pos, v.Ref, strings.Join(v.Alts, ",")); err != nil {
			return err
		}
	}
	return nil
}
