package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/config"
	"github.com/varlab/vas/internal/output"
	"github.com/varlab/vas/internal/vcf"
)

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <file.vcf>",
		Short: "Annotate the variants in a VCF file",
		Long: `Annotate parses a VCF file (plain or gzip-compressed) and writes one
tab-separated annotation row per variant. Lines that fail to parse are
reported on stderr and skipped; variants whose annotation fails are
reported on stderr and excluded from the output.`,
		Example: `  vas annotate input.vcf
  vas annotate --mode cli --include effect input.vcf.gz
  vas annotate -o annotated.tsv input.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modeRaw, _ := cmd.Flags().GetString("mode")
			includeRaw, _ := cmd.Flags().GetString("include")
			outFile, _ := cmd.Flags().GetString("output")
			workers, _ := cmd.Flags().GetInt("workers")

			mode, err := annotate.ParseMode(modeRaw)
			if err != nil {
				return err
			}
			include, err := annotate.ParseSources(includeRaw)
			if err != nil {
				return err
			}

			cfg := config.FromViper(viper.GetViper())
			if workers == 0 {
				workers = cfg.Annotate.Workers
			}

			return runAnnotateFile(cmd, args[0], outFile, cfg, mode, include, workers)
		},
	}

	cmd.Flags().String("mode", string(annotate.ModeREST), "annotation mode: cli or rest")
	cmd.Flags().String("include", "all", "comma-separated sources: effect, clinical, frequency")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Int("workers", 0, "parallel annotation workers (default from config)")

	return cmd
}

func runAnnotateFile(cmd *cobra.Command, path, outFile string, cfg *config.Config, mode annotate.Mode, include annotate.SourceSet, workers int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	parser, err := vcf.NewParser(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer parser.Close()

	var variants []*vcf.Variant
	for {
		v, err := parser.Next()
		if err != nil {
			var perr *vcf.ParseError
			if errors.As(err, &perr) {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", perr)
				continue
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if v == nil {
			break
		}
		variants = append(variants, v)
	}
	if len(variants) == 0 {
		return fmt.Errorf("no parseable variants in %s", path)
	}

	rest := annotate.NewRESTBackend(cfg.REST.VEPURL, cfg.REST.ClinVarURL, cfg.Annotate.Timeout)
	cli := annotate.NewCLIBackend(cfg.CLI.Tool, cfg.CLI.CacheDir, cfg.CLI.Species, cfg.CLI.Assembly)
	client := annotate.NewClient(rest, cli)
	client.SetTimeout(cfg.Annotate.Timeout)

	results, err := client.AnnotateBatch(cmd.Context(), variants, mode, include, workers)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		out, err = os.Create(outFile)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer out.Close()
	}

	aw := output.NewAnnotationWriter(out)
	if err := aw.WriteHeader(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", r.Variant.ID, r.Err)
			continue
		}
		if err := aw.Write(r.Variant, r.Result); err != nil {
			return err
		}
	}
	if err := aw.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d variants could not be annotated\n", failed, len(results))
	}
	return nil
}
