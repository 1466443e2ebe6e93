// Package main provides the vas command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varlab/vas/internal/config"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vas",
		Short: "Variant annotation service",
		Long: `vas ingests VCF files and annotates the stored variants with gene,
consequence, clinical significance, and population frequency data.

The serve command runs the HTTP service; the annotate command processes a
VCF file offline without a server. Annotation runs against a local VEP
installation (cli mode) or the Ensembl and ClinVar web APIs (rest mode).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default: ./vas.yaml or ~/.vas.yaml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newAnnotateCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vas version %s (%s) built %s\n", version, commit, date)
		},
	}
}

func initConfig(cmd *cobra.Command) error {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile == "" {
		// config set writes ~/.vas.yaml; a vas.yaml in the working
		// directory takes precedence.
		if fileExists("vas.yaml") {
			cfgFile = "vas.yaml"
		} else if home, err := os.UserHomeDir(); err == nil {
			if p := filepath.Join(home, ".vas.yaml"); fileExists(p) {
				cfgFile = p
			}
		}
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.SetEnvPrefix("VAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func main() {
	root := newRootCmd()
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
