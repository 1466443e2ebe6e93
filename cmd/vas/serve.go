package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/config"
	"github.com/varlab/vas/internal/server"
	"github.com/varlab/vas/internal/service"
	"github.com/varlab/vas/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the variant annotation HTTP service",
		Example: `  vas serve
  vas serve --port 9000
  VAS_REST_VEP_URL=http://localhost:4000 vas serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				viper.Set("server.port", port)
			}
			return runServe(config.FromViper(viper.GetViper()))
		},
	}

	cmd.Flags().Int("port", 0, "listen port (overrides config)")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	rest := annotate.NewRESTBackend(cfg.REST.VEPURL, cfg.REST.ClinVarURL, cfg.Annotate.Timeout)
	rest.SetLogger(logger)
	cli := annotate.NewCLIBackend(cfg.CLI.Tool, cfg.CLI.CacheDir, cfg.CLI.Species, cfg.CLI.Assembly)
	cli.SetLogger(logger)

	client := annotate.NewClient(rest, cli)
	client.SetTimeout(cfg.Annotate.Timeout)
	client.SetLogger(logger)

	svc := service.New(store.New(), client)
	svc.SetLogger(logger)
	svc.SetWorkers(cfg.Annotate.Workers)

	logger.Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("vep_url", cfg.REST.VEPURL),
		zap.String("cli_tool", cfg.CLI.Tool))

	return server.New(svc, cfg, logger).Start()
}
