package cli

import (
	"github.com/spf13/cobra"

	"chronobooth/internal/bootstrap"
	"chronobooth/internal/infra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ChronoBooth API",
		Long: `Starts the HTTP API. Without GEMINI_API_KEY the synthetic gateway is used
so the whole flow can be exercised offline.`,
		Example: `  # Start on the configured PORT (default 8080)
  framectl serve

  # Start on a custom port
  framectl serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)
			return bootstrap.Serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")

	return cmd
}
