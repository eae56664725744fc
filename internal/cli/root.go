// Package cli holds the framectl commands.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "framectl",
		Short: "Frame portraits and run the ChronoBooth API",
		Long: `framectl composes portraits onto the 900x1200 ChronoBooth canvas the same
way the API does, lists the era catalog, and serves the HTTP API.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newErasCmd())
	cmd.AddCommand(newFrameCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
