package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chronobooth/internal/bootstrap"
	"chronobooth/internal/domain"
)

type eraListing struct {
	Eras []domain.Era `yaml:"eras" json:"eras"`
}

func newErasCmd() *cobra.Command {
	var (
		catalogPath string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "eras",
		Short: "List the era catalog",
		Example: `  # Table of ids and names
  framectl eras

  # Dump a catalog file in the format ERA_CATALOG_PATH accepts
  framectl eras --output yaml > eras.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := bootstrap.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch output {
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
				for _, era := range cat.All() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", era.ID, era.Name, era.Description)
				}
				return tw.Flush()
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(eraListing{Eras: cat.All()}); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(eraListing{Eras: cat.All()})
			default:
				return fmt.Errorf("unknown output %q (table, yaml, json)", output)
			}
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Era catalog YAML file (defaults to the built-in catalog)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, yaml or json")

	return cmd
}
