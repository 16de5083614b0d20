package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/panel/internal/config"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the specialist roles",
	Long: `List the specialist roles available to analyses: the built-in roles
merged with roles.file. --output yaml prints a catalog that can be edited
and used as roles.file.`,
	Args: cobra.NoArgs,
	RunE: runRoles,
}

var rolesOutput string

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.Flags().StringVarP(&rolesOutput, "output", "o", "pretty", "output format (pretty, json, yaml)")
}

func runRoles(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := config.LoadRoleCatalog(cfg.Roles.File)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch rolesOutput {
	case "json":
		return writeJSON(out, catalog.Profiles())
	case "yaml":
		data, err := config.MarshalRoleCatalog(catalog)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "pretty":
		defaults := cfg.Analysis.Roles
		fmt.Fprint(out, newRenderer(out, false).RenderRoles(catalog.Profiles(), defaults))
		return nil
	default:
		return fmt.Errorf("invalid --output %q (valid: pretty, json, yaml)", rolesOutput)
	}
}
