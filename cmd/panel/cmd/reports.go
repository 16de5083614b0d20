package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/panel/internal/config"
	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

var reportsCmd = &cobra.Command{
	Use:     "reports",
	Aliases: []string{"report"},
	Short:   "Manage stored reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsDelete,
}

var reportsExportCmd = &cobra.Command{
	Use:   "export <id> <file>",
	Short: "Write a stored report to a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE:  runReportsExport,
}

var (
	reportsLimit   int
	reportsOutput  string
	reportsVerbose bool
)

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsDeleteCmd, reportsExportCmd)

	reportsCmd.PersistentFlags().StringVarP(&reportsOutput, "output", "o", "pretty", "output format (pretty, json)")
	reportsListCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 20, "maximum reports to list (0 = all)")
	reportsShowCmd.Flags().BoolVarP(&reportsVerbose, "verbose", "v", false, "show every round")
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(ctx context.Context, st core.ReportStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st)
}

func runReportsList(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(reportsOutput); err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st core.ReportStore) error {
		summaries, err := st.List(ctx, reportsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if reportsOutput == "json" {
			return writeJSON(out, summaries)
		}
		fmt.Fprint(out, newRenderer(out, false).RenderSummaries(summaries))
		return nil
	})
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	if err := validateOutput(reportsOutput); err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st core.ReportStore) error {
		stored, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if reportsOutput == "json" {
			return writeJSON(out, stored)
		}
		fmt.Fprint(out, newRenderer(out, reportsVerbose).Render(stored))
		return nil
	})
}

func runReportsDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st core.ReportStore) error {
		if err := st.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted report %s\n", args[0])
		return nil
	})
}

func runReportsExport(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st core.ReportStore) error {
		stored, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return err
		}
		if err := config.AtomicWrite(args[1], append(data, '\n')); err != nil {
			return fmt.Errorf("exporting report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported report %s to %s\n", stored.ID, args[1])
		return nil
	})
}
