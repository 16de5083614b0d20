package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and ping the oracle",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var checkTimeout time.Duration

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Second, "ping timeout")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  ✗ config: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "  ✓ config")

	deps, err := newEngine(cfg, newLogger(cfg), false)
	if err != nil {
		fmt.Fprintf(out, "  ✗ engine: %v\n", err)
		return err
	}
	defer deps.Close()

	if _, err := deps.Catalog().Resolve(deps.Workflow.AgentRoles); err != nil {
		fmt.Fprintf(out, "  ✗ roles: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "  ✓ roles (%d)\n", len(deps.Workflow.AgentRoles))

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	if err := deps.Oracle.Ping(ctx); err != nil {
		fmt.Fprintf(out, "  ✗ oracle %s: %v\n", deps.Oracle.Name(), err)
		return err
	}
	fmt.Fprintf(out, "  ✓ oracle %s\n", deps.Oracle.Name())
	return nil
}
