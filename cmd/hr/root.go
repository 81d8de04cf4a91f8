package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/heron-rebuild/internal/cli"
	"github.com/spf13/cobra"
)

var settings cli.Settings

var rootCmd = &cobra.Command{
	Use:   "hr",
	Short: "hr is a workflow-driven build runner",
	Long: `hr reads a declarative workflow file (rebuild.hr), realizes the tasks a
plan asks for under their branch selections, and executes each realization
as a shell script in dependency order. Successful realizations are cached
under the output directory and reused on subsequent runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := settings.Validate(); err != nil {
			return err
		}
		app := cli.New(settings)
		return app.Run(cmd.Context())
	},
}

// Execute runs the root command and maps errors to exit codes: 2 for
// usage errors, 1 for planning or execution failures.
func Execute() {
	ctx, stop := signal.NotifyContext(rootCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&settings.Config, "config", "c", envOr(cli.EnvConfig, cli.DefaultConfig), "workflow definition file")
	flags.StringVarP(&settings.Plan, "plan", "p", "", "name of the plan to execute")
	flags.StringArrayVarP(&settings.Tasks, "task", "t", nil, "target task (may be repeated)")
	flags.StringArrayVarP(&settings.Branches, "branch", "b", nil, "target branch 'K1=V1[+K2=V2]' (may be repeated)")
	flags.BoolVarP(&settings.Invalidate, "invalidate", "x", false, "invalidate the specified task realizations")
	flags.BoolVarP(&settings.Baseline, "baseline", "B", false, "shorthand for --branch Baseline=baseline")
	flags.StringVarP(&settings.Output, "output", "o", envOr(cli.EnvOutput, cli.DefaultOutput), "output directory")
	flags.BoolVarP(&settings.Yes, "yes", "y", false, "bypass user confirmation")
	flags.BoolVarP(&settings.DryRun, "dry-run", "n", false, "plan only; don't modify anything")
	flags.CountVarP(&settings.Verbose, "verbose", "v", "print additional diagnostic detail (repeat for more)")
}
