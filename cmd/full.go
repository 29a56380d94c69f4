package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// fullCmd represents the full command.
var fullCmd = newFullCmd()

func newFullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "full <input-dir> [-- gambit args...]",
		Short: "Generate mutants, then run all trials",
		Long: `Run the generate step and then the trial run in one invocation.
Accepts the flags of both subcommands.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindRunFlags(cmd)

			runArgs := runArgsFromConfig()
			if runArgs.TestCmd == "" {
				return errors.New("a test command is required (--test-cmd)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := generator.Generate(ctx, generateArgsFrom(args)); err != nil {
				return err
			}

			_, err := orchestrator.Run(ctx, runArgs)

			return err
		},
	}

	configureGenerateFlags(cmd)
	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(fullCmd)
}
