package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runTestCmdFlag string
var runBuildCmdFlag string
var runGambitDirFlag string
var runProjectRootFlag string
var runTimeoutFlag float64
var runJobsFlag int
var runUncaughtFlag bool
var runIsolatedFlag bool

const runLongDescription = `Run one mutation trial per mutant in the gambit output directory.

Each trial applies a mutant to the project, runs the build command and then
the test command under the per-mutant timeout, and restores the original
file afterwards. Mutants the test suite does not detect are written to the
results artifact.

With --uncaught, only the mutants recorded as undetected in a previous
results artifact are re-run.`

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run mutation trials",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindRunFlags(cmd)

			args := runArgsFromConfig()
			if args.TestCmd == "" {
				return errors.New("a test command is required (--test-cmd)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err := orchestrator.Run(ctx, args)

			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runTestCmdFlag, testCmdFlagName, "t", viper.GetString(runTestCmdConfigKey), "shell command that runs the test suite")
	cmd.Flags().StringVarP(&runBuildCmdFlag, buildCmdFlagName, "b", viper.GetString(runBuildCmdConfigKey), "shell command that builds the project (empty skips the build phase)")
	cmd.Flags().StringVarP(&runGambitDirFlag, gambitDirFlagName, "g", viper.GetString(runGambitDirConfigKey), "gambit output directory holding the mutant catalog")
	cmd.Flags().StringVarP(&runProjectRootFlag, projectRootFlagName, "r", viper.GetString(runProjectRootConfigKey), "root of the project under test")
	cmd.Flags().Float64Var(&runTimeoutFlag, timeoutFlagName, viper.GetFloat64(runTimeoutConfigKey), "per-mutant test timeout in seconds")
	cmd.Flags().IntVarP(&runJobsFlag, jobsFlagName, "j", viper.GetInt(runJobsConfigKey), "number of concurrent trials (0 uses all CPUs)")
	cmd.Flags().BoolVar(&runUncaughtFlag, uncaughtFlagName, viper.GetBool(runUncaughtConfigKey), "re-run only mutants previously recorded as undetected")
	cmd.Flags().BoolVar(&runIsolatedFlag, isolatedFlagName, viper.GetBool(runIsolatedConfigKey), "run each trial in an isolated copy of the project")
}

// bindRunFlags wires the executing command's run flags to their config keys.
// Binding at execution time keeps the run and full commands, which share
// these flags, from clobbering each other's bindings.
func bindRunFlags(cmd *cobra.Command) {
	bindFlagToConfig(cmd.Flags().Lookup(testCmdFlagName), runTestCmdConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(buildCmdFlagName), runBuildCmdConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(gambitDirFlagName), runGambitDirConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(projectRootFlagName), runProjectRootConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), runTimeoutConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(jobsFlagName), runJobsConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(uncaughtFlagName), runUncaughtConfigKey)
	bindFlagToConfig(cmd.Flags().Lookup(isolatedFlagName), runIsolatedConfigKey)
}
