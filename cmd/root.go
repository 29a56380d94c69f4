// Package cmd provides the root command and CLI setup for gambitrun.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	"gambitrun.dev/pkg/gambitrun/internal/controller"
	"gambitrun.dev/pkg/gambitrun/internal/domain"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

var fsAdapter adapter.ProjectFSAdapter
var shellRunner adapter.ShellRunnerAdapter
var catalogStore adapter.CatalogStore
var resultStore adapter.ResultStore
var orchestrator domain.Orchestrator
var generator *domain.Generator
var ui controller.UI

// resultsOutputFlag is a root-level flag shared by commands that read/write
// the result artifact.
var resultsOutputFlag string

// debugFlag captures per-mutant build/test output into the result artifact.
var debugFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalProjectFSAdapter()
	shellRunner = adapter.NewLocalShellRunnerAdapter()
	catalogStore = adapter.NewGambitCatalogStore(fsAdapter)
	resultStore = adapter.NewJSONResultStore(fsAdapter)
	ui = newUI(rootCmd)
	orchestrator = domain.NewOrchestrator(fsAdapter, shellRunner, catalogStore, resultStore, ui)
	generator = domain.NewGenerator(fsAdapter, shellRunner)
}

func newUI(cmd *cobra.Command) controller.UI {
	if controller.IsTTY(os.Stdout) {
		return controller.NewTUI(cmd.OutOrStdout())
	}

	return controller.NewSimpleUI(cmd)
}

const rootLongDescription = `Gambitrun drives mutation trials for Gambit-generated Solidity mutants.
It applies one mutant at a time to your project, runs your build and test
commands under a hard timeout, restores the original sources, and reports
which mutants your test suite failed to detect.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gambitrun",
		Short: "Mutation trial runner for Gambit mutants",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetBool(logVerboseKey) || debugFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&resultsOutputFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"path of the JSON results artifact",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&debugFlag, debugFlagName, false, "capture per-mutant build/test output and log verbosely")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// runArgsFromConfig assembles RunArgs from the resolved flag/config/env
// values.
func runArgsFromConfig() domain.RunArgs {
	return domain.RunArgs{
		GambitDir:   m.Path(viper.GetString(runGambitDirConfigKey)),
		ProjectRoot: m.Path(viper.GetString(runProjectRootConfigKey)),
		Output:      m.Path(viper.GetString(outputFlagName)),
		TestCmd:     viper.GetString(runTestCmdConfigKey),
		BuildCmd:    viper.GetString(runBuildCmdConfigKey),
		Timeout:     time.Duration(viper.GetFloat64(runTimeoutConfigKey) * float64(time.Second)),
		Jobs:        viper.GetInt(runJobsConfigKey),
		Debug:       debugFlag,
		Uncaught:    viper.GetBool(runUncaughtConfigKey),
		Isolated:    viper.GetBool(runIsolatedConfigKey),
	}
}
