package cmd

import (
	"github.com/spf13/cobra"

	"gambitrun.dev/pkg/gambitrun/internal/domain"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

var generateFoundryTomlFlag string
var generateOutputFlag string
var generateSourceRootFlag string

const generateLongDescription = `Crawl a directory of Solidity sources, synthesize a gambit.json
configuration with the remappings from foundry.toml, and invoke
"gambit mutate" to generate mutants.

Arguments after -- are passed through to gambit mutate, e.g.

  gambitrun generate src -- --num-mutants 50`

// generateCmd represents the generate command.
var generateCmd = newGenerateCmd()

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <input-dir> [-- gambit args...]",
		Short: "Generate mutants with gambit",
		Long:  generateLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generator.Generate(cmd.Context(), generateArgsFrom(args))
		},
	}

	configureGenerateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func configureGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&generateFoundryTomlFlag, "foundry-toml", "foundry.toml", "foundry configuration supplying solc remappings")
	cmd.Flags().StringVar(&generateOutputFlag, "gambit-json", "gambit.json", "path of the gambit configuration to write")
	cmd.Flags().StringVar(&generateSourceRootFlag, "sourceroot", ".", "sourceroot stamped on each configuration entry")
}

func generateArgsFrom(args []string) domain.GenerateArgs {
	return domain.GenerateArgs{
		InputDir:    m.Path(args[0]),
		FoundryToml: m.Path(generateFoundryTomlFlag),
		Output:      m.Path(generateOutputFlag),
		SourceRoot:  generateSourceRootFlag,
		ExtraArgs:   args[1:],
	}
}
