package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

var recoverProjectRootFlag string

// recoverCmd represents the recover command.
var recoverCmd = newRecoverCmd()

func newRecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Restore files left mutated by a crashed run",
		Long: `Replay the backup journal of an interrupted run, restoring every file
that still carries an applied mutant. Safe to run when no journal exists.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindFlagToConfig(cmd.Flags().Lookup(projectRootFlagName), runProjectRootConfigKey)

			restored, err := orchestrator.Recover(cmd.Context(), m.Path(viper.GetString(runProjectRootConfigKey)))
			if err != nil {
				return err
			}

			if len(restored) == 0 {
				cmd.Println("Nothing to recover.")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&recoverProjectRootFlag, projectRootFlagName, "r", viper.GetString(runProjectRootConfigKey), "root of the project under test")

	return cmd
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
