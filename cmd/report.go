package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Pretty-print a results artifact",
		Long: `Read a previously written results artifact and print the undetected
mutants with their diffs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resultSet, err := resultStore.Load(m.Path(viper.GetString(outputFlagName)))
			if err != nil {
				return err
			}

			ui.DisplayResultSet(cmd.Context(), resultSet)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
