package check

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/trackprogress/pkg/config"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "validates driveline and trace files",
		Long: `Validates the driveline given by --driveline in strict mode.
Use the subcommands for more detailed checks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := checkDriveline(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&config.DrivelineFile,
		"driveline",
		"driveline.yml",
		"driveline file")
	cmd.PersistentFlags().Float64Var(&toleranceFactor,
		"tolerance-factor",
		0.2,
		"widens the track corridor used for the sticky sector test")

	cmd.AddCommand(NewCheckDrivelineCmd())
	cmd.AddCommand(NewCheckTraceCmd())
	return cmd
}

var toleranceFactor float64
