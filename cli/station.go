package cli

import (
	"github.com/spf13/cobra"

	"github.com/trixelnet/contributor/pkg/sdk"
)

var stationSDKInstance sdk.SDK

// SetStationSDK sets the station SDK instance used by the commands.
func SetStationSDK(s sdk.SDK) {
	stationSDKInstance = s
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Station status",
		Long:  `Show the station's diagnostic snapshot: last cycle, outcome, trixel depth and registration health.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			status, err := stationSDKInstance.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}
}

func NewDeregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deregister",
		Short: "Deregister station",
		Long:  `Gracefully remove the measurement station from the trixel network and clear its persisted identity.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := stationSDKInstance.Deregister(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Successfully deregistered measurement station")
		},
	}
}
