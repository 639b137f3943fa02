package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/trixelnet/contributor/cli"
	"github.com/trixelnet/contributor/pkg/sdk"
)

const defStationURL = "http://localhost:7080"

func main() {
	var stationURL string

	rootCmd := &cobra.Command{
		Use:   "contributor-cli",
		Short: "Contributor CLI",
		Long:  `Contributor CLI is a command line interface for managing a trixel network contribution station.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				StationURL: stationURL,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetStationSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&stationURL,
		"station-url",
		"s",
		defStationURL,
		"URL of the running station's diagnostic API",
	)

	rootCmd.AddCommand(cli.NewStatusCmd())
	rootCmd.AddCommand(cli.NewDeregisterCmd())
	rootCmd.AddCommand(cli.NewProvisionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
