package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/netops-toolbox/supportwatch/internal/app"
)

var cmdTestConnection = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify support API connectivity by performing a token exchange",
	Run: func(cmd *cobra.Command, args []string) {
		runTestConnection(cmd.Context())
	},
}

func runTestConnection(ctx context.Context) {
	theApp, err := app.New(cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	aggregator, err := initAggregator(theApp)
	if err != nil {
		theApp.Logger.Fatal(err)
	}

	status := aggregator.TestConnection(ctx)
	if !status.Success {
		theApp.Logger.Fatal(status.Message)
	}

	theApp.Logger.Info(status.Message)
}

func init() {
	rootCmd.AddCommand(cmdTestConnection)
}
