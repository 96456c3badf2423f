package cmd

import (
	"context"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/netops-toolbox/supportwatch/internal/app"
	"github.com/netops-toolbox/supportwatch/internal/metrics"
	"github.com/netops-toolbox/supportwatch/internal/server"
	"github.com/netops-toolbox/supportwatch/internal/version"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Serve the support lookup HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) {
	theApp, err := app.New(cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	// serve metrics endpoint
	metrics.ListenAndServe()
	version.ExportBuildInfoMetric()

	// Setup cancel context with cancel func.
	ctx, cancelFunc := context.WithCancel(ctx)

	// routine listens for termination signal and cancels the context
	go func() {
		<-theApp.TermCh
		theApp.Logger.Info("got TERM signal, exiting...")
		cancelFunc()
	}()

	aggregator, err := initAggregator(theApp)
	if err != nil {
		theApp.Logger.Fatal(err)
	}

	httpServer := server.New(aggregator, theApp.Config.ListenAddress, theApp.Logger)

	if err := httpServer.Run(ctx); err != nil && err != http.ErrServerClosed {
		theApp.Logger.Fatal(err)
	}
}

func init() {
	rootCmd.AddCommand(cmdServe)
}
