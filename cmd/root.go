package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/netops-toolbox/supportwatch/internal/app"
)

var (
	cfgFile string
	debug   bool
	trace   bool
)

var rootCmd = &cobra.Command{
	Use:   "supportwatch",
	Short: "supportwatch aggregates vendor support data for inventory devices",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func logLevel() int {
	switch {
	case trace:
		return app.LogLevelTrace
	case debug:
		return app.LogLevelDebug
	default:
		return app.LogLevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "enable trace logging")
}
