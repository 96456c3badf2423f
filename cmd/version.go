package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netops-toolbox/supportwatch/internal/version"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print supportwatch version along with dependency information.",
	Run: func(_ *cobra.Command, args []string) {
		fmt.Printf(
			"commit: %s\nbranch: %s\ngit summary: %s\nbuildDate: %s\nversion: %s\nGo version: %s\noauth2 version: %s\n",
			version.GitCommit, version.GitBranch, version.GitSummary, version.BuildDate, version.AppVersion, version.GoVersion, version.OauthVersion)
	},
}

func init() {
	rootCmd.AddCommand(cmdVersion)
}
