package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vulndesk/vulndesk/pkg/defaults"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vulndesk version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s/%s)\n",
			defaults.ToolName, defaults.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
