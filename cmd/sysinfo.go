package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/harness"
)

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Show host OS, CPU and memory details",
	Run: func(cmd *cobra.Command, args []string) {
		info := harness.CollectSystemInfo()
		OutputInfoPlain("%s", info.Format())
	},
}

func init() {
	rootCmd.AddCommand(sysinfoCmd)
}
