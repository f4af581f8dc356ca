package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of llamacheck",
	Run: func(cmd *cobra.Command, args []string) {
		OutputInfoPlain("llamacheck %s", version.FormatVersionForDisplay(version.CurrentVersion))
	},
}

var versionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check GitHub for a newer llamacheck release",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := version.MaybeCheckForUpgrade(true)
		if err != nil {
			return err
		}
		if info == nil {
			OutputInfo("No release information available")
			return nil
		}
		OutputInfo("Current version: %s", info.CurrentVersion)
		OutputInfo("Latest release:  %s (%s)", info.LatestVersion, info.ReleaseURL)
		if info.UpdateAvailable {
			OutputInfo("An update is available")
		} else {
			OutputSuccess("You are up to date")
		}
		return nil
	},
}

func init() {
	versionCmd.AddCommand(versionCheckCmd)
	rootCmd.AddCommand(versionCmd)
}
