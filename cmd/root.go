package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/utils"
	"github.com/bodhisearch/llamacheck/cmd/version"
)

var debug bool
var cacheDirOverride string
var noEmoji bool

var rootCmd = &cobra.Command{
	Use:   "llamacheck",
	Short: "Compatibility harness for prebuilt llama-server binaries",
	Long: `llamacheck verifies that a prebuilt llama-server binary actually runs on
this machine. It probes the CPU's instruction set extensions, picks the
most specific binary variant the hardware supports, boots it against a
small model and exercises its HTTP endpoints.

Getting started:
  # See what this CPU supports and which variant would be picked
  llamacheck detect

  # Run the full compatibility suite
  llamacheck run`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags are parsed at this point; honor --debug
		if debug {
			if err := utils.InitDebugLogger("", true); err != nil {
				return err
			}
		}
		if cacheDirOverride != "" {
			os.Setenv("LLAMACHECK_CACHE_DIR", cacheDirOverride)
		}
		if noEmoji {
			SetEmojiEnabled(false)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cmd != nil && cmd.Name() == "version" {
			return nil
		}

		info, err := version.MaybeCheckForUpgrade(false)
		if err != nil {
			utils.LogDebug(fmt.Sprintf("skipping upgrade notification: %v", err))
			return nil
		}
		if info != nil && info.UpdateAvailable && info.CurrentVersionIsSemver {
			fmt.Fprintf(os.Stderr, "🚀 A new llamacheck release (%s) is available: %s\n", info.LatestVersion, info.ReleaseURL)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer utils.CloseDebugLogger()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&cacheDirOverride, "cache-dir", "", "Override the cache directory for binaries, models and reports")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "Disable emoji prefixes in output")
}
