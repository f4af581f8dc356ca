package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/harness"
	"github.com/bodhisearch/llamacheck/cmd/utils"
	"github.com/bodhisearch/llamacheck/internal/buildinfo"
	"github.com/bodhisearch/llamacheck/internal/tui"
)

// Default GitHub repository publishing the prebuilt server binaries.
const (
	DefaultReleaseOwner = "bodhisearch"
	DefaultReleaseRepo  = "llama-server-binaries"
)

var releaseOwner string
var releaseRepo string
var releaseTag string

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Manage cached llama-server binaries",
}

var artifactsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the latest release of server binaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := harness.NewStore()
		if err != nil {
			return err
		}

		progress := tui.StartDownloadProgram()
		store.Progress = progress.Report
		releaseDir, tag, err := store.EnsureArtifacts(releaseOwner, releaseRepo, releaseTag)
		progress.Stop()
		if err != nil {
			return err
		}

		paths, err := store.ListArtifacts(releaseDir)
		if err != nil {
			return err
		}
		OutputSuccess("Release %s: %d binaries in %s", tag, len(paths), releaseDir)
		return nil
	},
}

var artifactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached server binaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		artifactsDir, err := utils.GetArtifactsDir()
		if err != nil {
			return err
		}

		entries, err := os.ReadDir(artifactsDir)
		if os.IsNotExist(err) || (err == nil && len(entries) == 0) {
			OutputInfo("No cached artifacts; run 'llamacheck artifacts pull' first")
			return nil
		}
		if err != nil {
			return err
		}

		store := &harness.Store{ArtifactsDir: artifactsDir}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			releaseDir := filepath.Join(artifactsDir, entry.Name())
			paths, err := store.ListArtifacts(releaseDir)
			if err != nil {
				continue
			}
			OutputInfoPlain("%s:", entry.Name())
			for _, p := range paths {
				info, err := os.Stat(p)
				size := "?"
				if err == nil {
					size = utils.FormatBytes(info.Size())
				}
				OutputInfoPlain("  %s (%s)", filepath.Base(p), size)
			}
		}
		return nil
	},
}

var artifactsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all cached server binaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		artifactsDir, err := utils.GetArtifactsDir()
		if err != nil {
			return err
		}
		if err := os.RemoveAll(artifactsDir); err != nil {
			return fmt.Errorf("failed to clean artifacts cache: %w", err)
		}
		OutputSuccess("Removed %s", artifactsDir)
		return nil
	},
}

func init() {
	artifactsCmd.PersistentFlags().StringVar(&releaseOwner, "release-owner", DefaultReleaseOwner, "GitHub owner of the server binaries repository")
	artifactsCmd.PersistentFlags().StringVar(&releaseRepo, "release-repo", DefaultReleaseRepo, "GitHub repository publishing the server binaries")
	artifactsCmd.PersistentFlags().StringVar(&releaseTag, "release-tag", buildinfo.LlamaServerRelease, "Release tag to pull (default: latest)")
	artifactsCmd.AddCommand(artifactsPullCmd)
	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsCleanCmd)
	rootCmd.AddCommand(artifactsCmd)
}
