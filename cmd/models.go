package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/harness"
	"github.com/bodhisearch/llamacheck/cmd/utils"
	"github.com/bodhisearch/llamacheck/internal/tui"
)

var modelRepo string
var modelFile string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage cached GGUF models",
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the test model from Hugging Face",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := harness.NewStore()
		if err != nil {
			return err
		}

		progress := tui.StartDownloadProgram()
		store.Progress = progress.Report
		path, err := store.EnsureModel(modelRepo, modelFile)
		progress.Stop()
		if err != nil {
			return err
		}

		OutputSuccess("Model ready at %s", path)
		return nil
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached models",
	RunE: func(cmd *cobra.Command, args []string) error {
		modelsDir, err := utils.GetModelsDir()
		if err != nil {
			return err
		}

		found := false
		err = filepath.WalkDir(modelsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".gguf") {
				return nil
			}
			found = true
			rel, _ := filepath.Rel(modelsDir, path)
			info, statErr := d.Info()
			size := "?"
			if statErr == nil {
				size = utils.FormatBytes(info.Size())
			}
			OutputInfoPlain("%s (%s)", rel, size)
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if !found {
			OutputInfo("No cached models; run 'llamacheck models pull' first")
		}
		return nil
	},
}

var modelsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all cached models",
	RunE: func(cmd *cobra.Command, args []string) error {
		modelsDir, err := utils.GetModelsDir()
		if err != nil {
			return err
		}
		if err := os.RemoveAll(modelsDir); err != nil {
			return fmt.Errorf("failed to clean models cache: %w", err)
		}
		OutputSuccess("Removed %s", modelsDir)
		return nil
	},
}

func init() {
	modelsCmd.PersistentFlags().StringVar(&modelRepo, "model-repo", harness.DefaultModelRepo, "Hugging Face repository of the test model")
	modelsCmd.PersistentFlags().StringVar(&modelFile, "model-file", harness.DefaultModelFile, "Model file within the repository")
	modelsCmd.AddCommand(modelsPullCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsCleanCmd)
	rootCmd.AddCommand(modelsCmd)
}
