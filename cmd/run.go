package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/config"
	"github.com/bodhisearch/llamacheck/cmd/harness"
	"github.com/bodhisearch/llamacheck/cmd/utils"
	"github.com/bodhisearch/llamacheck/internal/buildinfo"
	"github.com/bodhisearch/llamacheck/internal/tui"
)

var runConfigDir string
var runVariant string
var runPort int
var runNoProgress bool
var runWatch bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full compatibility suite against this machine",
	Long: `Run probes the CPU, selects the most specific prebuilt llama-server
variant it supports, downloads that binary and a small test model, boots
the server and exercises its HTTP endpoints. The suite fails when the
binary crashes, never becomes healthy, or any endpoint check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runWatch {
			return watchAndRun(runConfigDir)
		}
		return executeSuite(loadSuiteConfig(runConfigDir))
	},
}

// loadSuiteConfig reads the optional suite config; a missing file means
// defaults, a broken file is only warned about.
func loadSuiteConfig(dir string) *config.SuiteConfig {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		utils.LogDebug(fmt.Sprintf("no usable suite config in %s: %v", dir, err))
		return &config.SuiteConfig{}
	}
	return cfg
}

func executeSuite(cfg *config.SuiteConfig) error {
	report := harness.NewRunReport()
	sys := harness.CollectSystemInfo()
	report.System = &sys

	// 1. Probe the CPU.
	probe := harness.ProbeFeatures()
	for _, w := range probe.Warnings {
		OutputWarning("%s", w)
	}
	for _, f := range probe.Features.Sorted() {
		report.Features = append(report.Features, string(f))
	}
	OutputInfo("CPU features: %s", probe.Features.String())

	// 2. Select a variant.
	catalog, err := catalogFromConfig(cfg)
	if err != nil {
		return err
	}
	match := harness.SelectVariant(catalog, probe.Features)
	if match == nil {
		report.Fail(harness.OutcomeStartupFailed, "no compatible server variant for this CPU")
		finishReport(report)
		return fmt.Errorf("no compatible server variant for this CPU")
	}
	if runVariant != "" {
		OutputWarning("Forcing variant %s (detected %s)", runVariant, match.Variant)
		match.Variant = runVariant
	}
	report.Variant = match.Variant
	OutputInfo("Selected variant: %s (%s)", match.Variant, match.Description)

	// 3. Fetch the binary and the model.
	store, err := harness.NewStore()
	if err != nil {
		return err
	}
	var progress *tui.DownloadProgram
	if !runNoProgress {
		progress = tui.StartDownloadProgram()
		store.Progress = progress.Report
	}

	owner, repo := releaseOwner, releaseRepo
	if cfg.Release.Owner != "" {
		owner, repo = cfg.Release.Owner, cfg.Release.Repo
	}
	pin := cfg.Release.Tag
	if pin == "" {
		pin = buildinfo.LlamaServerRelease
	}
	releaseDir, tag, err := store.EnsureArtifacts(owner, repo, pin)
	if err == nil {
		report.Release = tag
		report.Binary, err = store.FindArtifact(releaseDir, match.Variant)
	}

	mRepo, mFile := modelRepoOrDefault(cfg)
	if err == nil {
		report.Model, err = store.EnsureModel(mRepo, mFile)
	}
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		report.Fail(harness.OutcomeStartupFailed, err.Error())
		finishReport(report)
		return err
	}

	// 4. Boot the server.
	opts := harness.ServerOptions{
		Port:            firstNonZero(runPort, cfg.Server.Port),
		ContextSize:     cfg.Server.ContextSize,
		GPULayers:       cfg.Server.GPULayers,
		BatchSize:       cfg.Server.BatchSize,
		MaxPollAttempts: cfg.Server.MaxPollAttempts,
		CrashPatterns:   crashPatternsFromConfig(cfg),
	}
	if cfg.Server.PollIntervalMS > 0 {
		opts.PollInterval = time.Duration(cfg.Server.PollIntervalMS) * time.Millisecond
	}

	server, err := harness.NewServer(report.Binary, report.Model, opts)
	if err != nil {
		report.Fail(harness.OutcomeStartupFailed, err.Error())
		finishReport(report)
		return err
	}
	// Every exit path below, panics included, must tear the server down.
	defer func() {
		if err := server.Cleanup(); err != nil {
			OutputWarning("Server shutdown was not clean: %v", err)
		}
	}()

	OutputProgress("Starting %s on port %d", match.Variant, server.Port())
	if err := server.Setup(); err != nil {
		report.Fail(classifyStartupFailure(err), err.Error())
		finishReport(report)
		renderRunReport(report)
		return err
	}

	// 5. Exercise the endpoints; the deferred Cleanup tears the server down.
	checks := harness.DefaultChecks(cfg.Prompt)
	report.Checks = harness.RunChecks(utils.GetHTTPClientWithTimeout(2*time.Minute), server.URL(), checks)

	finishReport(report)
	renderRunReport(report)

	if report.Outcome != harness.OutcomePass {
		return fmt.Errorf("compatibility suite failed: %s", report.Outcome)
	}
	return nil
}

func classifyStartupFailure(err error) string {
	var exited *harness.ProcessExitedError
	if errors.As(err, &exited) && exited.CPUCompat {
		return harness.OutcomeCPUIncompat
	}
	return harness.OutcomeStartupFailed
}

func finishReport(report *harness.RunReport) {
	report.Finish()
	path, err := report.Save()
	if err != nil {
		OutputWarning("Could not save run report: %v", err)
		return
	}
	OutputDebug("Run report saved to %s", path)
}

// catalogFromConfig validates and converts a user-supplied variant list, or
// returns the built-in catalog.
func catalogFromConfig(cfg *config.SuiteConfig) ([]harness.VariantSpec, error) {
	if len(cfg.Variants) == 0 {
		return harness.DefaultVariantCatalog, nil
	}
	catalog := make([]harness.VariantSpec, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		required := harness.NewFeatureSet()
		for _, token := range v.Required {
			f, ok := harness.ParseFeature(token)
			if !ok {
				return nil, fmt.Errorf("variant %s: unknown CPU feature %q", v.Name, token)
			}
			required[f] = struct{}{}
		}
		catalog = append(catalog, harness.VariantSpec{
			Name:        v.Name,
			Description: v.Description,
			Required:    required,
		})
	}
	return catalog, nil
}

func crashPatternsFromConfig(cfg *config.SuiteConfig) []harness.CrashPattern {
	if len(cfg.CrashPatterns) == 0 {
		return nil
	}
	patterns := make([]harness.CrashPattern, 0, len(harness.DefaultCrashPatterns)+len(cfg.CrashPatterns))
	patterns = append(patterns, harness.DefaultCrashPatterns...)
	for _, p := range cfg.CrashPatterns {
		reason := p.Reason
		if reason == "" {
			reason = p.Substring
		}
		patterns = append(patterns, harness.CrashPattern{Substring: p.Substring, Reason: reason})
	}
	return patterns
}

func modelRepoOrDefault(cfg *config.SuiteConfig) (string, string) {
	if cfg.Model.Repo != "" {
		return cfg.Model.Repo, cfg.Model.File
	}
	return modelRepo, modelFile
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// watchAndRun reruns the suite every time the config file in dir changes.
// Editors fire several events per save, so reruns are debounced.
func watchAndRun(dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	runOnce := func() {
		cfg := loadSuiteConfig(dir)
		if err := executeSuite(cfg); err != nil {
			OutputError("%v", err)
		}
	}

	OutputInfo("Watching %s for config changes (ctrl+c to stop)", dir)
	runOnce()

	var timer *time.Timer
	rerun := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !config.IsConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})
		case <-rerun:
			OutputInfo("Config changed; rerunning suite")
			runOnce()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			OutputWarning("Watcher error: %v", watchErr)
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&runConfigDir, "config-dir", ".", "Directory to search for a llamacheck config file")
	runCmd.Flags().StringVar(&runVariant, "variant", "", "Force a specific variant instead of the detected one")
	runCmd.Flags().IntVar(&runPort, "port", 0, "Fixed server port (default: random free port)")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Disable the download progress display")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Rerun the suite whenever the config file changes")
	runCmd.Flags().StringVar(&releaseOwner, "release-owner", DefaultReleaseOwner, "GitHub owner of the server binaries repository")
	runCmd.Flags().StringVar(&releaseRepo, "release-repo", DefaultReleaseRepo, "GitHub repository publishing the server binaries")
	runCmd.Flags().StringVar(&modelRepo, "model-repo", harness.DefaultModelRepo, "Hugging Face repository of the test model")
	runCmd.Flags().StringVar(&modelFile, "model-file", harness.DefaultModelFile, "Model file within the repository")
	rootCmd.AddCommand(runCmd)
}
