package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bodhisearch/llamacheck/cmd/harness"
)

var detectShowAll bool
var detectConfigDir string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Probe CPU features and show which server variant would run here",
	RunE: func(cmd *cobra.Command, args []string) error {
		probe := harness.ProbeFeatures()
		for _, w := range probe.Warnings {
			OutputWarning("%s", w)
		}

		OutputInfoPlain("CPU features: %s", probe.Features.String())

		// Same catalog resolution as run, so detect reports the variant
		// the suite would actually launch.
		catalog, err := catalogFromConfig(loadSuiteConfig(detectConfigDir))
		if err != nil {
			return err
		}
		match := harness.SelectVariant(catalog, probe.Features)
		if match == nil {
			OutputError("No compatible server variant for this CPU")
			return nil
		}

		OutputSuccess("Selected variant: %s (%s)", match.Variant, match.Description)
		if len(match.Additional) > 0 {
			OutputInfoPlain("Unused features: %s", featureList(match.Additional))
		}

		if detectShowAll {
			OutputInfoPlain("%s", renderVariantTable(probe.Features, catalog))
		}
		return nil
	},
}

// renderVariantTable shows every catalog entry and whether this host
// satisfies its requirements, in selection order.
func renderVariantTable(features harness.FeatureSet, catalog []harness.VariantSpec) string {
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	noStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	var b strings.Builder
	b.WriteString("\nVariant catalog (most specific first):\n")
	for _, spec := range catalog {
		marker := noStyle.Render("✗")
		if features.ContainsAll(spec.Required) {
			marker = okStyle.Render("✓")
		}
		b.WriteString("  ")
		b.WriteString(marker)
		b.WriteString(" ")
		b.WriteString(spec.Name)
		if len(spec.Required) > 0 {
			b.WriteString(" (requires ")
			b.WriteString(spec.Required.String())
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func featureList(features []harness.Feature) string {
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

func init() {
	detectCmd.Flags().BoolVar(&detectShowAll, "all", false, "Show the full variant catalog with per-variant support")
	detectCmd.Flags().StringVar(&detectConfigDir, "config-dir", ".", "Directory to search for a llamacheck config file")
	rootCmd.AddCommand(detectCmd)
}
