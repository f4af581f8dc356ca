package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bodhisearch/llamacheck/cmd/harness"
	"github.com/bodhisearch/llamacheck/cmd/utils"
)

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105"))
	reportPassStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	reportFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	reportDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	reportBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

// renderRunReport prints the run summary box.
func renderRunReport(report *harness.RunReport) {
	var b strings.Builder

	b.WriteString(reportTitleStyle.Render("Compatibility Run " + report.ID[:8]))
	b.WriteString("\n\n")

	writeField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(reportDimStyle.Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	writeField("Variant", report.Variant)
	writeField("Release", report.Release)
	writeField("Model", report.Model)
	writeField("Features", strings.Join(report.Features, ", "))
	writeField("Duration", utils.FormatDuration(report.TotalDuration().Seconds()))

	if len(report.Checks) > 0 {
		b.WriteString("\n")
		for _, check := range report.Checks {
			marker := reportPassStyle.Render("PASS")
			if !check.Passed {
				marker = reportFailStyle.Render("FAIL")
			}
			b.WriteString(fmt.Sprintf("%s  %-18s %s\n", marker, check.Name,
				reportDimStyle.Render(utils.FormatDuration(check.Duration.Seconds()))))
			if check.Detail != "" {
				b.WriteString(reportDimStyle.Render("      " + check.Detail))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	switch report.Outcome {
	case harness.OutcomePass:
		b.WriteString(reportPassStyle.Render("Result: PASS"))
	case harness.OutcomeCPUIncompat:
		b.WriteString(reportFailStyle.Render("Result: CPU INCOMPATIBLE"))
	default:
		b.WriteString(reportFailStyle.Render("Result: " + strings.ToUpper(report.Outcome)))
	}
	if report.Failure != "" {
		b.WriteString("\n")
		b.WriteString(reportDimStyle.Render(firstLine(report.Failure)))
	}

	fmt.Println(reportBoxStyle.Render(b.String()))
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
