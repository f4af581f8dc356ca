package version

import (
	"strings"

	semver "github.com/Masterminds/semver/v3"

	"github.com/bodhisearch/llamacheck/internal/buildinfo"
)

// CurrentVersion is defined in internal/buildinfo to avoid import cycles
var CurrentVersion = buildinfo.CurrentVersion

// FormatVersionForDisplay prefixes proper releases with "v" and leaves
// development builds alone.
func FormatVersionForDisplay(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" || trimmed == "dev" {
		return "dev"
	}
	if strings.HasPrefix(trimmed, "v") || strings.HasPrefix(trimmed, "V") {
		return "v" + trimmed[1:]
	}
	if _, err := semver.NewVersion(trimmed); err == nil {
		return "v" + trimmed
	}
	return trimmed
}

func normalizeForSemver(raw string) (string, *semver.Version) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed, nil
	}
	normalized := strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	parsed, err := semver.NewVersion(normalized)
	if err != nil {
		return normalized, nil
	}
	return normalized, parsed
}
