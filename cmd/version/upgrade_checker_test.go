package version

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizeForSemver(t *testing.T) {
	tests := []struct {
		input    string
		want     string
		isSemver bool
	}{
		{"v1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.3", true},
		{"V2.0.0", "2.0.0", true},
		{"dev", "dev", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, parsed := normalizeForSemver(tt.input)
		if got != tt.want {
			t.Errorf("normalizeForSemver(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if (parsed != nil) != tt.isSemver {
			t.Errorf("normalizeForSemver(%q) semver = %v, want %v", tt.input, parsed != nil, tt.isSemver)
		}
	}
}

func TestFormatVersionForDisplay(t *testing.T) {
	tests := []struct{ input, want string }{
		{"dev", "dev"},
		{"", "dev"},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
		{"feature-branch", "feature-branch"},
	}
	for _, tt := range tests {
		if got := FormatVersionForDisplay(tt.input); got != tt.want {
			t.Errorf("FormatVersionForDisplay(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestShouldCheckForUpgrade(t *testing.T) {
	now := time.Now()

	if !shouldCheckForUpgrade(now, upgradeState{}) {
		t.Error("zero state must trigger a check")
	}
	if shouldCheckForUpgrade(now, upgradeState{LastChecked: now.Add(-time.Hour)}) {
		t.Error("recent check must suppress a new one")
	}
	if !shouldCheckForUpgrade(now, upgradeState{LastChecked: now.Add(-7 * time.Hour)}) {
		t.Error("stale check must trigger a new one")
	}
}

func TestBuildUpgradeInfoComparesVersions(t *testing.T) {
	orig := CurrentVersion
	t.Cleanup(func() { CurrentVersion = orig })

	CurrentVersion = "1.0.0"
	info := buildUpgradeInfo(&releaseInfo{TagName: "v1.1.0", HTMLURL: "https://example.com"})
	if !info.UpdateAvailable {
		t.Error("newer release must flag an update")
	}
	if !info.CurrentVersionIsSemver {
		t.Error("1.0.0 is semver")
	}

	info = buildUpgradeInfo(&releaseInfo{TagName: "v1.0.0", HTMLURL: "https://example.com"})
	if info.UpdateAvailable {
		t.Error("same version must not flag an update")
	}

	CurrentVersion = "dev"
	info = buildUpgradeInfo(&releaseInfo{TagName: "v9.9.9", HTMLURL: "https://example.com"})
	if info.UpdateAvailable || info.CurrentVersionIsSemver {
		t.Error("dev builds never flag an update")
	}
}

func TestMaybeCheckForUpgradeThrottles(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "upgrade_state.json")
	t.Setenv(upgradeStateEnvVar, statePath)

	orig := timeNow
	t.Cleanup(func() { timeNow = orig })
	now := time.Now()
	timeNow = func() time.Time { return now }

	// Seed a fresh state file; a non-forced check must return without any
	// network traffic.
	if err := persistUpgradeState(statePath, upgradeState{LastChecked: now, LatestVersion: "v1.0.0"}); err != nil {
		t.Fatalf("persistUpgradeState: %v", err)
	}

	info, err := MaybeCheckForUpgrade(false)
	if err != nil {
		t.Fatalf("MaybeCheckForUpgrade: %v", err)
	}
	if info != nil {
		t.Errorf("throttled check returned info: %+v", info)
	}
}

func TestUpgradeStateRoundTrip(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "upgrade_state.json")
	t.Setenv(upgradeStateEnvVar, statePath)

	now := time.Now().UTC().Truncate(time.Second)
	if err := persistUpgradeState(statePath, upgradeState{LastChecked: now, LatestVersion: "v2.1.0"}); err != nil {
		t.Fatalf("persistUpgradeState: %v", err)
	}

	state, path, err := readUpgradeState()
	if err != nil {
		t.Fatalf("readUpgradeState: %v", err)
	}
	if path != statePath {
		t.Errorf("state path = %s, want %s", path, statePath)
	}
	if !state.LastChecked.Equal(now) || state.LatestVersion != "v2.1.0" {
		t.Errorf("state = %+v", state)
	}
}

func TestReadUpgradeStateMissingFile(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "upgrade_state.json")
	t.Setenv(upgradeStateEnvVar, statePath)

	state, _, err := readUpgradeState()
	if err != nil {
		t.Fatalf("missing state file must not error: %v", err)
	}
	if !state.LastChecked.IsZero() {
		t.Errorf("missing file should give zero state, got %+v", state)
	}
	if _, statErr := os.Stat(statePath); !os.IsNotExist(statErr) {
		t.Error("read must not create the state file")
	}
}
