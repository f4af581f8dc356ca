package config

// SuiteConfig is the llamacheck configuration. Every field is optional; the
// zero value runs the suite with built-in defaults.
type SuiteConfig struct {
	Version string        `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty"`
	Release ReleaseConfig `yaml:"release,omitempty" toml:"release,omitempty" json:"release,omitempty"`
	Model   ModelConfig   `yaml:"model,omitempty" toml:"model,omitempty" json:"model,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty" toml:"server,omitempty" json:"server,omitempty"`

	// Variants overrides the built-in variant catalog when non-empty.
	// Order matters: the first variant whose required features are all
	// present on the host is selected.
	Variants []VariantConfig `yaml:"variants,omitempty" toml:"variants,omitempty" json:"variants,omitempty"`

	// CrashPatterns extends the built-in stderr patterns that classify an
	// exit as a CPU compatibility failure.
	CrashPatterns []CrashPatternConfig `yaml:"crash_patterns,omitempty" toml:"crash_patterns,omitempty" json:"crash_patterns,omitempty"`

	// Prompt overrides the text sent by the completion checks.
	Prompt string `yaml:"prompt,omitempty" toml:"prompt,omitempty" json:"prompt,omitempty"`
}

// ReleaseConfig names the GitHub repository whose latest release provides
// the server binaries.
type ReleaseConfig struct {
	Owner string `yaml:"owner,omitempty" toml:"owner,omitempty" json:"owner,omitempty"`
	Repo  string `yaml:"repo,omitempty" toml:"repo,omitempty" json:"repo,omitempty"`
	Tag   string `yaml:"tag,omitempty" toml:"tag,omitempty" json:"tag,omitempty"`
}

// ModelConfig names the Hugging Face model to run the checks with.
type ModelConfig struct {
	Repo string `yaml:"repo,omitempty" toml:"repo,omitempty" json:"repo,omitempty"`
	File string `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
}

// ServerConfig tunes the launched server process.
type ServerConfig struct {
	Port            int `yaml:"port,omitempty" toml:"port,omitempty" json:"port,omitempty"`
	ContextSize     int `yaml:"context_size,omitempty" toml:"context_size,omitempty" json:"context_size,omitempty"`
	GPULayers       int `yaml:"gpu_layers,omitempty" toml:"gpu_layers,omitempty" json:"gpu_layers,omitempty"`
	BatchSize       int `yaml:"batch_size,omitempty" toml:"batch_size,omitempty" json:"batch_size,omitempty"`
	PollIntervalMS  int `yaml:"poll_interval_ms,omitempty" toml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty"`
	MaxPollAttempts int `yaml:"max_poll_attempts,omitempty" toml:"max_poll_attempts,omitempty" json:"max_poll_attempts,omitempty"`
}

// VariantConfig is one catalog entry in a user-supplied variant list.
type VariantConfig struct {
	Name        string   `yaml:"name" toml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Required    []string `yaml:"required" toml:"required" json:"required"`
}

// CrashPatternConfig is one user-supplied stderr pattern.
type CrashPatternConfig struct {
	Substring string `yaml:"substring" toml:"substring" json:"substring"`
	Reason    string `yaml:"reason,omitempty" toml:"reason,omitempty" json:"reason,omitempty"`
}
