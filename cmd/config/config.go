package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"
)

// Config file constants (searched in this order)
var SupportedConfigFiles = []string{
	"llamacheck.yaml",
	"llamacheck.yml",
	"llamacheck.toml",
	"llamacheck.json",
}

// LoadConfig loads a llamacheck config file from the specified directory.
func LoadConfig(configDir string) (*SuiteConfig, error) {
	if configDir == "" {
		return nil, fmt.Errorf("config directory is required")
	}

	foundFile, err := FindConfigFile(configDir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(foundFile)
}

// LoadConfigFile loads a specific llamacheck config file, picking the parser
// from the file extension.
func LoadConfigFile(filePath string) (*SuiteConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	fileExt := strings.ToLower(filepath.Ext(filePath))

	var config SuiteConfig
	switch fileExt {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filePath, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file %s: %w", filePath, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file %s: %w", filePath, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", fileExt)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}

	return &config, nil
}

// FindConfigFile searches for llamacheck config files (yaml/toml/json) in the
// specified directory.
func FindConfigFile(searchPath string) (string, error) {
	if searchPath == "" {
		return "", fmt.Errorf("search path is required")
	}

	for _, configFile := range SupportedConfigFiles {
		fullPath := filepath.Join(searchPath, configFile)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("no llamacheck config file (yaml/toml/json) found in %s", searchPath)
}

// IsConfigFile checks if the given file path is a llamacheck config file.
func IsConfigFile(filePath string) bool {
	baseName := filepath.Base(filePath)

	for _, configFile := range SupportedConfigFiles {
		if baseName == configFile {
			return true
		}
	}
	return false
}

// SaveConfig writes a config as YAML.
func SaveConfig(config *SuiteConfig, configPath string) error {
	if configPath == "" {
		configPath = "llamacheck.yaml"
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects configs whose overrides cannot be applied.
func (c *SuiteConfig) Validate() error {
	seen := make(map[string]bool, len(c.Variants))
	for i, v := range c.Variants {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("variants[%d]: name is required", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("variants[%d]: duplicate variant name %q", i, v.Name)
		}
		seen[v.Name] = true
	}
	for i, p := range c.CrashPatterns {
		if strings.TrimSpace(p.Substring) == "" {
			return fmt.Errorf("crash_patterns[%d]: substring is required", i)
		}
	}
	if (c.Release.Owner == "") != (c.Release.Repo == "") {
		return fmt.Errorf("release: owner and repo must be set together")
	}
	if (c.Model.Repo == "") != (c.Model.File == "") {
		return fmt.Errorf("model: repo and file must be set together")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	return nil
}
