package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses a ProblemFile from YAML (or JSON) bytes and validates it.
// This is used for APIs where the problem is provided as payload (not via filesystem).
func ParseConfigYAML(data []byte) (*ProblemFile, error) {
	var cfg ProblemFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ParseConfigYAMLString parses a ProblemFile from a YAML string and validates it.
func ParseConfigYAMLString(yamlText string) (*ProblemFile, error) {
	return ParseConfigYAML([]byte(yamlText))
}
