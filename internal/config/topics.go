package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// topicsYAML is the layout of the hot-topics file.
type topicsYAML struct {
	Texts []string `yaml:"texts"`
}

// LoadHotTopics reads the education hot topics listed in c.HotTopicsFile.
// An unset path yields no topics.
func (c Config) LoadHotTopics() ([]string, error) {
	if c.HotTopicsFile == "" {
		return nil, nil
	}
	return loadTextsFromYAML(c.HotTopicsFile)
}

// loadTextsFromYAML loads the non-blank text entries of a YAML file.
func loadTextsFromYAML(filePath string) ([]string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}
	// #nosec G304 -- operator-provided configuration path
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var doc topicsYAML
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	out := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no texts found in config file: %s", filePath)
	}
	return out, nil
}
