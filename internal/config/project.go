package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the name of the per-project override file
const ProjectFile = ".bugrescue.yaml"

// ProjectOverrides holds per-project settings read from .bugrescue.yaml
// in the project root. All fields are optional.
type ProjectOverrides struct {
	// Commands maps a language name to a replacement run command.
	// The placeholder {file} expands to the target path.
	Commands map[string][]string `yaml:"commands"`

	// Ignore lists glob patterns (relative to the project root) that
	// the scanner skips.
	Ignore []string `yaml:"ignore"`

	// MaxAttempts overrides the configured attempt budget when > 0.
	MaxAttempts int `yaml:"max_attempts"`
}

// LoadProjectOverrides reads .bugrescue.yaml from root.
// A missing file yields empty overrides, not an error.
func LoadProjectOverrides(root string) (*ProjectOverrides, error) {
	path := filepath.Join(root, ProjectFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectOverrides{}, nil
		}
		return nil, err
	}

	var o ProjectOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectFile, err)
	}

	for lang, cmd := range o.Commands {
		if len(cmd) == 0 {
			return nil, fmt.Errorf("%s: empty command for language %q", ProjectFile, lang)
		}
	}

	return &o, nil
}

// Ignored reports whether rel matches any ignore pattern
func (o *ProjectOverrides) Ignored(rel string) bool {
	for _, pattern := range o.Ignore {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		// Also match against the basename so "*.gen.go" style
		// patterns work in subdirectories.
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
