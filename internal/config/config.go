package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds deployment settings loaded from farmops.yml.
type ProjectConfig struct {
	DBPath         string   `yaml:"dbPath,omitempty"`
	ListenAddr     string   `yaml:"listenAddr,omitempty"`
	DefaultUnit    string   `yaml:"defaultUnit,omitempty"`
	SeedCategories []string `yaml:"seedCategories,omitempty"` // chained in list order
	Verbose        bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read farmops.yml or farmops.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"farmops.yml", "farmops.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
