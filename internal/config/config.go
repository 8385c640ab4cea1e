package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Institution Institution `yaml:"institution"`
	Directory   Directory   `yaml:"directory"`
	Output      Output      `yaml:"output"`
	Report      Report      `yaml:"report"`
	Sentiment   Sentiment   `yaml:"sentiment"`
	Buckets     []Bucket    `yaml:"buckets"`
	KnownCodes  []string    `yaml:"known_codes"`
	Logging     Logging     `yaml:"logging"`
}

type Institution struct {
	Name   string `yaml:"name"`
	Office string `yaml:"office"`
	Survey string `yaml:"survey"`
}

// Directory points at the lecturer roster file.
type Directory struct {
	Path string `yaml:"path"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Report struct {
	Semester string `yaml:"semester"`
	Session  string `yaml:"session"`
}

type Sentiment struct {
	Enabled bool `yaml:"enabled"`
}

// Bucket names one academic-school grouping and the course-code prefixes
// that place a course in it. Prefix lists of different buckets may overlap.
type Bucket struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for srte.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "srte")
}

// DataDir returns the XDG data directory for srte.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "srte")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/srte/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'srte init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults and
// environment overrides.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Institution: Institution{
			Name:   "BABCOCK UNIVERSITY",
			Office: "OFFICE OF INSTITUTIONAL EFFECTIVENESS",
			Survey: "STUDENT RATING OF TEACHING EFFECTIVENESS (SRTE)",
		},
		Sentiment: Sentiment{Enabled: true},
		Logging:   Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides file values with SRTE_* environment variables.
// A .env file in the working directory is honoured if present.
func applyEnv(cfg *Config) {
	godotenv.Load()

	if v := os.Getenv("SRTE_DATA_DIR"); v != "" {
		cfg.Output.DataDir = v
	}
	if v := os.Getenv("SRTE_DIRECTORY"); v != "" {
		cfg.Directory.Path = v
	}
	if v := os.Getenv("SRTE_SENTIMENT"); v != "" {
		cfg.Sentiment.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DirectoryPath returns the lecturer roster location, defaulting to a
// lecturers.csv in the working directory.
func (c *Config) DirectoryPath() string {
	if c.Directory.Path != "" {
		return c.Directory.Path
	}
	return "lecturers.csv"
}

// KnownCodeSet returns the known course codes for the new-code check.
// When the config does not list them explicitly, the set is derived from
// the bucket prefixes by taking each prefix's alphabetic lead.
func (c *Config) KnownCodeSet() map[string]bool {
	set := make(map[string]bool)
	if len(c.KnownCodes) > 0 {
		for _, code := range c.KnownCodes {
			set[code] = true
		}
		return set
	}
	for _, b := range c.Buckets {
		for _, p := range b.Prefixes {
			if lead := alphaLead(p); lead != "" {
				set[lead] = true
			}
		}
	}
	return set
}

// alphaLead cuts a prefix at its first digit.
func alphaLead(s string) string {
	for i, r := range s {
		if r >= '0' && r <= '9' {
			return s[:i]
		}
	}
	return s
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
