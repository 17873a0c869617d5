package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/journals/internal/extract"
	"github.com/TobiSchelling/journals/internal/fetch"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Feeds   []Feed  `yaml:"feeds"`
	Fetch   Fetch   `yaml:"fetch"`
	Extract Extract `yaml:"extract"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Feed is a feed loaded when a session starts.
type Feed struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`
	Name string `yaml:"name"`
}

// Location returns the URL or file the feed is read from.
func (f Feed) Location() string {
	if f.URL != "" {
		return f.URL
	}
	return f.File
}

type Fetch struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int           `yaml:"max_body_bytes"`
}

type Extract struct {
	MetaName    string   `yaml:"meta_name"`
	AnchorTags  []string `yaml:"anchor_tags"`
	AnchorWord  string   `yaml:"anchor_word"`
	SiblingTags []string `yaml:"sibling_tags"`
	StopTags    []string `yaml:"stop_tags"`
	StopWord    string   `yaml:"stop_word"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for journals.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "journals")
}

// DataDir returns the XDG data directory for journals.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "journals")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/journals/config.yaml > ./config.yaml.
// An empty path with no error means no file exists and defaults apply.
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

	return "", nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads and parses a config YAML file. An empty path yields the
// built-in defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	data := DefaultConfigYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	def := extract.DefaultOptions()
	cfg := &Config{
		Fetch: Fetch{
			Timeout:      15 * time.Second,
			UserAgent:    "journals/1.0 (feed reader)",
			MaxBodyBytes: fetch.DefaultMaxBodyBytes,
		},
		Extract: Extract{
			MetaName:    def.MetaName,
			AnchorTags:  def.AnchorTags,
			AnchorWord:  def.AnchorWord,
			SiblingTags: def.SiblingTags,
			StopTags:    def.StopTags,
			StopWord:    def.StopWord,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides settings from JOURNALS_* variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("JOURNALS_DATA_DIR"); v != "" {
		c.Output.DataDir = v
	}
	if v := getenv("JOURNALS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("JOURNALS_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := getenv("JOURNALS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JOURNALS_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("JOURNALS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JOURNALS_TIMEOUT %q: %w", v, err)
		}
		c.Fetch.Timeout = d
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// ExtractOptions converts the extract block for the extractor.
func (c *Config) ExtractOptions() extract.Options {
	return extract.Options{
		MetaName:    c.Extract.MetaName,
		AnchorTags:  c.Extract.AnchorTags,
		AnchorWord:  c.Extract.AnchorWord,
		SiblingTags: c.Extract.SiblingTags,
		StopTags:    c.Extract.StopTags,
		StopWord:    c.Extract.StopWord,
	}
}

// FetchOptions converts the fetch block for the fetcher.
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:      c.Fetch.Timeout,
		UserAgent:    c.Fetch.UserAgent,
		MaxBodyBytes: c.Fetch.MaxBodyBytes,
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
