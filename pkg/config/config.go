package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/osvaldoandrade/repozip/pkg/domain"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional config file name. The archive builder never
// ships a file with this name.
const FileName = "submission.yml"

const (
	DefaultServerURL        = "http://localhost:3000"
	DefaultCompressionLevel = 6
	DefaultFeedURL          = "https://api.github.com/repos/osvaldoandrade/repozip/releases/latest"
)

type Config struct {
	APIKey           string      `yaml:"api_key"`
	CompetitionID    string      `yaml:"competition_id,omitempty"`
	Format           string      `yaml:"format,omitempty"`
	ServerURL        string      `yaml:"server_url"`
	CompressionLevel *int        `yaml:"compression_level,omitempty"`
	Exclude          []string    `yaml:"exclude,omitempty"`
	ScratchDir       string      `yaml:"scratch_dir,omitempty"`
	Preferences      Preferences `yaml:"preferences"`
	Telemetry        Telemetry   `yaml:"telemetry,omitempty"`
	Update           Update      `yaml:"update,omitempty"`
}

type Preferences struct {
	AutoConfirm bool `yaml:"auto_confirm"`
	// SaveHistory is carried for compatibility; nothing reads it yet.
	SaveHistory *bool `yaml:"save_history,omitempty"`
}

type Telemetry struct {
	Tracing      bool   `yaml:"tracing,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	MetricsFile  string `yaml:"metrics_file,omitempty"`
}

type Update struct {
	FeedURL string `yaml:"feed_url,omitempty"`
}

// Path resolves the config file location: flag, then REPOZIP_CONFIG, then
// ./submission.yml.
func Path(flag string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("REPOZIP_CONFIG")); v != "" {
		return v
	}
	return FileName
}

// Default is the configuration written by `repozip init`.
func Default() *Config {
	level := DefaultCompressionLevel
	history := true
	return &Config{
		ServerURL:        DefaultServerURL,
		CompressionLevel: &level,
		Exclude:          []string{},
		Preferences: Preferences{
			AutoConfirm: false,
			SaveHistory: &history,
		},
	}
}

// LoadConfig reads a YAML config, applies env overrides and then defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Errorf(domain.KindConfig, "load config", "%s not found (run `repozip init`)", filePath)
		}
		return nil, domain.Wrap(domain.KindConfig, "load config", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, domain.Wrap(domain.KindConfig, "parse "+filePath, err)
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

// LoadConfigOptional behaves like LoadConfig but a missing or empty path
// yields defaults plus env overrides.
func LoadConfigOptional(filePath string) (*Config, error) {
	if strings.TrimSpace(filePath) != "" {
		if _, err := os.Stat(filePath); err == nil {
			return LoadConfig(filePath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, domain.Wrap(domain.KindConfig, "stat config", err)
		}
	}
	c := &Config{}
	c.applyEnv()
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("REPOZIP_API_KEY")); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("REPOZIP_SERVER_URL")); v != "" {
		c.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REPOZIP_COMPETITION_ID")); v != "" {
		c.CompetitionID = v
	}
	if v := strings.TrimSpace(os.Getenv("REPOZIP_COMPRESSION_LEVEL")); v != "" {
		if n, err := ParseCompressionLevel(v); err == nil {
			c.CompressionLevel = &n
		}
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ServerURL) == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.CompressionLevel == nil {
		level := DefaultCompressionLevel
		c.CompressionLevel = &level
	}
	if c.Preferences.SaveHistory == nil {
		history := true
		c.Preferences.SaveHistory = &history
	}
	if strings.TrimSpace(c.Update.FeedURL) == "" {
		c.Update.FeedURL = DefaultFeedURL
	}
}

// Level returns the compression level, falling back to the default.
func (c *Config) Level() int {
	if c == nil || c.CompressionLevel == nil {
		return DefaultCompressionLevel
	}
	return *c.CompressionLevel
}

// Validate checks the fields the submission pipeline depends on.
func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, "api_key is required")
	}
	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "server_url must be a valid http(s) URL")
	}
	if l := c.Level(); l < 0 || l > 9 {
		errs = append(errs, fmt.Sprintf("compression_level must be 0-9, got %d", l))
	}
	if strings.TrimSpace(c.Format) != "" {
		if _, err := domain.ParseFormat(c.Format); err != nil {
			errs = append(errs, fmt.Sprintf("format %q is not one of: repository, python", c.Format))
		}
	}
	if len(errs) > 0 {
		return domain.Errorf(domain.KindConfig, "validate config", "%s", strings.Join(errs, "; "))
	}
	return nil
}

// SaveConfig writes c as YAML with owner-only permissions.
func SaveConfig(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return domain.Wrap(domain.KindIO, "save config", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return domain.Wrap(domain.KindConfig, "encode config", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return domain.Wrap(domain.KindIO, "save config", err)
	}
	return nil
}

var levelNames = map[string]int{
	"store":   0,
	"fastest": 1,
	"normal":  6,
	"best":    9,
}

// ParseCompressionLevel accepts 0-9 or one of store, fastest, normal, best.
func ParseCompressionLevel(v string) (int, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if n, ok := levelNames[v]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 9 {
		return 0, domain.Errorf(domain.KindConfig, "compression level", "%q is not 0-9 or store|fastest|normal|best", v)
	}
	return n, nil
}
