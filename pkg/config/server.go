package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/osvaldoandrade/repozip/pkg/domain"

	"gopkg.in/yaml.v3"
)

// Competition describes one competition served by the reference server.
type Competition struct {
	Name           string `yaml:"name"`
	RequiredFormat string `yaml:"requiredFormat"`
	MaxAttempts    int    `yaml:"maxAttempts"`
	Closed         bool   `yaml:"closed"`
}

// RateLimitBucket is a per-subject token bucket; zero values disable it.
type RateLimitBucket struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

type RateLimit struct {
	Check  RateLimitBucket `yaml:"check"`
	Submit RateLimitBucket `yaml:"submit"`
}

// AuthProvider selects a pkg/auth provider. Config is passed to the
// provider factory as JSON.
type AuthProvider struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// RawConfig returns the provider config encoded for auth.ProviderConfig.
func (a AuthProvider) RawConfig() (json.RawMessage, error) {
	if a.Config == nil {
		return nil, nil
	}
	return json.Marshal(a.Config)
}

type ServerConfig struct {
	Port               int                    `yaml:"port"`
	Env                string                 `yaml:"env"`
	LogLevel           string                 `yaml:"logLevel"`
	LogFormat          string                 `yaml:"logFormat"`
	Store              string                 `yaml:"store"`
	RedisAddr          string                 `yaml:"redisAddr"`
	RedisPassword      string                 `yaml:"redisPassword"`
	RedisPingAttempts  int                    `yaml:"redisPingAttempts"`
	ArtifactsDir       string                 `yaml:"artifactsDir"`
	MaxUploadBytes     int64                  `yaml:"maxUploadBytes"`
	DefaultFormat      string                 `yaml:"defaultFormat"`
	DefaultMaxAttempts int                    `yaml:"defaultMaxAttempts"`
	Competitions       map[string]Competition `yaml:"competitions"`
	Auth               AuthProvider           `yaml:"auth"`
	RateLimit          RateLimit              `yaml:"rateLimit"`
	TracingEnabled     bool                   `yaml:"tracingEnabled"`
	OTLPEndpoint       string                 `yaml:"otlpEndpoint"`
}

// LoadServerConfigOptional reads path when it is set, then applies env
// overrides and defaults.
func LoadServerConfigOptional(path string) (*ServerConfig, error) {
	var c ServerConfig
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return nil, err
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("REPOZIP_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
	if v := os.Getenv("DEFAULT_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DefaultMaxAttempts = n
		}
	}
	if v := os.Getenv("REPOZIP_API_KEYS"); v != "" && c.Auth.Type == "" {
		c.Auth = AuthProvider{Type: "static", Config: map[string]any{"tokens": splitList(v)}}
	}

	c.applyDefaults()
	log.Printf("Server Config: {Port:%d Store:%s Redis:%s Artifacts:%s Competitions:%d}\n",
		c.Port, c.Store, c.RedisAddr, c.ArtifactsDir, len(c.Competitions))
	return &c, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Store == "" {
		c.Store = "memory"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.RedisPingAttempts <= 0 {
		c.RedisPingAttempts = 5
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = "/tmp/repozip-artifacts"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 64 << 20
	}
	if c.DefaultFormat == "" {
		c.DefaultFormat = string(domain.FormatRepository)
	}
	if c.DefaultMaxAttempts <= 0 {
		c.DefaultMaxAttempts = 5
	}
	if c.Auth.Type == "" {
		c.Auth.Type = "static"
	}
}

// Competition returns the settings for id, falling back to server defaults
// for unknown or empty ids.
func (c *ServerConfig) Competition(id string) Competition {
	comp, ok := c.Competitions[id]
	if !ok {
		comp = Competition{}
	}
	if comp.RequiredFormat == "" {
		comp.RequiredFormat = c.DefaultFormat
	}
	if comp.MaxAttempts <= 0 {
		comp.MaxAttempts = c.DefaultMaxAttempts
	}
	return comp
}

func (c *ServerConfig) Validate() error {
	var errs []string
	switch c.Store {
	case "memory", "redis":
	default:
		errs = append(errs, "store must be one of: memory, redis")
	}
	if _, err := domain.ParseFormat(c.DefaultFormat); err != nil {
		errs = append(errs, "defaultFormat must be one of: repository, python")
	}
	for id, comp := range c.Competitions {
		if comp.RequiredFormat == "" {
			continue
		}
		if _, err := domain.ParseFormat(comp.RequiredFormat); err != nil {
			errs = append(errs, fmt.Sprintf("competitions.%s.requiredFormat is invalid", id))
		}
	}
	if strings.ToLower(c.Env) != "dev" && c.Auth.Config == nil {
		errs = append(errs, "auth.config is required in non-dev")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
