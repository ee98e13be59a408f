package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"confluence-mcp/internal/confluence"
)

const (
	EnvEmail    = "CONFLUENCE_EMAIL"
	EnvAPIToken = "CONFLUENCE_API_TOKEN"
	EnvBaseURL  = "CONFLUENCE_BASE_URL"
	EnvTimeout  = "CONFLUENCE_TIMEOUT"

	TransportStdio = "stdio"
	TransportHTTP  = "http"

	DefaultAddr = ":8000"
)

// ErrMissingCredentials is wrapped by Validate when the email or API token
// is not set.
var ErrMissingCredentials = errors.New("missing Confluence credentials")

type Config struct {
	Confluence ConfluenceConfig `yaml:"confluence"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

type ConfluenceConfig struct {
	BaseURL string `yaml:"base_url"`
	Email   string `yaml:"email"`
	// APIToken only ever comes from the environment.
	APIToken string        `yaml:"-"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Default returns a config with every optional field set.
func Default() *Config {
	return &Config{
		Confluence: ConfluenceConfig{
			BaseURL: confluence.DefaultBaseURL,
			Timeout: confluence.DefaultTimeout,
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			Addr:      DefaultAddr,
		},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, configError("failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, configError("failed to parse config", err)
	}
	cfg.fillDefaults()

	return cfg, nil
}

// LoadFromEnv loads path and overlays the process environment.
func LoadFromEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays CONFLUENCE_* variables. Blank values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvEmail); ok {
		c.Confluence.Email = v
	}
	if v, ok := get(EnvAPIToken); ok {
		c.Confluence.APIToken = v
	}
	if v, ok := get(EnvBaseURL); ok {
		c.Confluence.BaseURL = v
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := parseTimeout(v)
		if err != nil {
			return configError(fmt.Sprintf("invalid %s", EnvTimeout), err)
		}
		c.Confluence.Timeout = d
	}
	return nil
}

// parseTimeout accepts a Go duration or a plain number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("'%s' is not a duration", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Validate checks that the server can start with this config.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Confluence.Email) == "" {
		missing = append(missing, EnvEmail)
	}
	if strings.TrimSpace(c.Confluence.APIToken) == "" {
		missing = append(missing, EnvAPIToken)
	}
	if len(missing) > 0 {
		return configError(fmt.Sprintf("%s must be set", strings.Join(missing, " and ")), ErrMissingCredentials)
	}
	return c.ValidateSettings()
}

// ValidateSettings checks the fields that may be stored in the config file.
func (c *Config) ValidateSettings() error {
	if c.Confluence.Timeout <= 0 {
		return configError("confluence.timeout must be positive", nil)
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return configError(fmt.Sprintf("server.transport must be %s or %s, got '%s'", TransportStdio, TransportHTTP, c.Server.Transport), nil)
	}
	return nil
}

// Credentials returns the basic auth value handed to the client.
func (c *Config) Credentials() confluence.BasicAuth {
	return confluence.BasicAuth{Email: c.Confluence.Email, Token: c.Confluence.APIToken}
}

// Save writes the config as YAML. The API token is never written.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML without the API token.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return data, nil
}

// String masks the API token.
func (c *Config) String() string {
	token := ""
	if c.Confluence.APIToken != "" {
		token = "****"
	}
	return fmt.Sprintf("Config{BaseURL: %s, Email: %s, APIToken: %s, Timeout: %s, Transport: %s, Addr: %s, Verbose: %t}",
		c.Confluence.BaseURL, c.Confluence.Email, token, c.Confluence.Timeout,
		c.Server.Transport, c.Server.Addr, c.Log.Verbose)
}

func (c *Config) fillDefaults() {
	def := Default()
	if strings.TrimSpace(c.Confluence.BaseURL) == "" {
		c.Confluence.BaseURL = def.Confluence.BaseURL
	}
	if c.Confluence.Timeout == 0 {
		c.Confluence.Timeout = def.Confluence.Timeout
	}
	if c.Server.Transport == "" {
		c.Server.Transport = def.Server.Transport
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

func configError(msg string, err error) error {
	return &confluence.Error{Kind: confluence.KindConfig, Op: "config", Message: msg, Err: err}
}
