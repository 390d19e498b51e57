package domain

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LINEAR_AUTH_API_KEY.
const EnvPrefix = "LINEAR"

// DefaultAPIURL is Linear's GraphQL endpoint.
const DefaultAPIURL = "https://api.linear.app/graphql"

const redacted = "[REDACTED]"

// Config represents the server configuration.
// It is assembled from defaults, an optional YAML file and LINEAR_* env vars.
type Config struct {
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Linear    LinearConfig    `mapstructure:"linear" yaml:"linear"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// TransportConfig defines transport settings.
type TransportConfig struct {
	Type string     `mapstructure:"type" yaml:"type"` // "stdio" or "http"
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`
}

// HTTPConfig defines HTTP transport settings.
// Only used when transport type is "http".
type HTTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LinearConfig defines upstream endpoints and client behaviour.
type LinearConfig struct {
	APIURL            string        `mapstructure:"api_url" yaml:"api_url"`
	AuthorizeURL      string        `mapstructure:"authorize_url" yaml:"authorize_url"`
	TokenURL          string        `mapstructure:"token_url" yaml:"token_url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"` // 0 disables limiting
	Burst             int           `mapstructure:"burst" yaml:"burst"`
}

// AuthConfig optionally bootstraps a credential at startup.
// An empty Type leaves the session uninitialized until linear_auth is called.
type AuthConfig struct {
	Type         string `mapstructure:"type" yaml:"type,omitempty"` // "api" or "oauth"
	APIKey       string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
	RedirectURI  string `mapstructure:"redirect_uri" yaml:"redirect_uri,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // zerolog level name
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.type", "stdio")
	v.SetDefault("transport.http.host", "localhost")
	v.SetDefault("transport.http.port", 8080)
	v.SetDefault("linear.api_url", DefaultAPIURL)
	v.SetDefault("linear.authorize_url", DefaultAuthorizeURL)
	v.SetDefault("linear.token_url", DefaultTokenURL)
	v.SetDefault("linear.timeout", 30*time.Second)
	v.SetDefault("linear.requests_per_second", 0)
	v.SetDefault("linear.burst", 1)
	v.SetDefault("auth.type", "")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_uri", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads and validates configuration.
// An explicit path must exist. Without one, linear-mcp.yaml is looked up in
// the working directory and the user config dir, and a missing file is fine.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("linear-mcp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "linear-mcp"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("invalid configuration file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration for completeness and correctness.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateTransport(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateLinear(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'console' or 'json'", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: validation errors: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// validateTransport validates the transport configuration.
func (c *Config) validateTransport() error {
	var errs []string

	if c.Transport.Type != "stdio" && c.Transport.Type != "http" {
		errs = append(errs, fmt.Sprintf("invalid transport type '%s': must be 'stdio' or 'http'", c.Transport.Type))
	}

	if c.Transport.Type == "http" {
		if c.Transport.HTTP.Host == "" {
			errs = append(errs, "HTTP host is required when transport type is 'http'")
		}
		if c.Transport.HTTP.Port <= 0 || c.Transport.HTTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("invalid HTTP port %d: must be between 1 and 65535", c.Transport.HTTP.Port))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// validateLinear validates upstream endpoints and client limits.
func (c *Config) validateLinear() error {
	var errs []string

	endpoints := []struct{ name, raw string }{
		{"api_url", c.Linear.APIURL},
		{"authorize_url", c.Linear.AuthorizeURL},
		{"token_url", c.Linear.TokenURL},
	}
	for _, ep := range endpoints {
		if err := validateURL(ep.raw); err != nil {
			errs = append(errs, fmt.Sprintf("linear %s %s", ep.name, err))
		}
	}

	if c.Linear.Timeout <= 0 {
		errs = append(errs, "linear timeout must be positive")
	}
	if c.Linear.RequestsPerSecond < 0 {
		errs = append(errs, "linear requests_per_second must not be negative")
	}
	if c.Linear.RequestsPerSecond > 0 && c.Linear.Burst < 1 {
		errs = append(errs, "linear burst must be at least 1 when rate limiting is enabled")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("is invalid: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return errors.New("must use http or https scheme")
	case u.Host == "":
		return errors.New("must include a host")
	}
	return nil
}

// Validate validates the startup credential, if any.
func (a AuthConfig) Validate() error {
	if a.Type == "" {
		return nil
	}
	cred, ok := a.Credential()
	if !ok {
		return fmt.Errorf("auth type '%s' is invalid: must be 'api' or 'oauth'", a.Type)
	}
	if err := cred.validate(); err != nil {
		return errors.New(strings.TrimPrefix(err.Error(), ErrInvalidConfig.Error()+": "))
	}
	return nil
}

// Credential converts the auth section into a Credential. It reports false
// when no startup credential is configured.
func (a AuthConfig) Credential() (Credential, bool) {
	switch a.Type {
	case "api":
		return StaticKey(a.APIKey), true
	case "oauth":
		return OAuth(a.ClientID, a.ClientSecret, a.RedirectURI), true
	default:
		return Credential{}, false
	}
}

// Redacted returns a copy of the configuration with secrets masked.
func (c Config) Redacted() Config {
	if c.Auth.APIKey != "" {
		c.Auth.APIKey = redacted
	}
	if c.Auth.ClientSecret != "" {
		c.Auth.ClientSecret = redacted
	}
	return c
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
