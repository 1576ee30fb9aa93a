package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Endpoint modes.
const (
	ModeWeighted = "weighted"
	ModeSimple   = "simple"
)

// Limit policies.
const (
	LimitClamp  = "clamp"
	LimitReject = "reject"
)

// HealthPath is served by every instance and cannot be used by an endpoint.
const HealthPath = "/health"

const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultThreshold       = 0.3
	DefaultLimit           = 5
	DefaultMaxLimit        = 20
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Listen          string           `toml:"listen"`
	DataDir         string           `toml:"data_dir"`
	Watch           bool             `toml:"watch"`
	MaxConnections  int              `toml:"max_connections"`
	ShutdownTimeout Duration         `toml:"shutdown_timeout"`
	RateLimit       RateLimitConfig  `toml:"rate_limit"`
	Endpoints       []EndpointConfig `toml:"endpoints"`
}

// RateLimitConfig configures the global token bucket. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// EndpointConfig describes one search route.
type EndpointConfig struct {
	Name    string `toml:"name"`
	Path    string `toml:"path"`
	Dataset string `toml:"dataset"`
	Mode    string `toml:"mode"`

	LimitPolicy  string `toml:"limit_policy"`
	DefaultLimit int    `toml:"default_limit"`
	// MaxLimit of zero leaves reject-policy endpoints unbounded.
	MaxLimit int `toml:"max_limit"`

	ExtendedSyntax  bool `toml:"extended_syntax"`
	IgnoreLocation  bool `toml:"ignore_location"`
	ValidateLengths bool `toml:"validate_lengths"`

	// Threshold is nil when unset so an explicit 0 (exact matching) survives
	// defaulting.
	Threshold *float64      `toml:"threshold,omitempty"`
	Weights   []FieldWeight `toml:"weights"`
}

type FieldWeight struct {
	Field  string  `toml:"field"`
	Weight float64 `toml:"weight"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetThreshold returns the configured threshold or DefaultThreshold.
func (e EndpointConfig) GetThreshold() float64 {
	if e.Threshold == nil {
		return DefaultThreshold
	}
	return *e.Threshold
}

func threshold(v float64) *float64 { return &v }

// DefaultWeights is the weighted field set used by trait endpoints.
func DefaultWeights() []FieldWeight {
	return []FieldWeight{
		{Field: "name", Weight: 2},
		{Field: "tags", Weight: 1.5},
		{Field: "description", Weight: 1},
		{Field: "effects", Weight: 1},
	}
}

// DefaultEndpoints returns the built-in routes.
func DefaultEndpoints() []EndpointConfig {
	return []EndpointConfig{
		{
			Name:            "traits",
			Path:            "/api/v1/traits-zoldy",
			Dataset:         "traits/traits.yaml",
			Mode:            ModeWeighted,
			LimitPolicy:     LimitClamp,
			DefaultLimit:    DefaultLimit,
			MaxLimit:        DefaultMaxLimit,
			IgnoreLocation:  true,
			ValidateLengths: true,
			Threshold:       threshold(DefaultThreshold),
			Weights:         DefaultWeights(),
		},
		{
			Name:           "traits-extended",
			Path:           "/api/v1/traits/zoldy",
			Dataset:        "traits/traits-2.yaml",
			Mode:           ModeWeighted,
			LimitPolicy:    LimitReject,
			DefaultLimit:   DefaultLimit,
			ExtendedSyntax: true,
			IgnoreLocation: true,
			Threshold:      threshold(DefaultThreshold),
			Weights:        DefaultWeights(),
		},
		{
			Name:      "perks",
			Path:      "/api/search",
			Dataset:   "perks.json",
			Mode:      ModeSimple,
			Threshold: threshold(DefaultThreshold),
			Weights: []FieldWeight{
				{Field: "name", Weight: 1},
				{Field: "description", Weight: 1},
				{Field: "tags", Weight: 1},
			},
		},
	}
}

// GetDefaultConfig returns the built-in configuration with every endpoint
// default filled in, exactly as a parsed file would have them.
func GetDefaultConfig() *Config {
	c := &Config{
		Listen:          DefaultListen,
		ShutdownTimeout: Duration{DefaultShutdownTimeout},
		Endpoints:       DefaultEndpoints(),
	}
	c.applyDefaults()
	return c
}

// LoadConfig reads configPath, falling back to the defaults when the file
// does not exist. The result has defaults applied and is validated.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := GetDefaultConfig()
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a TOML document, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.ShutdownTimeout.Duration == 0 {
		c.ShutdownTimeout = Duration{DefaultShutdownTimeout}
	}
	if len(c.Endpoints) == 0 {
		c.Endpoints = DefaultEndpoints()
	}

	for i := range c.Endpoints {
		e := &c.Endpoints[i]
		if e.Mode == "" {
			e.Mode = ModeWeighted
		}
		if e.LimitPolicy == "" {
			e.LimitPolicy = LimitClamp
		}
		if e.DefaultLimit == 0 {
			e.DefaultLimit = DefaultLimit
		}
		if e.LimitPolicy == LimitClamp && e.MaxLimit == 0 {
			e.MaxLimit = DefaultMaxLimit
		}
		if len(e.Weights) == 0 {
			e.Weights = DefaultWeights()
		}
	}
}

// Validate checks the endpoint table and the server settings.
func (c *Config) Validate() error {
	if c.MaxConnections < 0 {
		return errors.New("max_connections must not be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return errors.New("rate_limit.requests_per_second must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be at least 1 when rate limiting is enabled")
	}
	if len(c.Endpoints) == 0 {
		return errors.New("no endpoints configured")
	}

	names := make(map[string]bool)
	paths := make(map[string]bool)
	for i, e := range c.Endpoints {
		if e.Name == "" {
			return fmt.Errorf("endpoint %d: missing name", i)
		}
		if names[e.Name] {
			return fmt.Errorf("endpoint %s: duplicate name", e.Name)
		}
		names[e.Name] = true

		if !strings.HasPrefix(e.Path, "/") {
			return fmt.Errorf("endpoint %s: path %q must start with /", e.Name, e.Path)
		}
		if e.Path == HealthPath {
			return fmt.Errorf("endpoint %s: path %s is reserved", e.Name, HealthPath)
		}
		if paths[e.Path] {
			return fmt.Errorf("endpoint %s: duplicate path %s", e.Name, e.Path)
		}
		paths[e.Path] = true

		if err := e.validate(); err != nil {
			return fmt.Errorf("endpoint %s: %w", e.Name, err)
		}
	}
	return nil
}

func (e EndpointConfig) validate() error {
	if e.Dataset == "" {
		return errors.New("missing dataset")
	}
	switch e.Mode {
	case ModeWeighted, ModeSimple:
	default:
		return fmt.Errorf("unknown mode %q", e.Mode)
	}
	switch e.LimitPolicy {
	case LimitClamp, LimitReject:
	default:
		return fmt.Errorf("unknown limit_policy %q", e.LimitPolicy)
	}
	if e.DefaultLimit < 1 {
		return errors.New("default_limit must be positive")
	}
	if e.MaxLimit < 0 {
		return errors.New("max_limit must not be negative")
	}
	if t := e.GetThreshold(); t < 0 || t > 1 {
		return fmt.Errorf("threshold %v outside [0, 1]", t)
	}
	seen := make(map[string]bool)
	for _, w := range e.Weights {
		if w.Weight <= 0 {
			return fmt.Errorf("weight for %q must be positive", w.Field)
		}
		if seen[w.Field] {
			return fmt.Errorf("field %q weighted twice", w.Field)
		}
		seen[w.Field] = true
	}
	return nil
}

// Endpoint returns the named endpoint.
func (c *Config) Endpoint(name string) (EndpointConfig, error) {
	for _, e := range c.Endpoints {
		if e.Name == name {
			return e, nil
		}
	}
	return EndpointConfig{}, fmt.Errorf("endpoint %s not found", name)
}

// ListEndpoints returns the endpoint names in configuration order.
func (c *Config) ListEndpoints() []string {
	names := make([]string, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		names = append(names, e.Name)
	}
	return names
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration.
func SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// Template returns the commented sample configuration.
func Template() string {
	return configTemplate
}

// GetConfigDir returns the configuration directory for traitsearch
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "traitsearch"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
