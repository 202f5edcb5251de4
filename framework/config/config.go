package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       LogConfig       `yaml:"log"`
	Container ContainerConfig `yaml:"container"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Session   SessionConfig   `yaml:"session"`
}

type AppConfig struct {
	Name  string `yaml:"name"`
	Env   string `yaml:"env"` // local | production | testing
	Debug bool   `yaml:"debug"`
	Port  string `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// ContainerConfig tunes container validation. IgnoreErrors holds kind
// names such as "scope_mismatch"; see container.ParseErrorKind.
type ContainerConfig struct {
	IgnoreErrors []string `yaml:"ignore_errors"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SessionConfig struct {
	Cookie string `yaml:"cookie"`
	MaxAge int    `yaml:"max_age"` // seconds
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	loadEnv(envFiles)
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads the YAML file at path over the defaults, then applies the
// environment on top: a set variable always wins over the file.
func LoadFile(path string, envFiles ...string) (*Config, error) {
	loadEnv(envFiles)
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadEnv(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)
}

func defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:  "DIContainer",
			Env:   "local",
			Debug: true,
			Port:  "8000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Session: SessionConfig{
			Cookie: "dicontainer_session",
			MaxAge: 7200,
		},
	}
}

func (c *Config) applyEnv() {
	c.App.Name = env("APP_NAME", c.App.Name)
	c.App.Env = env("APP_ENV", c.App.Env)
	c.App.Debug = envBool("APP_DEBUG", c.App.Debug)
	c.App.Port = env("APP_PORT", c.App.Port)

	c.Log.Level = env("LOG_LEVEL", c.Log.Level)
	c.Log.Format = env("LOG_FORMAT", c.Log.Format)

	if v := os.Getenv("CONTAINER_IGNORE_ERRORS"); v != "" {
		c.Container.IgnoreErrors = splitList(v)
	}

	c.Metrics.Enabled = envBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = env("METRICS_PATH", c.Metrics.Path)

	c.Session.Cookie = env("SESSION_COOKIE", c.Session.Cookie)
	c.Session.MaxAge = envInt("SESSION_MAX_AGE", c.Session.MaxAge)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// IgnoredKinds maps IgnoreErrors to the container's error kinds, for
// Builder.Ignore.
func (c ContainerConfig) IgnoredKinds() ([]error, error) {
	kinds := make([]error, 0, len(c.IgnoreErrors))
	for _, name := range c.IgnoreErrors {
		kind, ok := container.ParseErrorKind(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown container error kind %q", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
