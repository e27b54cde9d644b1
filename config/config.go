package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the session defaults shared by the CLI and the API server.
// Values come from built in defaults, then the YAML file named by
// METASEARCH_CONFIG, then environment variables.
type Config struct {
	AppPort    int           `yaml:"app_port"`
	Proxy      string        `yaml:"proxy"`
	Timeout    time.Duration `yaml:"timeout"`
	Verify     bool          `yaml:"verify"`
	Region     string        `yaml:"region"`
	SafeSearch string        `yaml:"safesearch"`
	Backends   []string      `yaml:"backends"`
	LogLevel   string        `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		AppPort:    8080,
		Timeout:    5 * time.Second,
		Verify:     true,
		Region:     "us-en",
		SafeSearch: "moderate",
		LogLevel:   "info",
	}
}

func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv("METASEARCH_CONFIG", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := getEnv("APP_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid APP_PORT %q: %w", v, err)
		}
		c.AppPort = port
	}
	if v := getEnv("METASEARCH_TIMEOUT", ""); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	if v := getEnv("METASEARCH_VERIFY", ""); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METASEARCH_VERIFY %q: %w", v, err)
		}
		c.Verify = verify
	}
	if v := getEnv("METASEARCH_BACKENDS", ""); v != "" {
		c.Backends = strings.Split(v, ",")
	}

	c.Proxy = getEnv("METASEARCH_PROXY", c.Proxy)
	c.Region = getEnv("METASEARCH_REGION", c.Region)
	c.SafeSearch = getEnv("METASEARCH_SAFESEARCH", c.SafeSearch)
	c.LogLevel = getEnv("METASEARCH_LOG_LEVEL", c.LogLevel)
	return nil
}

// ParseTimeout accepts a Go duration ("1500ms") or a whole number of seconds.
func ParseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", v, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
