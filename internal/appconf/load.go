package appconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKeys     = "INSPECTOR_API_KEYS"
	EnvRegistryURL = "INSPECTOR_REGISTRY_URL"
	EnvEnvironment = "INSPECTOR_ENV"
)

var validate = validator.New()

// LoadFromFile reads a YAML file over the defaults and validates the result.
func LoadFromFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %q is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadDotEnv loads each existing file into the process environment without
// overriding variables that are already set.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides c with the INSPECTOR_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvAPIKeys); ok {
		c.ApiKeys = ParseAPIKeys(v)
	}
	if v, ok := os.LookupEnv(EnvRegistryURL); ok && v != "" {
		c.Registry.URL = v
	}
	if v, ok := os.LookupEnv(EnvEnvironment); ok {
		env, err := ParseEnvironment(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnvironment, err)
		}
		c.Env = env
	}
	return nil
}

// ParseAPIKeys splits a comma-separated list, trimming each key.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	keys := strings.Split(s, ",")
	for i, k := range keys {
		keys[i] = strings.TrimSpace(k)
	}
	return keys
}
