// Package config loads the recallmap server configuration from an
// optional YAML file with RECALLMAP_* environment overrides on top.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/arjunm/recallmap/internal/llm"
	"github.com/arjunm/recallmap/internal/sampler"
)

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Assessment AssessmentConfig `yaml:"assessment"`
	LLM        llm.Config       `yaml:"llm"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig points at the event log. An empty path means the
// default XDG location; "off" disables persistence entirely.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Disabled reports whether event persistence is turned off.
func (d DatabaseConfig) Disabled() bool { return d.Path == "off" }

// AssessmentConfig tunes the session engine.
type AssessmentConfig struct {
	// Ratio is the fraction of nodes redacted per session.
	Ratio float64 `yaml:"ratio"`

	// Language is the default feedback language when the client does
	// not send one.
	Language string `yaml:"language"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:     ServerConfig{Host: "127.0.0.1", Port: 8095},
		Database:   DatabaseConfig{},
		Assessment: AssessmentConfig{Ratio: sampler.DefaultRatio, Language: "en"},
		LLM:        llm.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error; an empty path
// skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if h := os.Getenv("RECALLMAP_HOST"); h != "" {
		c.Server.Host = h
	}
	if p := os.Getenv("RECALLMAP_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			c.Server.Port = n
		}
	}
	if d := os.Getenv("RECALLMAP_DB"); d != "" {
		c.Database.Path = d
	}
	if r := os.Getenv("RECALLMAP_RATIO"); r != "" {
		if f, err := strconv.ParseFloat(r, 64); err == nil {
			c.Assessment.Ratio = f
		}
	}
	if l := os.Getenv("RECALLMAP_LANGUAGE"); l != "" {
		c.Assessment.Language = l
	}
	c.LLM.ApplyEnv()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Assessment.Ratio <= 0 || c.Assessment.Ratio > 1 {
		return fmt.Errorf("assessment ratio must be in (0, 1], got %v", c.Assessment.Ratio)
	}
	if c.Assessment.Language == "" {
		return fmt.Errorf("assessment language must not be empty")
	}
	return nil
}
