// Package config loads Foreman settings from a YAML file with FOREMAN_*
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/observe"
	"github.com/itsmrshow/foreman/internal/planner"
	"github.com/itsmrshow/foreman/internal/world"
)

// Config holds planner, cache, storage and server settings.
type Config struct {
	Log logging.Config `yaml:"log"`

	World    string `yaml:"world"`    // snapshot path (.yaml, .yml or .zst)
	StateDB  string `yaml:"state_db"` // empty keeps plans in memory
	Addr     string `yaml:"addr"`
	Schedule string `yaml:"schedule"`

	// Replan rebuilds every plan on each pass instead of keeping
	// existing ones.
	Replan bool `yaml:"replan"`

	ReadOnly       bool    `yaml:"read_only"`
	Token          string  `yaml:"token"`
	WriteRateRPS   float64 `yaml:"write_rate_rps"`
	WriteRateBurst int     `yaml:"write_rate_burst"`

	TTL        observe.TTLs                       `yaml:"ttl"`
	Categories []world.Category                   `yaml:"categories"`
	Profiles   map[world.Category]planner.Profile `yaml:"profiles"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:            logging.Config{Level: "info", Format: "console"},
		World:          "world.yaml",
		Addr:           ":8080",
		Schedule:       "@every 30s",
		WriteRateRPS:   1.0,
		WriteRateBurst: 3,
		TTL:            observe.DefaultTTLs(),
		Profiles:       planner.DefaultProfiles(),
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// merge decodes a YAML document over cfg. Profiles named in the document
// replace the built-in profile of that category; others are kept.
func (c *Config) merge(data []byte) error {
	builtin := c.Profiles
	c.Profiles = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	merged := make(map[world.Category]planner.Profile, len(builtin)+len(c.Profiles))
	for cat, p := range builtin {
		merged[cat] = p
	}
	for cat, p := range c.Profiles {
		merged[cat] = p
	}
	c.Profiles = merged
	return nil
}

// ApplyEnv overrides fields from FOREMAN_* environment variables.
func (c *Config) ApplyEnv() {
	c.Log.Level = getEnv("FOREMAN_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("FOREMAN_LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("FOREMAN_LOG_FILE", c.Log.File)

	c.World = getEnv("FOREMAN_WORLD", c.World)
	c.StateDB = getEnv("FOREMAN_STATE_DB", c.StateDB)
	c.Addr = getEnv("FOREMAN_ADDR", c.Addr)
	c.Schedule = getEnv("FOREMAN_SCHEDULE", c.Schedule)
	c.Replan = getEnvBool("FOREMAN_REPLAN", c.Replan)

	c.ReadOnly = getEnvBool("FOREMAN_READONLY", c.ReadOnly)
	c.Token = getEnv("FOREMAN_TOKEN", c.Token)
	c.WriteRateRPS = getEnvFloat("FOREMAN_WRITE_RPS", c.WriteRateRPS)
	c.WriteRateBurst = getEnvInt("FOREMAN_WRITE_BURST", c.WriteRateBurst)

	c.TTL.Structures = world.Tick(getEnvInt("FOREMAN_TTL_STRUCTURES", int(c.TTL.Structures)))
	c.TTL.Sites = world.Tick(getEnvInt("FOREMAN_TTL_SITES", int(c.TTL.Sites)))
	c.TTL.Occupancy = world.Tick(getEnvInt("FOREMAN_TTL_OCCUPANCY", int(c.TTL.Occupancy)))
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	def := Default()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.Schedule == "" {
		c.Schedule = def.Schedule
	}
	c.TTL = c.TTL.WithDefaults()
	if len(c.Profiles) == 0 {
		c.Profiles = def.Profiles
	}
	if len(c.Categories) == 0 {
		for cat := range c.Profiles {
			c.Categories = append(c.Categories, cat)
		}
		sort.Slice(c.Categories, func(i, j int) bool { return c.Categories[i] < c.Categories[j] })
	}
	return c
}

// Validate checks that every planned category has a usable profile.
func (c Config) Validate() error {
	for _, cat := range c.Categories {
		p, ok := c.Profiles[cat]
		if !ok {
			return fmt.Errorf("category %q: %w", cat, planner.ErrUnknownCategory)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", cat, err)
		}
	}
	if c.WriteRateBurst < 0 {
		return fmt.Errorf("write_rate_burst must not be negative")
	}
	return nil
}
