// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads linkwalk settings from a YAML file and LINKWALK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/agentberlin/linkwalk"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Renderer backends
const (
	RendererNone     = "none"
	RendererChromedp = "chromedp"
	RendererRod      = "rod"
)

// Config is the top-level linkwalk configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Extract   ExtractConfig   `yaml:"extract"`
	Browser   BrowserConfig   `yaml:"browser"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Batch     BatchConfig     `yaml:"batch"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig maps onto linkwalk.Options. Zero values keep the engine
// defaults.
type EngineConfig struct {
	MaxSteps          int               `yaml:"max_steps"`
	WallClockBudget   time.Duration     `yaml:"wall_clock_budget"`
	StepDelayMin      time.Duration     `yaml:"step_delay_min"`
	StepDelayMax      time.Duration     `yaml:"step_delay_max"`
	ChallengeBudget   time.Duration     `yaml:"challenge_budget"`
	// ChallengeRetries of -1 disables re-entry; 0 keeps the default
	ChallengeRetries  int               `yaml:"challenge_retries"`
	NavigationTimeout time.Duration     `yaml:"navigation_timeout"`
	RequestTimeout    time.Duration     `yaml:"request_timeout"`
	UserAgent         string            `yaml:"user_agent"`
	Headers           map[string]string `yaml:"headers"`
	RenderNavigation  bool              `yaml:"render_navigation"`
}

// TerminalConfig lists extra destination hosts.
type TerminalConfig struct {
	Hosts []string `yaml:"hosts"`
}

// ExtractConfig extends the default extraction rule.
type ExtractConfig struct {
	Keywords        []string `yaml:"keywords"`
	Exclude         []string `yaml:"exclude"`
	IncludeExternal bool     `yaml:"include_external"`
	KeepBoilerplate bool     `yaml:"keep_boilerplate"`
}

// BrowserConfig selects the interactive session backend.
type BrowserConfig struct {
	Renderer string `yaml:"renderer"` // none | chromedp | rod
	Headful  bool   `yaml:"headful"`
	ExecPath string `yaml:"exec_path"`
}

// RateLimitConfig bounds request rates across every run of the process.
type RateLimitConfig struct {
	// RequestsPerSecond of 0 disables the shared limiter
	RequestsPerSecond float64               `yaml:"requests_per_second"`
	Burst             int                   `yaml:"burst"`
	Domains           []*linkwalk.LimitRule `yaml:"domains"`
}

// BatchConfig tunes batch resolution.
type BatchConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// StoreConfig locates the run history database.
type StoreConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns ~/.linkwalk/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".linkwalk", "config.yaml")
}

// Load reads path, then applies LINKWALK_* environment overrides. An empty
// path tries DefaultPath and falls back to defaults when it does not exist.
func Load(path string) (*Config, error) {
	var cfg *Config
	switch {
	case path != "":
		c, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		c, err := LoadFile(DefaultPath())
		if errors.Is(err, fs.ErrNotExist) {
			c, err = Default(), nil
		}
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	cfg.ApplyEnv(os.Environ())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) applyDefaults() {
	if c.Browser.Renderer == "" {
		c.Browser.Renderer = RendererNone
	}
	if c.Batch.Parallelism <= 0 {
		c.Batch.Parallelism = linkwalk.DefaultParallelism
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports settings no run could use.
func (c *Config) Validate() error {
	switch c.Browser.Renderer {
	case RendererNone, RendererChromedp, RendererRod:
	default:
		return fmt.Errorf("unknown renderer %q", c.Browser.Renderer)
	}
	if c.Engine.StepDelayMax > 0 && c.Engine.StepDelayMax < c.Engine.StepDelayMin {
		return fmt.Errorf("step_delay_max %s is below step_delay_min %s", c.Engine.StepDelayMax, c.Engine.StepDelayMin)
	}
	if _, err := linkwalk.NewHostAllowList(c.Terminal.Hosts...); err != nil {
		return fmt.Errorf("terminal hosts: %w", err)
	}
	if err := c.ExtractionRule().Validate(); err != nil {
		return fmt.Errorf("extraction rule: %w", err)
	}
	for _, r := range c.RateLimit.Domains {
		if r.DomainGlob == "" && r.DomainRegexp == "" {
			return linkwalk.ErrNoPattern
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Options returns the engine options c describes.
func (c *Config) Options() *linkwalk.Options {
	e := c.Engine
	opts := &linkwalk.Options{
		MaxSteps:          e.MaxSteps,
		WallClockBudget:   e.WallClockBudget,
		InterStepDelayMin: e.StepDelayMin,
		InterStepDelayMax: e.StepDelayMax,
		ChallengeBudget:   e.ChallengeBudget,
		ChallengeRetries:  e.ChallengeRetries,
		NavigationTimeout: e.NavigationTimeout,
		RequestTimeout:    e.RequestTimeout,
		UserAgent:         e.UserAgent,
		RenderNavigation:  e.RenderNavigation,
	}
	for k, v := range e.Headers {
		if opts.Headers == nil {
			opts.Headers = http.Header{}
		}
		opts.Headers.Set(k, v)
	}
	return opts
}

// ExtractionRule returns the default rule extended by c.
func (c *Config) ExtractionRule() *linkwalk.ExtractionRule {
	rule := linkwalk.DefaultExtractionRule()
	rule.Hosts = append(rule.Hosts, c.Terminal.Hosts...)
	rule.Keywords = append(rule.Keywords, c.Extract.Keywords...)
	rule.Exclude = append(rule.Exclude, c.Extract.Exclude...)
	rule.IncludeExternal = c.Extract.IncludeExternal
	rule.SkipBoilerplate = !c.Extract.KeepBoilerplate
	return rule
}

// Limiter returns the process-wide limiter, or nil when disabled.
func (c *Config) Limiter() *rate.Limiter {
	if c.RateLimit.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit.RequestsPerSecond), c.RateLimit.Burst)
}

// Renderer builds the configured interactive backend, or nil for none.
func (c *Config) Renderer() linkwalk.Renderer {
	bc := linkwalk.BrowserConfig{
		Headful:   c.Browser.Headful,
		ExecPath:  c.Browser.ExecPath,
		UserAgent: c.Engine.UserAgent,
	}
	switch c.Browser.Renderer {
	case RendererChromedp:
		return linkwalk.NewChromedpRenderer(bc)
	case RendererRod:
		return linkwalk.NewRodRenderer(bc)
	}
	return nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
