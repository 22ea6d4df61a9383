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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
engine:
  max_steps: 8
  wall_clock_budget: 45s
  step_delay_min: 1s
  step_delay_max: 2s
  user_agent: Test/1.0
  headers:
    Accept-Language: de-DE
terminal:
  hosts: ["*.vikingfile.test", "pixeldrain.dev"]
extract:
  keywords: ["mirror"]
  keep_boilerplate: true
browser:
  renderer: rod
  headful: true
rate_limit:
  requests_per_second: 2.5
  domains:
    - domain_glob: "*.vplink.in"
      parallelism: 1
      delay: 500ms
batch:
  parallelism: 4
store:
  path: /tmp/history.db
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.Engine.MaxSteps)
	assert.Equal(t, 45*time.Second, cfg.Engine.WallClockBudget)
	assert.Equal(t, RendererRod, cfg.Browser.Renderer)
	assert.Equal(t, 1, cfg.RateLimit.Burst, "burst defaults to 1 when a rate is set")
	require.Len(t, cfg.RateLimit.Domains, 1)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.Domains[0].Delay)
	assert.Equal(t, 4, cfg.Batch.Parallelism)
	assert.Equal(t, "json", cfg.Log.Format)

	opts := cfg.Options()
	assert.Equal(t, 8, opts.MaxSteps)
	assert.Equal(t, time.Second, opts.InterStepDelayMin)
	assert.Equal(t, "de-DE", opts.Headers.Get("Accept-Language"))

	rule := cfg.ExtractionRule()
	assert.Contains(t, rule.Hosts, "*.vikingfile.test")
	assert.Contains(t, rule.Hosts, "gofile.io")
	assert.Contains(t, rule.Keywords, "mirror")
	assert.False(t, rule.SkipBoilerplate)

	limiter := cfg.Limiter()
	require.NotNil(t, limiter)
	assert.InDelta(t, 2.5, float64(limiter.Limit()), 0.001)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, RendererNone, cfg.Browser.Renderer)
	assert.Equal(t, linkwalk.DefaultParallelism, cfg.Batch.Parallelism)
	assert.Nil(t, cfg.Limiter())
	assert.Nil(t, cfg.Renderer())

	opts := cfg.Options()
	assert.Zero(t, opts.MaxSteps, "zero options keep the engine defaults")
	assert.True(t, cfg.ExtractionRule().SkipBoilerplate)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("LINKWALK_MAX_STEPS", "3")
	t.Setenv("LINKWALK_RENDERER", "ChromeDP")
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.MaxSteps)
	assert.Equal(t, RendererChromedp, cfg.Browser.Renderer)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv([]string{
		"LINKWALK_WALL_CLOCK=2m",
		"LINKWALK_TERMINAL_HOSTS=a.test, b.test,,",
		"LINKWALK_HEADFUL=yes",
		"LINKWALK_RATE_LIMIT=5",
		"LINKWALK_PARALLELISM=0",
		"LINKWALK_NO_HISTORY=1",
		"LINKWALK_LOG_LEVEL=WARN",
		"LINKWALK_MAX_STEPS=abc",
		"LINKWALK_UNKNOWN=1",
		"HOME=/root",
	})

	assert.Equal(t, 2*time.Minute, cfg.Engine.WallClockBudget)
	assert.Equal(t, []string{"a.test", "b.test"}, cfg.Terminal.Hosts)
	assert.True(t, cfg.Browser.Headful)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
	assert.Equal(t, linkwalk.DefaultParallelism, cfg.Batch.Parallelism, "non-positive parallelism is ignored")
	assert.True(t, cfg.Store.Disabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Zero(t, cfg.Engine.MaxSteps, "unparsable values are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Unknown renderer", func(c *Config) { c.Browser.Renderer = "firefox" }},
		{"Inverted delays", func(c *Config) { c.Engine.StepDelayMin = 3 * time.Second; c.Engine.StepDelayMax = time.Second }},
		{"Empty terminal host", func(c *Config) { c.Terminal.Hosts = []string{""} }},
		{"Unclosed terminal glob", func(c *Config) { c.Terminal.Hosts = []string{"[vikingfile"} }},
		{"Limit without pattern", func(c *Config) { c.RateLimit.Domains = []*linkwalk.LimitRule{{Parallelism: 1}} }},
		{"Bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	out, err := cfg.Marshal()
	require.NoError(t, err)

	again, err := LoadFile(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg.Engine, again.Engine)
	assert.Equal(t, cfg.Terminal, again.Terminal)
}
