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
	"strconv"
	"strings"
	"time"
)

// EnvPrefix starts every environment override
const EnvPrefix = "LINKWALK_"

var envMap = map[string]func(*Config, string){
	"MAX_STEPS": func(c *Config, val string) {
		if n, err := strconv.Atoi(val); err == nil {
			c.Engine.MaxSteps = n
		}
	},
	"WALL_CLOCK": func(c *Config, val string) {
		if d, err := time.ParseDuration(val); err == nil {
			c.Engine.WallClockBudget = d
		}
	},
	"CHALLENGE_BUDGET": func(c *Config, val string) {
		if d, err := time.ParseDuration(val); err == nil {
			c.Engine.ChallengeBudget = d
		}
	},
	"USER_AGENT": func(c *Config, val string) {
		c.Engine.UserAgent = val
	},
	"RENDER_NAVIGATION": func(c *Config, val string) {
		c.Engine.RenderNavigation = isYesString(val)
	},
	"TERMINAL_HOSTS": func(c *Config, val string) {
		c.Terminal.Hosts = append(c.Terminal.Hosts, splitList(val)...)
	},
	"RENDERER": func(c *Config, val string) {
		c.Browser.Renderer = strings.ToLower(val)
	},
	"HEADFUL": func(c *Config, val string) {
		c.Browser.Headful = isYesString(val)
	},
	"CHROME_PATH": func(c *Config, val string) {
		c.Browser.ExecPath = val
	},
	"RATE_LIMIT": func(c *Config, val string) {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.RateLimit.RequestsPerSecond = f
			if c.RateLimit.Burst <= 0 {
				c.RateLimit.Burst = 1
			}
		}
	},
	"PARALLELISM": func(c *Config, val string) {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Batch.Parallelism = n
		}
	},
	"DB_PATH": func(c *Config, val string) {
		c.Store.Path = val
	},
	"NO_HISTORY": func(c *Config, val string) {
		c.Store.Disabled = isYesString(val)
	},
	"LOG_LEVEL": func(c *Config, val string) {
		c.Log.Level = strings.ToLower(val)
	},
	"LOG_FORMAT": func(c *Config, val string) {
		c.Log.Format = strings.ToLower(val)
	},
}

// ApplyEnv applies LINKWALK_* entries of environ, in KEY=value form.
func (c *Config) ApplyEnv(environ []string) {
	for _, e := range environ {
		if !strings.HasPrefix(e, EnvPrefix) {
			continue
		}
		pair := strings.SplitN(e[len(EnvPrefix):], "=", 2)
		if len(pair) != 2 {
			continue
		}
		if f, ok := envMap[pair[0]]; ok {
			f(c, pair[1])
		} else {
			slog.Warn("unknown environment variable", "name", EnvPrefix+pair[0])
		}
	}
}

func isYesString(s string) bool {
	switch strings.ToLower(s) {
	case "1", "yes", "true", "y":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
