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

package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/config"
	"github.com/spf13/cobra"
)

// engineFlags are the run options shared by resolve and batch. Only flags
// given on the command line override the configuration.
type engineFlags struct {
	maxSteps         int
	wallClock        time.Duration
	stepDelayMin     time.Duration
	stepDelayMax     time.Duration
	challengeBudget  time.Duration
	challengeRetries int
	navTimeout       time.Duration
	requestTimeout   time.Duration
	userAgent        string
	headers          []string
	render           string
	renderNavigation bool
	headful          bool
	terminalHosts    []string
	keywords         []string
	exclude          []string
	includeExternal  bool
	keepBoilerplate  bool
	rateLimit        float64
}

func (f *engineFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.maxSteps, "max-steps", 0, "maximum actions per run (default 15)")
	flags.DurationVar(&f.wallClock, "wall-clock", 0, "time budget per run (default 90s)")
	flags.DurationVar(&f.stepDelayMin, "step-delay-min", 0, "shortest pause between actions (default 2s)")
	flags.DurationVar(&f.stepDelayMax, "step-delay-max", 0, "longest pause between actions (default 5s)")
	flags.DurationVar(&f.challengeBudget, "challenge-budget", 0, "time allowed to pass one bot check (default 40s)")
	flags.IntVar(&f.challengeRetries, "challenge-retries", 0, "re-entries after an unsolved bot check, 0 for none (default 3)")
	flags.DurationVar(&f.navTimeout, "nav-timeout", 0, "wait for a click to navigate (default 60s)")
	flags.DurationVar(&f.requestTimeout, "request-timeout", 0, "timeout of one HTTP exchange (default 20s)")
	flags.StringVar(&f.userAgent, "user-agent", "", "User-Agent sent with every request")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, `extra request header, "Name: value" (repeatable)`)
	flags.StringVar(&f.render, "render", "", "browser renderer for clicks and bot checks: chromedp, rod or none")
	flags.Lookup("render").NoOptDefVal = config.RendererChromedp
	flags.BoolVar(&f.renderNavigation, "render-navigation", false, "load every page in the browser")
	flags.BoolVar(&f.headful, "headful", false, "show the browser window")
	flags.StringSliceVar(&f.terminalHosts, "terminal-host", nil, "extra destination host or keyword (repeatable)")
	flags.StringSliceVar(&f.keywords, "keyword", nil, "extra link label keyword to extract (repeatable)")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "domain or URL substring never extracted (repeatable)")
	flags.BoolVar(&f.includeExternal, "include-external", false, "extract every link to another host")
	flags.BoolVar(&f.keepBoilerplate, "keep-boilerplate", false, "also extract links in navigation, header and footer")
	flags.Float64Var(&f.rateLimit, "rate-limit", 0, "requests per second across all runs, 0 for no limit")
}

// apply copies the flags set on cmd into c
func (f *engineFlags) apply(cmd *cobra.Command, c *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("max-steps") {
		c.Engine.MaxSteps = f.maxSteps
	}
	if changed("wall-clock") {
		c.Engine.WallClockBudget = f.wallClock
	}
	if changed("step-delay-min") {
		c.Engine.StepDelayMin = f.stepDelayMin
	}
	if changed("step-delay-max") {
		c.Engine.StepDelayMax = f.stepDelayMax
	}
	if changed("challenge-budget") {
		c.Engine.ChallengeBudget = f.challengeBudget
	}
	if changed("challenge-retries") {
		c.Engine.ChallengeRetries = f.challengeRetries
		if f.challengeRetries == 0 {
			c.Engine.ChallengeRetries = linkwalk.NoChallengeRetries
		}
	}
	if changed("nav-timeout") {
		c.Engine.NavigationTimeout = f.navTimeout
	}
	if changed("request-timeout") {
		c.Engine.RequestTimeout = f.requestTimeout
	}
	if changed("user-agent") {
		c.Engine.UserAgent = f.userAgent
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		if c.Engine.Headers == nil {
			c.Engine.Headers = map[string]string{}
		}
		c.Engine.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if changed("render") {
		c.Browser.Renderer = strings.ToLower(f.render)
	}
	if changed("render-navigation") {
		c.Engine.RenderNavigation = f.renderNavigation
	}
	if changed("headful") {
		c.Browser.Headful = f.headful
	}
	c.Terminal.Hosts = append(c.Terminal.Hosts, f.terminalHosts...)
	c.Extract.Keywords = append(c.Extract.Keywords, f.keywords...)
	c.Extract.Exclude = append(c.Extract.Exclude, f.exclude...)
	if changed("include-external") {
		c.Extract.IncludeExternal = f.includeExternal
	}
	if changed("keep-boilerplate") {
		c.Extract.KeepBoilerplate = f.keepBoilerplate
	}
	if changed("rate-limit") {
		c.RateLimit.RequestsPerSecond = f.rateLimit
		if f.rateLimit > 0 && c.RateLimit.Burst <= 0 {
			c.RateLimit.Burst = 1
		}
	}
	return c.Validate()
}
