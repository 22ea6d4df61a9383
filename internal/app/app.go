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

package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/config"
	"github.com/agentberlin/linkwalk/internal/sites"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/go-resty/resty/v2"
)

// ErrNoRenderer is returned when a caller asks for rendered navigation and
// no browser renderer is configured
var ErrNoRenderer = errors.New("rendered navigation needs a browser renderer (set browser.renderer)")

// App represents the core application logic
type App struct {
	cfg        *config.Config
	resolver   *linkwalk.Resolver
	renderer   linkwalk.Renderer
	sites      *sites.Registry
	store      *store.Store
	emitter    EventEmitter
	logger     *slog.Logger
	transport  http.RoundTripper
	now        func() time.Time
	activeRuns map[string]*activeRun
	runsMutex  sync.RWMutex
}

// Option customises an App
type Option func(*App)

// WithTransport routes every request, API sites included, through rt
func WithTransport(rt http.RoundTripper) Option {
	return func(a *App) { a.transport = rt }
}

// WithRenderer overrides the renderer built from the configuration
func WithRenderer(r linkwalk.Renderer) Option {
	return func(a *App) { a.renderer = r }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// NewApp creates a new App instance with dependencies injected. A nil store
// disables run history.
func NewApp(cfg *config.Config, st *store.Store, emitter EventEmitter, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if emitter == nil {
		emitter = &NoOpEmitter{}
	}

	a := &App{
		cfg:        cfg,
		store:      st,
		emitter:    emitter,
		logger:     slog.Default(),
		now:        time.Now,
		activeRuns: make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.renderer == nil {
		a.renderer = cfg.Renderer()
	}

	client := resty.New().
		SetHeader("user-agent", userAgent(cfg)).
		SetHeader("accept", "application/json").
		SetTimeout(15 * time.Second)
	if a.transport != nil {
		client.SetTransport(a.transport)
	}
	registry, err := sites.NewRegistry(sites.Config{
		Client:        client,
		UserAgent:     cfg.Engine.UserAgent,
		TerminalHosts: cfg.Terminal.Hosts,
		Rule:          cfg.ExtractionRule(),
	})
	if err != nil {
		return nil, err
	}
	a.sites = registry

	r := linkwalk.NewResolver(cfg.Options())
	r.SetLogger(a.logger)
	if a.transport != nil {
		r.WithTransport(a.transport)
	}
	if a.renderer != nil {
		r.SetRenderer(a.renderer)
	}
	if limiter := cfg.Limiter(); limiter != nil {
		r.SetLimiter(limiter)
	}
	for _, rule := range cfg.RateLimit.Domains {
		if err := r.Limit(rule); err != nil {
			return nil, fmt.Errorf("rate limit %s%s: %w", rule.DomainGlob, rule.DomainRegexp, err)
		}
	}
	r.SetOnStep(a.onStep)
	a.resolver = r

	return a, nil
}

// Close stops the browser renderer, if one was started
func (a *App) Close() error {
	if a.renderer == nil {
		return nil
	}
	return a.renderer.Close()
}

// Interactive reports whether a browser renderer is available
func (a *App) Interactive() bool {
	return a.renderer != nil
}

// Sites lists the registered site handlers, generic last
func (a *App) Sites() []types.SiteInfo {
	var out []types.SiteInfo
	for _, s := range a.sites.Sites() {
		out = append(out, types.SiteInfo{Name: s.Name, Description: s.Description, Interactive: s.Interactive})
	}
	return out
}

func userAgent(cfg *config.Config) string {
	if cfg.Engine.UserAgent != "" {
		return cfg.Engine.UserAgent
	}
	return linkwalk.DefaultUserAgent
}

// CheckSystemHealth checks that the configured renderer has a browser to
// drive
func (a *App) CheckSystemHealth() *types.SystemHealthCheck {
	switch a.cfg.Browser.Renderer {
	case config.RendererNone:
		return &types.SystemHealthCheck{IsHealthy: true}
	case config.RendererRod:
		// rod downloads its own browser when none is found
		if a.cfg.Browser.ExecPath == "" {
			return &types.SystemHealthCheck{IsHealthy: true}
		}
	}

	if !isChromeBrowserAvailable(a.cfg.Browser.ExecPath) {
		return &types.SystemHealthCheck{
			IsHealthy:  false,
			ErrorTitle: "Chrome Browser Required",
			ErrorMsg:   "Google Chrome or Chromium is required for the " + a.cfg.Browser.Renderer + " renderer but was not found on your system.",
			Suggestion: "Install Google Chrome from https://www.google.com/chrome/ or set browser.exec_path (LINKWALK_CHROME_PATH) to your Chrome binary.\n\nPlain chains still resolve without a browser, but bot checks and click-only buttons will fail.",
		}
	}

	return &types.SystemHealthCheck{
		IsHealthy: true,
	}
}

// isChromeBrowserAvailable checks if Chrome or Chromium is available
func isChromeBrowserAvailable(execPath string) bool {
	if execPath != "" {
		_, err := os.Stat(execPath)
		return err == nil
	}
	if customPath := os.Getenv("CHROME_EXECUTABLE_PATH"); customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return true
		}
	}

	var chromePaths []string
	switch runtime.GOOS {
	case "darwin":
		chromePaths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			os.Getenv("HOME") + "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	case "windows":
		chromePaths = []string{
			os.Getenv("ProgramFiles") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("ProgramFiles(x86)") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("LocalAppData") + "\\Google\\Chrome\\Application\\chrome.exe",
		}
	case "linux":
		chromePaths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
