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

package linkwalk

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodRenderer drives Chrome through rod with the stealth evasions applied
// to every page. It is the renderer to use against bot checks that
// fingerprint automation.
type RodRenderer struct {
	cfg BrowserConfig

	mu      sync.Mutex
	lnch    *launcher.Launcher
	browser *rod.Browser
}

func NewRodRenderer(cfg BrowserConfig) *RodRenderer {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &RodRenderer{cfg: cfg}
}

func (r *RodRenderer) start() error {
	if r.browser != nil {
		return nil
	}
	l := launcher.New().
		Headless(!r.cfg.Headful).
		Set("disable-blink-features", "AutomationControlled")
	if r.cfg.ExecPath != "" {
		l = l.Bin(r.cfg.ExecPath)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("rod launch failed: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("rod connect failed: %w", err)
	}
	r.lnch = l
	r.browser = b
	return nil
}

// NewPage opens a stealth page in an incognito context.
func (r *RodRenderer) NewPage(ctx context.Context) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.start(); err != nil {
		return nil, err
	}
	incognito, err := r.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("rod incognito failed: %w", err)
	}
	page, err := stealth.Page(incognito)
	if err != nil {
		return nil, fmt.Errorf("rod new page failed: %w", err)
	}
	err = page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.cfg.UserAgent})
	if err != nil {
		page.Close()
		return nil, err
	}
	return &rodPage{page: page}, nil
}

func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.lnch.Cleanup()
	r.browser = nil
	r.lnch = nil
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, rawURL string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(rawURL); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) Location(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	found, _, err := p.page.Context(ctx).Has(selector)
	return found, err
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	return rodClick(p.page.Context(ctx), selector)
}

func (p *rodPage) Frames(ctx context.Context) ([]Frame, error) {
	els, err := p.page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(els))
	for _, el := range els {
		src, err := el.Attribute("src")
		if err != nil {
			continue
		}
		fp, err := el.Frame()
		if err != nil {
			continue
		}
		f := &rodFrame{page: fp}
		if src != nil {
			f.url = *src
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func (p *rodPage) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	pg := p.page.Context(ctx)
	info, err := pg.Info()
	if err != nil {
		return nil, err
	}
	cookies, err := pg.Cookies([]string{info.URL})
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

func (p *rodPage) SetCookies(ctx context.Context, cookies []*http.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return p.page.Context(ctx).SetCookies(params)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

type rodFrame struct {
	page *rod.Page
	url  string
}

func (f *rodFrame) URL() string { return f.url }

func (f *rodFrame) Has(ctx context.Context, selector string) (bool, error) {
	found, _, err := f.page.Context(ctx).Has(selector)
	return found, err
}

func (f *rodFrame) Click(ctx context.Context, selector string) error {
	return rodClick(f.page.Context(ctx), selector)
}

func rodClick(pg *rod.Page, selector string) error {
	found, el, err := pg.Has(selector)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no element matching %q", selector)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}
