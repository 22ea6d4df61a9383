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
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserConfig configures a headless browser renderer.
type BrowserConfig struct {
	// Headful shows the browser window. Useful for debugging challenges.
	Headful bool
	// ExecPath overrides the browser binary. Empty searches the usual
	// locations.
	ExecPath  string
	UserAgent string
}

// ChromedpRenderer drives a local Chrome over the DevTools protocol. The
// browser is started on the first NewPage call, and every page lives in its
// own browser context so runs never share cookies.
type ChromedpRenderer struct {
	cfg BrowserConfig

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedpRenderer returns a renderer that launches Chrome lazily.
func NewChromedpRenderer(cfg BrowserConfig) *ChromedpRenderer {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &ChromedpRenderer{cfg: cfg}
}

func (r *ChromedpRenderer) start() error {
	if r.browserCtx != nil {
		return nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !r.cfg.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(r.cfg.UserAgent),
	)
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("chromedp start failed: %w", err)
	}
	r.allocCancel = allocCancel
	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	return nil
}

// NewPage opens a tab in a fresh browser context.
func (r *ChromedpRenderer) NewPage(ctx context.Context) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.start(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(r.browserCtx, chromedp.WithNewBrowserContext())
	p := &chromedpPage{ctx: tabCtx, cancel: cancel}
	if err := p.run(ctx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("chromedp new page failed: %w", err)
	}
	return p, nil
}

// Close shuts the browser down.
func (r *ChromedpRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.browserCtx = nil
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, giving up when either the tab or ctx
// ends.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *chromedpPage) Navigate(ctx context.Context, rawURL string) error {
	return p.run(ctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromedpPage) Location(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *chromedpPage) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	var markup string
	err := p.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

func (p *chromedpPage) Has(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector)), &found))
	return found, err
}

func (p *chromedpPage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

const frameListJS = `Array.from(document.querySelectorAll('iframe')).map(f => f.src || '')`

func (p *chromedpPage) Frames(ctx context.Context) ([]Frame, error) {
	var srcs []string
	if err := p.run(ctx, chromedp.Evaluate(frameListJS, &srcs)); err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(srcs))
	for i, src := range srcs {
		frames = append(frames, &chromedpFrame{page: p, index: i, url: src})
	}
	return frames, nil
}

func (p *chromedpPage) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var loc string
	var cookies []*network.Cookie
	err := p.run(ctx,
		chromedp.Location(&loc),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{loc}).Do(ctx)
			return err
		}),
	)
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

func (p *chromedpPage) SetCookies(ctx context.Context, cookies []*http.Cookie) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HttpOnly).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

func (p *chromedpPage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

// chromedpFrame addresses an iframe by its position in the parent
// document. Same-origin frames are queried through contentDocument;
// cross-origin frames (challenge widgets) only expose their box, so clicks
// land on the widget's checkbox position inside it.
type chromedpFrame struct {
	page  *chromedpPage
	index int
	url   string
}

func (f *chromedpFrame) URL() string { return f.url }

type frameProbe struct {
	Visible bool    `json:"visible"`
	Cross   bool    `json:"cross"`
	Found   bool    `json:"found"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

const frameProbeJS = `(() => {
	const f = document.querySelectorAll('iframe')[%d];
	if (!f) return {visible: false};
	const r = f.getBoundingClientRect();
	const out = {visible: r.width > 0 && r.height > 0, cross: false, found: false, x: r.left, y: r.top, width: r.width, height: r.height};
	let doc = null;
	try { doc = f.contentDocument; } catch (e) { doc = null; }
	if (!doc) { out.cross = true; return out; }
	const el = doc.querySelector(%s);
	if (el) {
		const er = el.getBoundingClientRect();
		out.found = true;
		out.x = r.left + er.left;
		out.y = r.top + er.top;
		out.width = er.width;
		out.height = er.height;
	}
	return out;
})()`

func (f *chromedpFrame) probe(ctx context.Context, selector string) (frameProbe, error) {
	var res frameProbe
	err := f.page.run(ctx, chromedp.Evaluate(fmt.Sprintf(frameProbeJS, f.index, jsString(selector)), &res))
	return res, err
}

func (f *chromedpFrame) Has(ctx context.Context, selector string) (bool, error) {
	res, err := f.probe(ctx, selector)
	if err != nil {
		return false, err
	}
	if res.Cross {
		return res.Visible, nil
	}
	return res.Found, nil
}

func (f *chromedpFrame) Click(ctx context.Context, selector string) error {
	res, err := f.probe(ctx, selector)
	if err != nil {
		return err
	}
	if !res.Visible {
		return fmt.Errorf("frame %d is not visible", f.index)
	}
	x, y := res.X+res.Width/2, res.Y+res.Height/2
	switch {
	case res.Cross:
		x = res.X + min(30, res.Width/2)
	case !res.Found:
		return fmt.Errorf("no element matching %q in frame %d", selector, f.index)
	}
	return f.page.run(ctx, chromedp.MouseClickXY(x, y))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
