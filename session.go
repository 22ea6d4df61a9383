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
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// SessionConfig carries the collaborators a Session fetches with.
type SessionConfig struct {
	// Transport is the HTTP round tripper. Nil uses a transport with a
	// browser-like TLS fingerprint.
	Transport http.RoundTripper
	// Renderer opens the interactive page used by clicks and challenges.
	// Nil disables interactive actions.
	Renderer Renderer
	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter
	// LimitRules restrict per-domain parallelism and delay.
	LimitRules []*LimitRule
	Logger     *slog.Logger
}

// Session is the per-run transport state: a cookie jar, an HTTP client and
// at most one interactive page. Sessions are not shared between runs.
type Session struct {
	opts     *Options
	backend  *httpBackend
	jar      http.CookieJar
	renderer Renderer
	page     Page
	shown    string
	now      func() time.Time
	logger   *slog.Logger
}

// NewSession returns a session with an empty cookie jar.
func NewSession(opts *Options, cfg SessionConfig) (*Session, error) {
	opts = mergeOptions(DefaultOptions(), opts)
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	backend := &httpBackend{limiter: cfg.Limiter}
	backend.Init(jar, cfg.Transport, opts.RequestTimeout)
	for _, rule := range cfg.LimitRules {
		// Rules shared between sessions are initialised once by their owner
		// so that parallelism limits hold across runs.
		if rule.waitChan != nil {
			backend.LimitRules = append(backend.LimitRules, rule)
			continue
		}
		if err := backend.Limit(rule); err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		opts:     opts,
		backend:  backend,
		jar:      jar,
		renderer: cfg.Renderer,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Interactive reports whether the session can click and solve challenges.
func (s *Session) Interactive() bool {
	return s.renderer != nil
}

// Fetch performs a plain HTTP request. For GET, fields are appended to the
// query string; for POST they are sent form-encoded.
func (s *Session) Fetch(ctx context.Context, method, target string, fields url.Values, headers http.Header) (*PageSnapshot, error) {
	u, err := parseURL(target)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if method == http.MethodGet {
		if len(fields) > 0 {
			q := u.Query()
			for k, vs := range fields {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
		}
	} else {
		body = strings.NewReader(fields.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range s.opts.Headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range headers {
		req.Header[k] = append([]string(nil), vs...)
	}

	res, err := s.backend.Do(ctx, req, s.opts.MaxBodySize, !s.opts.DisableCharsetDetection)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("fetched", "method", method, "url", res.FinalURL.String(), "status", res.StatusCode,
		"redirects", len(res.RedirectChain), "connect", res.Trace.ConnectDuration, "first_byte", res.Trace.FirstByteDuration)
	snap := newSnapshot(res.FinalURL, res.StatusCode, string(res.Body), res.Headers, res.RedirectChain, s.now(), false)
	snap.firstByte = res.Trace.FirstByteDuration
	return snap, nil
}

// Navigate loads target in the interactive page and captures the result.
func (s *Session) Navigate(ctx context.Context, target string) (*PageSnapshot, error) {
	page, err := s.interactivePage(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.pushCookies(ctx, page, target); err != nil {
		s.logger.Debug("cookie sync to browser failed", "error", err)
	}
	if err := page.Navigate(ctx, target); err != nil {
		return nil, err
	}
	return s.Capture(ctx, page)
}

// Show returns the interactive page displaying snap, loading it first when
// the page is elsewhere.
func (s *Session) Show(ctx context.Context, snap *PageSnapshot) (Page, error) {
	page, err := s.interactivePage(ctx)
	if err != nil {
		return nil, err
	}
	if s.shown != "" && s.shown == normalizeURL(snap.URL()) {
		return page, nil
	}
	if _, err := s.Navigate(ctx, snap.URL()); err != nil {
		return nil, err
	}
	return page, nil
}

// Capture snapshots the interactive page and copies its cookies into the
// session jar so later plain fetches carry any clearance cookie.
func (s *Session) Capture(ctx context.Context, page Page) (*PageSnapshot, error) {
	loc, err := page.Location(ctx)
	if err != nil {
		return nil, err
	}
	markup, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	u, err := parseURL(loc)
	if err != nil {
		return nil, err
	}
	if cookies, err := page.Cookies(ctx); err == nil && len(cookies) > 0 {
		s.jar.SetCookies(u, cookies)
	}
	s.shown = normalizeURL(loc)
	return newSnapshot(u, http.StatusOK, markup, nil, nil, s.now(), true), nil
}

// plant adds the cookies for u whose names the jar does not hold yet.
func (s *Session) plant(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	have := make(map[string]bool)
	for _, c := range s.jar.Cookies(u) {
		have[c.Name] = true
	}
	add := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if !have[c.Name] {
			add = append(add, c)
		}
	}
	if len(add) > 0 {
		s.jar.SetCookies(u, add)
	}
}

// forget drops what the interactive page is known to display, so the next
// Show loads the page again even when the tab is still on its URL.
func (s *Session) forget() {
	s.shown = ""
}

// Close releases the interactive page, if one was opened.
func (s *Session) Close() error {
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	s.shown = ""
	return err
}

func (s *Session) interactivePage(ctx context.Context) (Page, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}
	if s.page == nil {
		page, err := s.renderer.NewPage(ctx)
		if err != nil {
			return nil, err
		}
		s.page = page
	}
	return s.page, nil
}

func (s *Session) pushCookies(ctx context.Context, page Page, target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	jarCookies := s.jar.Cookies(u)
	if len(jarCookies) == 0 {
		return nil
	}
	out := make([]*http.Cookie, 0, len(jarCookies))
	for _, c := range jarCookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Domain: u.Hostname(), Path: "/"})
	}
	return page.SetCookies(ctx, out)
}
