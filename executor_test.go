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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeClock advances only when something sleeps on it.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

// fakePage is a scripted browser tab.
type fakePage struct {
	mu        sync.Mutex
	location  string
	title     string
	html      string
	routes    map[string]string
	selectors map[string]bool
	frames    []*fakeFrame
	onClick   func(p *fakePage, selector string)
	clicks    []string
	cookies   []*http.Cookie
	closed    bool
	// navigations counts Navigate calls.
	navigations int
}

func (p *fakePage) Navigate(_ context.Context, rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations++
	p.location = rawURL
	if html, ok := p.routes[rawURL]; ok {
		p.html = html
	}
	return nil
}

func (p *fakePage) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePage) Title(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *fakePage) Has(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectors[selector], nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	onClick := p.onClick
	p.mu.Unlock()
	if onClick != nil {
		onClick(p, selector)
	}
	return nil
}

func (p *fakePage) Frames(context.Context) ([]Frame, error) {
	frames := make([]Frame, 0, len(p.frames))
	for _, f := range p.frames {
		frames = append(frames, f)
	}
	return frames, nil
}

func (p *fakePage) Cookies(context.Context) ([]*http.Cookie, error) {
	return p.cookies, nil
}

func (p *fakePage) SetCookies(context.Context, []*http.Cookie) error {
	return nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

func (p *fakePage) set(location, title, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location, p.title, p.html = location, title, html
}

type fakeFrame struct {
	url       string
	selectors map[string]bool
	onClick   func(selector string)
	clicks    []string
}

func (f *fakeFrame) URL() string { return f.url }

func (f *fakeFrame) Has(_ context.Context, selector string) (bool, error) {
	return f.selectors[selector], nil
}

func (f *fakeFrame) Click(_ context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	if f.onClick != nil {
		f.onClick(selector)
	}
	return nil
}

type fakeRenderer struct {
	page   *fakePage
	opened int
}

func (r *fakeRenderer) NewPage(context.Context) (Page, error) {
	r.opened++
	return r.page, nil
}

func (r *fakeRenderer) Close() error { return nil }

func newTestExecutor(clk *fakeClock) *Executor {
	return &Executor{opts: DefaultOptions(), now: clk.now, sleep: clk.sleep, logger: discardLogger}
}

func newTestSession(t *testing.T, rt http.RoundTripper, r Renderer, clk *fakeClock) *Session {
	t.Helper()
	sess, err := NewSession(nil, SessionConfig{Transport: rt, Renderer: r, Logger: discardLogger})
	if err != nil {
		t.Fatal(err)
	}
	sess.now = clk.now
	t.Cleanup(func() { sess.Close() })
	return sess
}

func mustSnapshot(t *testing.T, rawURL, body string) *PageSnapshot {
	t.Helper()
	s, err := NewPageSnapshot(rawURL, 200, body)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func executionKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("Expected *ExecutionError, got %T: %v", err, err)
	}
	return ee.Kind
}

func TestExecuteFollowSendsReferer(t *testing.T) {
	clk := newFakeClock()
	mock := NewMockTransport()
	mock.RegisterHTML("https://gate.example/next", "<html><body>next</body></html>")
	sess := newTestSession(t, mock, nil, clk)
	current := mustSnapshot(t, "https://gate.example/start", "<html></html>")

	next, err := newTestExecutor(clk).Execute(context.Background(), sess, current, FollowURL{Target: "https://gate.example/next"})
	if err != nil {
		t.Fatal(err)
	}
	if next.URL() != "https://gate.example/next" {
		t.Errorf("Expected next URL, got %s", next.URL())
	}
	if got := mock.Requests()[0].Header.Get("Referer"); got != "https://gate.example/start" {
		t.Errorf("Expected Referer of the current page, got %q", got)
	}
}

func TestExecuteFollowServerError(t *testing.T) {
	clk := newFakeClock()
	mock := NewMockTransport()
	mock.RegisterResponse("https://gate.example/broken", &MockResponse{StatusCode: 502, Body: "bad gateway"})
	sess := newTestSession(t, mock, nil, clk)
	current := mustSnapshot(t, "https://gate.example/start", "<html></html>")

	_, err := newTestExecutor(clk).Execute(context.Background(), sess, current, FollowURL{Target: "https://gate.example/broken"})
	if kind := executionKind(t, err); kind != NetworkFailure {
		t.Errorf("Expected NetworkFailure, got %v", kind)
	}
}

func TestExecuteSubmitAJAXFollowsJSONRedirect(t *testing.T) {
	clk := newFakeClock()
	mock := NewMockTransport()
	mock.RegisterJSON("https://gate.example/links/go", `{"status":"success","url":"https://hubcloud.example/file/9"}`)
	mock.RegisterHTML("https://hubcloud.example/file/9", "<html><body>file</body></html>")
	sess := newTestSession(t, mock, nil, clk)
	current := mustSnapshot(t, "https://gate.example/abc", "<html></html>")

	action := SubmitForm{
		Action: "https://gate.example/links/go",
		Method: "post",
		Fields: url.Values{"_token": {"t0k"}, "alias": {"abc"}},
		AJAX:   true,
	}
	next, err := newTestExecutor(clk).Execute(context.Background(), sess, current, action)
	if err != nil {
		t.Fatal(err)
	}
	if next.URL() != "https://hubcloud.example/file/9" {
		t.Errorf("Expected JSON redirect target, got %s", next.URL())
	}

	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(reqs))
	}
	post := reqs[0]
	if post.Method != http.MethodPost {
		t.Errorf("Expected POST, got %s", post.Method)
	}
	if post.Header.Get("X-Requested-With") != "XMLHttpRequest" {
		t.Error("Expected X-Requested-With header on AJAX submit")
	}
	if post.Header.Get("Origin") != "https://gate.example" {
		t.Errorf("Expected Origin header, got %q", post.Header.Get("Origin"))
	}
	if post.Body != "_token=t0k&alias=abc" {
		t.Errorf("Unexpected form body %q", post.Body)
	}
}

func TestExecuteWaitSleepsThenRefetches(t *testing.T) {
	clk := newFakeClock()
	mock := NewMockTransport()
	mock.RegisterHTML("https://gate.example/timer", "<html><body>ready</body></html>")
	sess := newTestSession(t, mock, nil, clk)
	current := mustSnapshot(t, "https://gate.example/timer", "<html><body>wait 7 seconds</body></html>")

	next, err := newTestExecutor(clk).Execute(context.Background(), sess, current, WaitThenReevaluate{Duration: 7 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if len(clk.sleeps) != 1 || clk.sleeps[0] != 7*time.Second {
		t.Errorf("Expected a single 7s sleep, got %v", clk.sleeps)
	}
	if next.Text() != "ready" {
		t.Errorf("Expected refetched page, got %q", next.Text())
	}
}

func TestExecuteClickNavigates(t *testing.T) {
	clk := newFakeClock()
	page := &fakePage{
		routes:    map[string]string{"https://gate.example/p": `<html><body><button id="go">Continue</button></body></html>`},
		selectors: map[string]bool{"button#go": true},
	}
	page.onClick = func(p *fakePage, selector string) {
		p.set("https://gate.example/next", "", "<html><body>next</body></html>")
	}
	renderer := &fakeRenderer{page: page}
	sess := newTestSession(t, NewMockTransport(), renderer, clk)
	current := mustSnapshot(t, "https://gate.example/p", `<html><body><button id="go">Continue</button></body></html>`)

	next, err := newTestExecutor(clk).Execute(context.Background(), sess, current, ClickSelector{Selector: "button#go"})
	if err != nil {
		t.Fatal(err)
	}
	if next.URL() != "https://gate.example/next" {
		t.Errorf("Expected navigation to /next, got %s", next.URL())
	}
	if !next.Rendered() {
		t.Error("Expected a rendered snapshot")
	}
	if renderer.opened != 1 {
		t.Errorf("Expected one page opened, got %d", renderer.opened)
	}
}

func TestExecuteClickWithoutNavigationReturnsCurrent(t *testing.T) {
	clk := newFakeClock()
	page := &fakePage{selectors: map[string]bool{"button#go": true}}
	sess := newTestSession(t, NewMockTransport(), &fakeRenderer{page: page}, clk)
	current := mustSnapshot(t, "https://gate.example/p", "<html></html>")

	start := clk.now()
	next, err := newTestExecutor(clk).Execute(context.Background(), sess, current, ClickSelector{Selector: "button#go"})
	if err != nil {
		t.Fatal(err)
	}
	if next != current {
		t.Error("Expected the current snapshot back when nothing navigated")
	}
	if waited := clk.now().Sub(start); waited < DefaultOptions().NavigationTimeout {
		t.Errorf("Expected to wait out the navigation timeout, waited %v", waited)
	}
}

func TestExecuteClickFailures(t *testing.T) {
	clk := newFakeClock()
	current := mustSnapshot(t, "https://gate.example/p", "<html></html>")

	sess := newTestSession(t, NewMockTransport(), nil, clk)
	_, err := newTestExecutor(clk).Execute(context.Background(), sess, current, ClickSelector{Selector: "button#go"})
	if kind := executionKind(t, err); kind != ElementNotFound {
		t.Errorf("Expected ElementNotFound without a renderer, got %v", kind)
	}
	if !errors.Is(err, ErrNoRenderer) {
		t.Errorf("Expected ErrNoRenderer cause, got %v", err)
	}

	page := &fakePage{selectors: map[string]bool{}}
	sess = newTestSession(t, NewMockTransport(), &fakeRenderer{page: page}, clk)
	_, err = newTestExecutor(clk).Execute(context.Background(), sess, current, ClickSelector{Selector: "button#missing"})
	if kind := executionKind(t, err); kind != ElementNotFound {
		t.Errorf("Expected ElementNotFound for a missing element, got %v", kind)
	}
	if len(page.clicks) != 0 {
		t.Errorf("Expected no clicks, got %v", page.clicks)
	}
}

const challengeHTML = `<html><head><title>Just a moment...</title></head>
<body><div class="cf-turnstile"><iframe src="https://challenges.cloudflare.com/cdn-cgi/challenge-platform/turnstile"></iframe></div></body></html>`

func TestExecuteSolveChallenge(t *testing.T) {
	clk := newFakeClock()
	frame := &fakeFrame{
		url:       "https://challenges.cloudflare.com/cdn-cgi/challenge-platform/turnstile",
		selectors: map[string]bool{"input[type='checkbox']": true},
	}
	page := &fakePage{
		routes: map[string]string{"https://filepress.example/file/1": challengeHTML},
		title:  "Just a moment...",
		frames: []*fakeFrame{frame},
	}
	frame.onClick = func(string) {
		page.set("https://filepress.example/file/1", "FilePress", `<html><body><a href="https://gofile.io/d/x">Download</a></body></html>`)
	}
	page.cookies = []*http.Cookie{{Name: "cf_clearance", Value: "ok", Path: "/"}}
	sess := newTestSession(t, NewMockTransport(), &fakeRenderer{page: page}, clk)
	current := mustSnapshot(t, "https://filepress.example/file/1", challengeHTML)

	next, err := newTestExecutor(clk).Execute(context.Background(), sess, current, SolveChallenge{FrameURL: frame.url})
	if err != nil {
		t.Fatal(err)
	}
	if ChallengePresent(next.Title(), next.Body()) {
		t.Error("Expected the challenge to be gone")
	}
	if len(frame.clicks) != 1 || frame.clicks[0] != "input[type='checkbox']" {
		t.Errorf("Expected the checkbox to be clicked once, got %v", frame.clicks)
	}
	u, _ := url.Parse("https://filepress.example/")
	if len(sess.jar.Cookies(u)) == 0 {
		t.Error("Expected clearance cookie copied into the session jar")
	}
}

func TestExecuteSolveChallengeBudget(t *testing.T) {
	clk := newFakeClock()
	page := &fakePage{
		routes:    map[string]string{"https://filepress.example/file/1": challengeHTML},
		title:     "Just a moment...",
		selectors: map[string]bool{"body": true},
	}
	sess := newTestSession(t, NewMockTransport(), &fakeRenderer{page: page}, clk)
	current := mustSnapshot(t, "https://filepress.example/file/1", challengeHTML)

	_, err := newTestExecutor(clk).Execute(context.Background(), sess, current, SolveChallenge{})
	if kind := executionKind(t, err); kind != ChallengeFailed {
		t.Errorf("Expected ChallengeFailed, got %v", kind)
	}
	if !errors.Is(err, ErrChallengeBudget) {
		t.Errorf("Expected ErrChallengeBudget, got %v", err)
	}
	if len(page.clicks) == 0 {
		t.Error("Expected body clicks while no frame was present")
	}
}

func TestExecuteSolveWithoutRenderer(t *testing.T) {
	clk := newFakeClock()
	sess := newTestSession(t, NewMockTransport(), nil, clk)
	current := mustSnapshot(t, "https://filepress.example/file/1", challengeHTML)

	_, err := newTestExecutor(clk).Execute(context.Background(), sess, current, SolveChallenge{})
	if !isChallengeFailure(err) {
		t.Errorf("Expected a challenge failure, got %v", err)
	}
}
