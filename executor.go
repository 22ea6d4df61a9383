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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// navigationPoll is how often a click is checked for a resulting navigation.
const navigationPoll = 250 * time.Millisecond

// challengeSelectors are tried in order inside a challenge frame before
// falling back to a body click.
var challengeSelectors = []string{
	"input[type='checkbox']",
	".ctp-checkbox-label, .ctp-checkbox-container, .mark",
}

// ajaxRedirectKeys are the JSON fields AJAX continue endpoints return the
// next hop in.
var ajaxRedirectKeys = []string{"url", "redirect", "link", "destination"}

// Executor performs advance actions against a Session.
type Executor struct {
	opts   *Options
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// NewExecutor returns an executor using opts for its timeouts.
func NewExecutor(opts *Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		opts:   mergeOptions(DefaultOptions(), opts),
		now:    time.Now,
		sleep:  sleepContext,
		logger: logger,
	}
}

// Execute performs action from the page current and returns the next
// snapshot. Errors are *ExecutionError values.
func (e *Executor) Execute(ctx context.Context, sess *Session, current *PageSnapshot, action AdvanceAction) (*PageSnapshot, error) {
	switch a := action.(type) {
	case FollowURL:
		return e.follow(ctx, sess, current, a)
	case SubmitForm:
		return e.submit(ctx, sess, current, a)
	case ClickSelector:
		return e.click(ctx, sess, current, a)
	case WaitThenReevaluate:
		return e.wait(ctx, sess, current, a)
	case SolveChallenge:
		return e.solve(ctx, sess, current, a)
	}
	return nil, execError(ElementNotFound, action, fmt.Errorf("unsupported action %T", action))
}

func (e *Executor) follow(ctx context.Context, sess *Session, current *PageSnapshot, a FollowURL) (*PageSnapshot, error) {
	if e.opts.RenderNavigation && sess.Interactive() {
		next, err := sess.Navigate(ctx, a.Target)
		if err != nil {
			return nil, transportError(a, err)
		}
		return next, nil
	}
	headers := http.Header{}
	if current != nil {
		headers.Set("Referer", current.URL())
	}
	return e.fetch(ctx, sess, a, http.MethodGet, a.Target, nil, headers)
}

func (e *Executor) submit(ctx context.Context, sess *Session, current *PageSnapshot, a SubmitForm) (*PageSnapshot, error) {
	method := strings.ToUpper(a.Method)
	if method != http.MethodGet {
		method = http.MethodPost
	}
	headers := http.Header{}
	if current != nil {
		headers.Set("Referer", current.URL())
		if u, err := parseURL(current.URL()); err == nil {
			headers.Set("Origin", u.Scheme+"://"+u.Host)
		}
	}
	if method == http.MethodPost && a.AJAX {
		headers.Set("X-Requested-With", "XMLHttpRequest")
		headers.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	}
	next, err := e.fetch(ctx, sess, a, method, a.Action, a.Fields, headers)
	if err != nil || !a.AJAX {
		return next, err
	}
	// AJAX endpoints often answer with the next hop as JSON instead of a page.
	if target, ok := ajaxRedirect(next); ok {
		e.logger.Debug("ajax form returned redirect", "target", target)
		headers := http.Header{"Referer": []string{current.URL()}}
		return e.fetch(ctx, sess, a, http.MethodGet, target, nil, headers)
	}
	return next, nil
}

func (e *Executor) click(ctx context.Context, sess *Session, current *PageSnapshot, a ClickSelector) (*PageSnapshot, error) {
	page, err := sess.Show(ctx, current)
	if err != nil {
		if errors.Is(err, ErrNoRenderer) {
			return nil, execError(ElementNotFound, a, err)
		}
		return nil, transportError(a, err)
	}
	before, err := page.Location(ctx)
	if err != nil {
		return nil, transportError(a, err)
	}

	if a.Frame != "" {
		frame, err := findFrame(ctx, page, a.Frame)
		if err != nil {
			return nil, execError(ElementNotFound, a, err)
		}
		if err := frame.Click(ctx, a.Selector); err != nil {
			return nil, execError(ElementNotFound, a, err)
		}
	} else {
		if ok, err := page.Has(ctx, a.Selector); err != nil || !ok {
			if err == nil {
				err = fmt.Errorf("no element matches %q", a.Selector)
			}
			return nil, execError(ElementNotFound, a, err)
		}
		if err := page.Click(ctx, a.Selector); err != nil {
			return nil, execError(ElementNotFound, a, err)
		}
	}

	deadline := e.now().Add(e.opts.NavigationTimeout)
	for e.now().Before(deadline) {
		if err := e.sleep(ctx, navigationPoll); err != nil {
			return nil, execError(NavigationTimeout, a, err)
		}
		loc, err := page.Location(ctx)
		if err != nil {
			continue
		}
		if normalizeURL(loc) != normalizeURL(before) {
			next, err := sess.Capture(ctx, page)
			if err != nil {
				return nil, transportError(a, err)
			}
			return next, nil
		}
	}
	// No navigation within the cap: hand back the page unchanged and let
	// the chain fall through to the next candidate.
	e.logger.Debug("click did not navigate", "selector", a.Selector, "timeout", e.opts.NavigationTimeout)
	return current, nil
}

func (e *Executor) wait(ctx context.Context, sess *Session, current *PageSnapshot, a WaitThenReevaluate) (*PageSnapshot, error) {
	if err := e.sleep(ctx, a.Duration); err != nil {
		return nil, execError(NavigationTimeout, a, err)
	}
	if current.Rendered() && sess.Interactive() {
		page, err := sess.Show(ctx, current)
		if err != nil {
			return nil, transportError(a, err)
		}
		next, err := sess.Capture(ctx, page)
		if err != nil {
			return nil, transportError(a, err)
		}
		return next, nil
	}
	return e.fetch(ctx, sess, a, http.MethodGet, current.URL(), nil, nil)
}

func (e *Executor) solve(ctx context.Context, sess *Session, current *PageSnapshot, a SolveChallenge) (*PageSnapshot, error) {
	page, err := sess.Show(ctx, current)
	if err != nil {
		return nil, execError(ChallengeFailed, a, err)
	}
	deadline := e.now().Add(e.opts.ChallengeBudget)
	for {
		title, _ := page.Title(ctx)
		markup, _ := page.HTML(ctx)
		if !ChallengePresent(title, markup) {
			next, err := sess.Capture(ctx, page)
			if err != nil {
				return nil, transportError(a, err)
			}
			return next, nil
		}
		if !e.now().Before(deadline) {
			return nil, execError(ChallengeFailed, a, ErrChallengeBudget)
		}
		e.solveOnce(ctx, page, a)
		if err := e.sleep(ctx, e.opts.ChallengePollInterval); err != nil {
			return nil, execError(ChallengeFailed, a, err)
		}
	}
}

// solveOnce tries each challenge frame's checkbox, then its wrapper, then
// the frame body, and finally the outer body when no frame took a click.
func (e *Executor) solveOnce(ctx context.Context, page Page, a SolveChallenge) {
	frames, err := page.Frames(ctx)
	if err != nil {
		e.logger.Debug("listing frames failed", "error", err)
	}
	for _, f := range frames {
		if !isChallengeFrame(f.URL()) && (a.FrameURL == "" || !strings.Contains(f.URL(), a.FrameURL)) {
			continue
		}
		for _, sel := range append(challengeSelectors, "body") {
			if ok, err := f.Has(ctx, sel); err != nil || !ok {
				continue
			}
			if err := f.Click(ctx, sel); err == nil {
				e.logger.Debug("clicked challenge affordance", "frame", f.URL(), "selector", sel)
				return
			}
		}
	}
	if err := page.Click(ctx, "body"); err != nil {
		e.logger.Debug("body click failed", "error", err)
	}
}

func (e *Executor) fetch(ctx context.Context, sess *Session, a AdvanceAction, method, target string, fields url.Values, headers http.Header) (*PageSnapshot, error) {
	next, err := sess.Fetch(ctx, method, target, fields, headers)
	if err != nil {
		return nil, transportError(a, err)
	}
	if next.Status() >= http.StatusInternalServerError {
		return nil, execError(NetworkFailure, a, fmt.Errorf("server returned %d for %s", next.Status(), next.URL()))
	}
	return next, nil
}

func findFrame(ctx context.Context, page Page, match string) (Frame, error) {
	frames, err := page.Frames(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if strings.Contains(f.URL(), match) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no frame matches %q", match)
}

// transportError classifies a fetch or navigation error.
func transportError(a AdvanceAction, err error) *ExecutionError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return execError(NavigationTimeout, a, err)
	}
	return execError(NetworkFailure, a, err)
}

func ajaxRedirect(s *PageSnapshot) (string, bool) {
	if !strings.Contains(strings.ToLower(s.Header("Content-Type")), "json") {
		return "", false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(s.Body()), &payload); err != nil {
		return "", false
	}
	for _, k := range ajaxRedirectKeys {
		if v, ok := payload[k].(string); ok && navigable(v) {
			if target, err := s.ResolveReference(v); err == nil {
				return target, true
			}
		}
	}
	return "", false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
