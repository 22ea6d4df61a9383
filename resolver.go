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
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Request is one resolution job.
type Request struct {
	// ID is an opaque caller label echoed in StepEvent.
	ID       string
	EntryURL string
	// Terminal decides when the chain is done. Nil uses DefaultTerminal.
	Terminal TerminalPredicate
	// Rule selects the links returned from the terminal page. Nil uses
	// DefaultExtractionRule.
	Rule *ExtractionRule
	// Options override the resolver's options for this run.
	Options *Options
	// Prepare returns cookies to plant for a page before the run acts from
	// it. Cookies the jar already holds are kept.
	Prepare func(u *url.URL) []*http.Cookie
}

// StepEvent is reported to the OnStep callback whenever a run reaches a
// page.
type StepEvent struct {
	RunID    string
	EntryURL string
	Attempt  int
	Index    int
	Step     Step
}

// Resolver walks link-protector chains. A Resolver holds configuration
// only; every Resolve call gets its own session and chain state, so one
// Resolver can serve concurrent runs.
type Resolver struct {
	opts       *Options
	transport  http.RoundTripper
	renderer   Renderer
	limiter    *rate.Limiter
	limitRules []*LimitRule
	classifier *Classifier
	logger     *slog.Logger
	onStep     func(StepEvent)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver returns a resolver with opts merged over DefaultOptions.
func NewResolver(opts *Options) *Resolver {
	return &Resolver{
		opts:   mergeOptions(DefaultOptions(), opts),
		logger: slog.Default(),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// WithTransport sets the HTTP round tripper used by every run.
func (r *Resolver) WithTransport(transport http.RoundTripper) {
	r.transport = transport
}

// SetRenderer enables interactive actions (clicks, challenges).
func (r *Resolver) SetRenderer(renderer Renderer) {
	r.renderer = renderer
}

// SetLimiter installs a limiter shared by all runs of this resolver.
func (r *Resolver) SetLimiter(limiter *rate.Limiter) {
	r.limiter = limiter
}

// Limit adds a per-domain LimitRule shared by all runs.
func (r *Resolver) Limit(rule *LimitRule) error {
	if err := rule.Init(); err != nil {
		return err
	}
	r.limitRules = append(r.limitRules, rule)
	return nil
}

// SetClassifier replaces the default strategy list.
func (r *Resolver) SetClassifier(c *Classifier) {
	r.classifier = c
}

// SetLogger sets the structured logger. Nil restores slog.Default().
func (r *Resolver) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.logger = logger
}

// SetOnStep registers a callback invoked for every page a run reaches.
// The callback runs on the resolving goroutine.
func (r *Resolver) SetOnStep(f func(StepEvent)) {
	r.onStep = f
}

// Options returns a copy of the resolver's options.
func (r *Resolver) Options() *Options {
	return mergeOptions(r.opts, nil)
}

// Resolve walks the chain starting at req.EntryURL and returns exactly one
// Result. Failures are reported in the Result, never as a panic or a nil.
func (r *Resolver) Resolve(ctx context.Context, req *Request) *Result {
	start := r.now()
	if req == nil || strings.TrimSpace(req.EntryURL) == "" {
		return &Result{Outcome: Failed, Reason: FailureNetwork, Err: ErrMissingURL}
	}
	opts := mergeOptions(r.opts, req.Options)
	terminal := req.Terminal
	if terminal == nil {
		terminal = DefaultTerminal()
	}
	classifier := r.classifier
	if classifier == nil {
		classifier = NewClassifier(DefaultStrategies(opts)...)
	}
	logger := r.logger.With("entry", req.EntryURL)

	sess, err := NewSession(opts, SessionConfig{
		Transport:  r.transport,
		Renderer:   r.renderer,
		Limiter:    r.limiter,
		LimitRules: r.limitRules,
		Logger:     logger,
	})
	if err != nil {
		return &Result{Outcome: Failed, Reason: FailureNetwork, Err: err, Elapsed: r.now().Sub(start)}
	}
	sess.now = r.now
	defer sess.Close()

	runCtx, cancel := context.WithTimeout(ctx, opts.WallClockBudget)
	defer cancel()

	u := &run{
		resolver:   r,
		req:        req,
		opts:       opts,
		terminal:   terminal,
		classifier: classifier,
		sess:       sess,
		exec:       &Executor{opts: opts, now: r.now, sleep: r.sleep, logger: logger},
		parent:     ctx,
		ctx:        runCtx,
		deadline:   start.Add(opts.WallClockBudget),
		logger:     logger,
	}
	res := u.execute()
	res.Elapsed = r.now().Sub(start)
	logger.Info("run finished", "outcome", res.Outcome.String(), "reason", res.Reason.String(), "url", res.URL, "steps", res.Steps, "links", len(res.Links), "elapsed", res.Elapsed)
	return res
}

// run is the state of one Resolve call.
type run struct {
	resolver   *Resolver
	req        *Request
	opts       *Options
	terminal   TerminalPredicate
	classifier *Classifier
	sess       *Session
	exec       *Executor
	parent     context.Context
	ctx        context.Context
	deadline   time.Time
	logger     *slog.Logger

	state   *chainState
	status  State
	attempt int
	trail   []Step
	// unsolved counts failed challenge solves; challenged is set while the
	// last page reached still shows a bot check.
	unsolved   int
	challenged bool
}

func (u *run) execute() *Result {
	u.transition(StateInit)
	for {
		res, challengeErr := u.walk()
		if challengeErr == nil {
			return res
		}
		if u.attempt >= u.opts.ChallengeRetries {
			return u.fail(FailureChallengeUnsolved, challengeErr)
		}
		u.attempt++
		u.logger.Warn("challenge unsolved, re-entering", "attempt", u.attempt, "error", challengeErr)
		if res := u.pace(); res != nil {
			return res
		}
	}
}

// walk runs the chain once from the entry URL. A non-nil error means a bot
// check could not be solved and the caller should re-enter.
func (u *run) walk() (*Result, error) {
	u.state = newChainState(u.resolver.now())
	// Re-entries must show the browser a fresh load of the challenge.
	u.sess.forget()
	u.prepare(u.req.EntryURL)
	u.transition(StateFetching)
	snap, err := u.fetchEntry()
	if err != nil {
		if res := u.interrupted(); res != nil {
			return res, nil
		}
		return u.fail(FailureNetwork, err), nil
	}
	u.record(snap, Candidate{})

	for {
		if res := u.interrupted(); res != nil {
			return res, nil
		}
		if IsTerminal(snap, u.terminal) {
			return u.resolve(snap), nil
		}

		u.transition(StateClassifying)
		candidates := u.classifier.Classify(snap)
		if len(candidates) == 0 {
			return u.fail(FailureNoActionFound, nil), nil
		}
		if u.state.stepCount >= u.opts.MaxSteps {
			return u.fail(FailureStepBudgetExceeded, fmt.Errorf("%d steps taken", u.state.stepCount)), nil
		}

		u.transition(StateActing)
		next, used, err := u.advance(snap, candidates)
		if err != nil {
			if isChallengeFailure(err) {
				u.unsolved++
			}
			if res := u.interrupted(); res != nil {
				return res, nil
			}
			switch {
			case isChallengeFailure(err):
				return nil, err
			case errors.Is(err, ErrPageRevisited):
				return u.fail(FailureLoopDetected, err), nil
			default:
				return u.fail(FailureNoActionFound, err), nil
			}
		}
		u.record(next, used)
		snap = next

		if res := u.pace(); res != nil {
			return res, nil
		}
		u.transition(StateFetching)
	}
}

// advance tries the candidates in rank order until one changes the page.
func (u *run) advance(current *PageSnapshot, candidates []Candidate) (*PageSnapshot, Candidate, error) {
	var lastErr error
	for _, c := range candidates {
		u.logger.Info("acting", "step", u.state.stepCount+1, "strategy", c.Strategy, "action", c.Action.String())
		next, err := u.executeWithRetry(current, c)
		if err != nil {
			if isChallengeFailure(err) || u.ctx.Err() != nil {
				return nil, c, err
			}
			u.logger.Warn("action failed", "strategy", c.Strategy, "action", c.Action.String(), "error", err)
			lastErr = err
			continue
		}
		if next.sameAs(current) {
			u.logger.Debug("action left page unchanged", "strategy", c.Strategy, "action", c.Action.String())
			continue
		}
		if u.state.repeats(current, next) {
			return nil, c, fmt.Errorf("%w: %s", ErrPageRevisited, next.URL())
		}
		return next, c, nil
	}
	if lastErr == nil {
		lastErr = ErrNoAdvance
	}
	return nil, Candidate{}, lastErr
}

// executeWithRetry runs c once more after a backoff when it fails.
// Challenge failures and missing-renderer errors are not retried.
func (u *run) executeWithRetry(current *PageSnapshot, c Candidate) (*PageSnapshot, error) {
	next, err := u.exec.Execute(u.ctx, u.sess, current, c.Action)
	if err == nil || isChallengeFailure(err) || errors.Is(err, ErrNoRenderer) || u.ctx.Err() != nil {
		return next, err
	}
	u.logger.Info("retrying action", "action", c.Action.String(), "backoff", u.opts.RetryBackoff, "error", err)
	if serr := u.resolver.sleep(u.ctx, u.opts.RetryBackoff); serr != nil {
		return nil, err
	}
	return u.exec.Execute(u.ctx, u.sess, current, c.Action)
}

func (u *run) fetchEntry() (*PageSnapshot, error) {
	fetch := func() (*PageSnapshot, error) {
		if u.opts.RenderNavigation && u.sess.Interactive() {
			return u.sess.Navigate(u.ctx, u.req.EntryURL)
		}
		snap, err := u.sess.Fetch(u.ctx, http.MethodGet, u.req.EntryURL, nil, nil)
		if err != nil {
			return nil, err
		}
		if snap.Status() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server returned %d for %s", snap.Status(), snap.URL())
		}
		return snap, nil
	}
	snap, err := fetch()
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, ErrUnsupportedScheme) || u.ctx.Err() != nil {
		return nil, err
	}
	u.logger.Info("retrying entry fetch", "backoff", u.opts.RetryBackoff, "error", err)
	if serr := u.resolver.sleep(u.ctx, u.opts.RetryBackoff); serr != nil {
		return nil, err
	}
	return fetch()
}

// pace waits a random delay between actions. It returns a result when the
// run was interrupted while waiting.
func (u *run) pace() *Result {
	d := u.opts.InterStepDelayMin
	if span := u.opts.InterStepDelayMax - u.opts.InterStepDelayMin; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if err := u.resolver.sleep(u.ctx, d); err != nil {
		if res := u.interrupted(); res != nil {
			return res
		}
		return u.timedOut()
	}
	return u.interrupted()
}

// interrupted returns a terminal result when the caller cancelled or the
// wall-clock budget is spent.
func (u *run) interrupted() *Result {
	if u.parent.Err() != nil {
		return u.fail(FailureCancelled, u.parent.Err())
	}
	if u.ctx.Err() != nil || !u.resolver.now().Before(u.deadline) {
		return u.timedOut()
	}
	return nil
}

func (u *run) record(snap *PageSnapshot, c Candidate) {
	u.state.record(snap, c.Action)
	u.challenged = ChallengePresent(snap.Title(), snap.Body())
	u.prepare(snap.URL())
	step := Step{
		URL:       snap.URL(),
		Status:    snap.Status(),
		Strategy:  c.Strategy,
		Rendered:  snap.Rendered(),
		At:        snap.FetchedAt(),
		FirstByte: snap.FirstByte(),
	}
	if c.Action != nil {
		step.Action = c.Action.String()
	}
	u.trail = append(u.trail, step)
	u.logger.Debug("reached page", "step", u.state.stepCount, "url", step.URL, "status", step.Status)
	if u.resolver.onStep != nil {
		u.resolver.onStep(StepEvent{
			RunID:    u.req.ID,
			EntryURL: u.req.EntryURL,
			Attempt:  u.attempt,
			Index:    u.state.stepCount,
			Step:     step,
		})
	}
}

// prepare plants the request's cookies and the step counter for pageURL.
func (u *run) prepare(pageURL string) {
	target, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	if u.req.Prepare != nil {
		u.sess.plant(target, u.req.Prepare(target))
	}
	if u.opts.StepCookie != "" {
		u.sess.jar.SetCookies(target, []*http.Cookie{{
			Name:  u.opts.StepCookie,
			Value: strconv.Itoa(u.state.stepCount),
			Path:  "/",
		}})
	}
}

func (u *run) transition(s State) {
	u.logger.Debug("state", "from", u.status.String(), "to", s.String())
	u.status = s
}

func (u *run) resolve(snap *PageSnapshot) *Result {
	u.transition(StateTerminalMatched)
	u.transition(StateExtracting)
	links := Extract(snap, u.req.Rule)
	u.transition(StateDone)
	return &Result{
		Outcome: Resolved,
		URL:     snap.URL(),
		Links:   links,
		Steps:   u.state.stepCount,
		Trail:   u.trail,
	}
}

func (u *run) fail(kind FailureKind, err error) *Result {
	u.transition(StateFailed)
	res := &Result{
		Outcome: Failed,
		Reason:  kind,
		Err:     err,
		Trail:   u.trail,
	}
	if u.state != nil {
		res.Steps = u.state.stepCount
		if cur := u.state.current(); cur != nil {
			res.URL = cur.URL()
		}
	}
	return res
}

// timedOut ends a run whose wall-clock budget is spent. A run that ran out
// of time still stuck behind a bot check it failed to solve is reported as
// ChallengeUnsolved rather than TimedOut.
func (u *run) timedOut() *Result {
	if u.unsolved > 0 && u.challenged {
		return u.fail(FailureChallengeUnsolved, fmt.Errorf("%w: wall-clock budget spent after %d failed solves", ErrChallengeBudget, u.unsolved))
	}
	u.transition(StateTimedOut)
	res := &Result{
		Outcome: TimedOut,
		Err:     context.DeadlineExceeded,
		Trail:   u.trail,
	}
	if u.state != nil {
		res.Steps = u.state.stepCount
		if cur := u.state.current(); cur != nil {
			res.URL = cur.URL()
		}
	}
	return res
}
