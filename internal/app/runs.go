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
	"context"
	"sync"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/sites"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/google/uuid"
)

// Resolve resolves one entry URL with the site that owns it, records the
// run in history and returns it. over, when set, overrides the engine
// options of this run only. The error is reserved for input the run could
// not start with; an unsuccessful run is reported in the detail.
func (a *App) Resolve(ctx context.Context, rawURL string, over *linkwalk.Options) (*types.RunDetail, error) {
	entry, err := normalizeEntry(rawURL)
	if err != nil {
		return nil, err
	}
	site, target, err := a.sites.Lookup(entry)
	if err != nil {
		return nil, err
	}
	if over != nil && over.RenderNavigation && a.renderer == nil {
		return nil, ErrNoRenderer
	}
	if site.Interactive && a.renderer == nil {
		a.logger.Warn("site expects a browser renderer, bot checks will fail", "site", site.Name, "url", entry)
	}

	id := uuid.NewString()
	runCtx, ar := a.startRun(ctx, id, entry, site.Name)
	defer a.finishRun(ar)

	a.logger.Info("resolving", "run", id, "site", site.Name, "url", target)
	var res *linkwalk.Result
	if site.Resolve != nil {
		res = site.Resolve(runCtx, target)
	} else {
		req := site.Request(target)
		req.ID = id
		req.Options = req.Options.Merge(over)
		res = a.resolver.Resolve(runCtx, req)
	}

	ar.statusMutex.RLock()
	stopped := ar.stopped
	ar.statusMutex.RUnlock()
	detail := newRunDetail(id, entry, site.Name, res, a.now().Unix())
	a.logger.Info("run finished", "run", id, "outcome", detail.RunInfo.Outcome, "reason", detail.RunInfo.Reason,
		"links", detail.RunInfo.LinkCount, "steps", detail.RunInfo.Steps, "stopped", stopped)

	a.saveRun(detail)
	a.emitter.Emit(EventRunCompleted, detail.RunInfo)
	return detail, nil
}

// ResolveAll resolves urls with at most parallelism concurrent runs and
// returns one detail per url, in input order. URLs that could not start get
// a failed detail carrying the error.
func (a *App) ResolveAll(ctx context.Context, urls []string, parallelism int, over *linkwalk.Options) []*types.RunDetail {
	if parallelism <= 0 {
		parallelism = a.cfg.Batch.Parallelism
	}
	if parallelism <= 0 {
		parallelism = linkwalk.DefaultParallelism
	}
	out := make([]*types.RunDetail, len(urls))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, u := range urls {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out[i] = rejectedRun(u, ctx.Err(), linkwalk.FailureCancelled)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			detail, err := a.Resolve(ctx, u, over)
			if err != nil {
				detail = rejectedRun(u, err, linkwalk.FailureNetwork)
			}
			out[i] = detail
		}()
	}
	wg.Wait()
	return out
}

// ListRuns returns stored runs, newest first
func (a *App) ListRuns(filter store.RunFilter) ([]types.RunInfo, error) {
	if a.store == nil {
		return []types.RunInfo{}, nil
	}
	runs, err := a.store.ListRuns(filter)
	if err != nil {
		return nil, err
	}
	out := make([]types.RunInfo, 0, len(runs))
	for i := range runs {
		out = append(out, runInfo(&runs[i]))
	}
	return out, nil
}

// GetRun returns a stored run by id or unique id prefix
func (a *App) GetRun(id string) (*types.RunDetail, error) {
	if a.store == nil {
		return nil, store.ErrRunNotFound
	}
	run, err := a.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	detail := &types.RunDetail{
		RunInfo: runInfo(run),
		Links:   make([]types.LinkInfo, 0, len(run.Links)),
		Trail:   make([]types.StepInfo, 0, len(run.Trail)),
	}
	for _, l := range run.Links {
		detail.Links = append(detail.Links, types.LinkInfo{
			Label:    l.Label,
			URL:      l.URL,
			Context:  l.Context,
			Position: l.Position,
			Quality:  l.Quality,
		})
	}
	for _, s := range run.Trail {
		detail.Trail = append(detail.Trail, types.StepInfo{
			URL:         s.URL,
			Status:      s.Status,
			Strategy:    s.Strategy,
			Action:      s.Action,
			Rendered:    s.Rendered,
			AtMs:        s.AtMs,
			FirstByteMs: s.FirstByteMs,
		})
	}
	return detail, nil
}

// DeleteRun removes a stored run by id or unique id prefix
func (a *App) DeleteRun(id string) error {
	if a.store == nil {
		return store.ErrRunNotFound
	}
	return a.store.DeleteRun(id)
}

// GetStats counts stored runs by outcome
func (a *App) GetStats() (*types.RunStats, error) {
	if a.store == nil {
		return &types.RunStats{}, nil
	}
	st, err := a.store.Stats()
	if err != nil {
		return nil, err
	}
	return &types.RunStats{Total: st.Total, Resolved: st.Resolved, Failed: st.Failed, TimedOut: st.TimedOut}, nil
}

// GroupByQuality buckets links by their quality label in display order
func GroupByQuality(links []types.LinkInfo) []types.QualityGroup {
	buckets := make(map[string][]types.LinkInfo)
	for _, l := range links {
		buckets[l.Quality] = append(buckets[l.Quality], l)
	}
	var out []types.QualityGroup
	for _, q := range sites.Qualities {
		if len(buckets[q]) > 0 {
			out = append(out, types.QualityGroup{Quality: q, Links: buckets[q]})
		}
	}
	return out
}

func (a *App) saveRun(detail *types.RunDetail) {
	if a.store == nil {
		return
	}
	info := detail.RunInfo
	run := &store.Run{
		UUID:       info.ID,
		EntryURL:   info.EntryURL,
		FinalURL:   info.FinalURL,
		Site:       info.Site,
		Outcome:    info.Outcome,
		Reason:     info.Reason,
		Error:      info.Error,
		Steps:      info.Steps,
		DurationMs: info.DurationMs,
		CreatedAt:  info.CreatedAt,
	}
	for _, l := range detail.Links {
		run.Links = append(run.Links, store.RunLink{
			Label:    l.Label,
			URL:      l.URL,
			Context:  l.Context,
			Position: l.Position,
			Quality:  l.Quality,
		})
	}
	for _, s := range detail.Trail {
		run.Trail = append(run.Trail, store.RunStep{
			URL:         s.URL,
			Status:      s.Status,
			Strategy:    s.Strategy,
			Action:      s.Action,
			Rendered:    s.Rendered,
			AtMs:        s.AtMs,
			FirstByteMs: s.FirstByteMs,
		})
	}
	if err := a.store.CreateRun(run); err != nil {
		a.logger.Warn("failed to save run", "run", info.ID, "error", err)
	}
}

func newRunDetail(id, entry, site string, res *linkwalk.Result, createdAt int64) *types.RunDetail {
	detail := &types.RunDetail{
		RunInfo: types.RunInfo{
			ID:         id,
			EntryURL:   entry,
			FinalURL:   res.URL,
			Site:       site,
			Outcome:    res.Outcome.String(),
			Reason:     res.Reason.String(),
			Error:      res.Error(),
			Steps:      res.Steps,
			DurationMs: res.Elapsed.Milliseconds(),
			LinkCount:  len(res.Links),
			CreatedAt:  createdAt,
		},
		Links: make([]types.LinkInfo, 0, len(res.Links)),
		Trail: make([]types.StepInfo, 0, len(res.Trail)),
	}
	for _, l := range res.Links {
		detail.Links = append(detail.Links, types.LinkInfo{
			Label:    l.Label,
			URL:      l.URL,
			Context:  l.Context,
			Position: l.Position,
			Quality:  sites.Quality(l.Label, l.Context),
		})
	}
	for _, s := range res.Trail {
		detail.Trail = append(detail.Trail, stepInfo(s))
	}
	return detail
}

// rejectedRun describes a batch entry that never ran
func rejectedRun(rawURL string, err error, reason linkwalk.FailureKind) *types.RunDetail {
	return newRunDetail("", rawURL, "", &linkwalk.Result{Outcome: linkwalk.Failed, Reason: reason, Err: err}, 0)
}

func stepInfo(s linkwalk.Step) types.StepInfo {
	return types.StepInfo{
		URL:         s.URL,
		Status:      s.Status,
		Strategy:    s.Strategy,
		Action:      s.Action,
		Rendered:    s.Rendered,
		AtMs:        s.At.UnixMilli(),
		FirstByteMs: s.FirstByte.Milliseconds(),
	}
}

func runInfo(r *store.Run) types.RunInfo {
	return types.RunInfo{
		ID:         r.UUID,
		EntryURL:   r.EntryURL,
		FinalURL:   r.FinalURL,
		Site:       r.Site,
		Outcome:    r.Outcome,
		Reason:     r.Reason,
		Error:      r.Error,
		Steps:      r.Steps,
		DurationMs: r.DurationMs,
		LinkCount:  len(r.Links),
		CreatedAt:  r.CreatedAt,
	}
}
