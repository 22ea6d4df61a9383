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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/types"
)

// activeRun tracks a resolution still in flight
type activeRun struct {
	id          string
	entryURL    string
	site        string
	startedAt   time.Time
	cancel      context.CancelFunc
	stopped     bool
	steps       int
	currentURL  string
	statusMutex sync.RWMutex // Protects stopped, steps and currentURL
}

// startRun registers a run and returns the context it must use
func (a *App) startRun(parent context.Context, id, entryURL, site string) (context.Context, *activeRun) {
	ctx, cancel := context.WithCancel(parent)
	ar := &activeRun{
		id:        id,
		entryURL:  entryURL,
		site:      site,
		startedAt: a.now(),
		cancel:    cancel,
	}
	a.runsMutex.Lock()
	a.activeRuns[id] = ar
	a.runsMutex.Unlock()

	a.emitter.Emit(EventRunStarted, ar.progress())
	return ctx, ar
}

// finishRun forgets a run and releases its context
func (a *App) finishRun(ar *activeRun) {
	a.runsMutex.Lock()
	delete(a.activeRuns, ar.id)
	a.runsMutex.Unlock()
	ar.cancel()
}

// onStep is the resolver's step callback. It runs on the resolving
// goroutine of the run named by ev.RunID.
func (a *App) onStep(ev linkwalk.StepEvent) {
	a.runsMutex.RLock()
	ar, exists := a.activeRuns[ev.RunID]
	a.runsMutex.RUnlock()
	if exists {
		ar.statusMutex.Lock()
		ar.steps = ev.Index
		ar.currentURL = ev.Step.URL
		ar.statusMutex.Unlock()
	}

	a.emitter.Emit(EventRunStep, types.StepProgress{
		RunID:    ev.RunID,
		EntryURL: ev.EntryURL,
		Attempt:  ev.Attempt,
		Index:    ev.Index,
		Step:     stepInfo(ev.Step),
	})
}

func (ar *activeRun) progress() types.ActiveRun {
	ar.statusMutex.RLock()
	defer ar.statusMutex.RUnlock()
	return types.ActiveRun{
		RunID:      ar.id,
		EntryURL:   ar.entryURL,
		Site:       ar.site,
		StartedAt:  ar.startedAt.Unix(),
		Steps:      ar.steps,
		CurrentURL: ar.currentURL,
	}
}

// GetActiveRuns returns the progress of all active runs, oldest first
func (a *App) GetActiveRuns() []types.ActiveRun {
	a.runsMutex.RLock()
	defer a.runsMutex.RUnlock()

	progress := make([]types.ActiveRun, 0, len(a.activeRuns))
	for _, ar := range a.activeRuns {
		progress = append(progress, ar.progress())
	}
	sort.Slice(progress, func(i, j int) bool {
		if progress[i].StartedAt != progress[j].StartedAt {
			return progress[i].StartedAt < progress[j].StartedAt
		}
		return progress[i].RunID < progress[j].RunID
	})
	return progress
}

// StopRun cancels an active run. The run still completes, with outcome
// failed and reason cancelled.
func (a *App) StopRun(id string) error {
	a.runsMutex.RLock()
	ar, exists := a.activeRuns[id]
	a.runsMutex.RUnlock()
	if !exists {
		return fmt.Errorf("no active run found with id %s", id)
	}

	ar.statusMutex.Lock()
	ar.stopped = true
	ar.statusMutex.Unlock()
	ar.cancel()
	a.logger.Info("stop signal sent", "run", id)
	a.emitter.Emit(EventRunStopped, ar.progress())
	return nil
}
