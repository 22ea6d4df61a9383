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
	"strconv"
	"time"
)

// State is a chain controller state.
type State int

const (
	StateInit State = iota
	StateFetching
	StateClassifying
	StateActing
	StateTerminalMatched
	StateExtracting
	StateDone
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateFetching:
		return "FETCHING"
	case StateClassifying:
		return "CLASSIFYING"
	case StateActing:
		return "ACTING"
	case StateTerminalMatched:
		return "TERMINAL_MATCHED"
	case StateExtracting:
		return "EXTRACTING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	case StateTimedOut:
		return "TIMED_OUT"
	}
	return "UNKNOWN"
}

// chainState is the mutable record of one attempt at a run.
// stepCount == len(history)-1 holds after every record call.
type chainState struct {
	visited    []string
	visitedSet map[string]bool
	pages      map[string]bool
	stepCount  int
	lastAction AdvanceAction
	startedAt  time.Time
	history    []*PageSnapshot
}

func newChainState(startedAt time.Time) *chainState {
	return &chainState{
		visitedSet: make(map[string]bool),
		pages:      make(map[string]bool),
		startedAt:  startedAt,
	}
}

// record appends snap reached through action. The entry snapshot is
// recorded with a nil action and does not count as a step.
func (c *chainState) record(snap *PageSnapshot, action AdvanceAction) {
	key := normalizeURL(snap.URL())
	if !c.visitedSet[key] {
		c.visitedSet[key] = true
		c.visited = append(c.visited, key)
	}
	c.pages[pageKey(snap)] = true
	if len(c.history) > 0 {
		c.stepCount++
	}
	c.lastAction = action
	c.history = append(c.history, snap)
}

// repeats reports whether moving from current to next revisits a page:
// either another URL already in the visited set, or the same URL showing
// content seen before.
func (c *chainState) repeats(current, next *PageSnapshot) bool {
	nextKey := normalizeURL(next.URL())
	if nextKey != normalizeURL(current.URL()) {
		return c.visitedSet[nextKey]
	}
	return c.pages[pageKey(next)]
}

func (c *chainState) current() *PageSnapshot {
	if len(c.history) == 0 {
		return nil
	}
	return c.history[len(c.history)-1]
}

func pageKey(s *PageSnapshot) string {
	return normalizeURL(s.URL()) + "#" + strconv.FormatUint(s.Fingerprint(), 16)
}
