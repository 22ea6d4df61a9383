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
	"encoding/json"
	"time"
)

// Outcome is the discriminant of a Result.
type Outcome int

const (
	Resolved Outcome = iota
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// FailureKind says why a run ended in Failed.
type FailureKind int

const (
	NoFailure FailureKind = iota
	FailureNetwork
	FailureChallengeUnsolved
	FailureNoActionFound
	FailureLoopDetected
	FailureStepBudgetExceeded
	FailureCancelled
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return ""
	case FailureNetwork:
		return "network_failure"
	case FailureChallengeUnsolved:
		return "challenge_unsolved"
	case FailureNoActionFound:
		return "no_action_found"
	case FailureLoopDetected:
		return "loop_detected"
	case FailureStepBudgetExceeded:
		return "step_budget_exceeded"
	case FailureCancelled:
		return "cancelled"
	}
	return "unknown"
}

func (k FailureKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Step is one entry of a run's trail: the page reached and the action that
// reached it. The entry fetch has no action.
type Step struct {
	URL      string    `json:"url"`
	Status   int       `json:"status"`
	Strategy string    `json:"strategy,omitempty"`
	Action   string    `json:"action,omitempty"`
	Rendered bool      `json:"rendered,omitempty"`
	At       time.Time `json:"at"`
	// FirstByte is the server's time to first byte for plain fetches
	FirstByte time.Duration `json:"first_byte,omitempty"`
}

// Result is the single value a resolution run produces.
type Result struct {
	Outcome Outcome `json:"outcome"`
	// URL is the terminal page address for Resolved runs and the last page
	// reached otherwise.
	URL   string `json:"url,omitempty"`
	Links []Link `json:"links,omitempty"`
	// Reason is set for Failed runs.
	Reason FailureKind `json:"reason,omitempty"`
	// Err carries the underlying cause, when there is one.
	Err error `json:"-"`
	// Steps is the number of actions taken in the final attempt.
	Steps int `json:"steps"`
	// Trail lists every page reached, across challenge re-entries.
	Trail   []Step        `json:"trail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Ok reports whether the run resolved.
func (r *Result) Ok() bool {
	return r.Outcome == Resolved
}

// Error returns a short description of an unsuccessful run, or "".
func (r *Result) Error() string {
	switch r.Outcome {
	case Resolved:
		return ""
	case TimedOut:
		return "timed out"
	}
	if r.Err != nil {
		return r.Reason.String() + ": " + r.Err.Error()
	}
	return r.Reason.String()
}
