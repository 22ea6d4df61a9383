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
	"errors"
	"fmt"
)

var (
	// ErrMissingURL is returned when a request has no entry URL
	ErrMissingURL = errors.New("missing entry URL")
	// ErrUnsupportedScheme is returned for anything other than http and https
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrNoPattern is returned when a LimitRule has neither DomainGlob nor DomainRegexp
	ErrNoPattern = errors.New("no pattern defined in LimitRule")
	// ErrTooManyRedirects is returned when a fetch exceeds the redirect cap
	ErrTooManyRedirects = errors.New("stopped after 10 redirects")
	// ErrNoRenderer is returned when an action needs an interactive session
	// and the resolver has none
	ErrNoRenderer = errors.New("no interactive renderer configured")
	// ErrChallengeBudget is returned when a challenge is still shown after
	// the solve budget is spent
	ErrChallengeBudget = errors.New("challenge still present after solve budget")
	// ErrEmptyPattern is returned for an empty terminal host entry
	ErrEmptyPattern = errors.New("empty host pattern")
	// ErrNoAdvance is the cause of a NoActionFound failure when every
	// candidate left the page unchanged
	ErrNoAdvance = errors.New("no candidate advanced the page")
	// ErrPageRevisited is the cause of a LoopDetected failure
	ErrPageRevisited = errors.New("page revisited")
)

// ErrorKind classifies an ExecutionError.
type ErrorKind int

const (
	NetworkFailure ErrorKind = iota
	NavigationTimeout
	ElementNotFound
	ChallengeFailed
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case NavigationTimeout:
		return "navigation timeout"
	case ElementNotFound:
		return "element not found"
	case ChallengeFailed:
		return "challenge failed"
	}
	return "unknown"
}

// ExecutionError is returned by the executor when an action could not be
// carried out. It is always recoverable at the chain level.
type ExecutionError struct {
	Kind   ErrorKind
	Action AdvanceAction
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Action == nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func execError(kind ErrorKind, action AdvanceAction, err error) *ExecutionError {
	return &ExecutionError{Kind: kind, Action: action, Err: err}
}

// isChallengeFailure reports whether err ends a challenge attempt.
func isChallengeFailure(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee) && ee.Kind == ChallengeFailed
}
