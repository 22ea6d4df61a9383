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
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ActionKind identifies the variant of an AdvanceAction.
type ActionKind int

const (
	ActionFollowURL ActionKind = iota
	ActionSubmitForm
	ActionClickSelector
	ActionWait
	ActionSolveChallenge
)

func (k ActionKind) String() string {
	switch k {
	case ActionFollowURL:
		return "follow"
	case ActionSubmitForm:
		return "submit"
	case ActionClickSelector:
		return "click"
	case ActionWait:
		return "wait"
	case ActionSolveChallenge:
		return "challenge"
	}
	return "unknown"
}

// AdvanceAction is one step the executor can take to move past an obstacle.
// Concrete types are FollowURL, SubmitForm, ClickSelector,
// WaitThenReevaluate and SolveChallenge.
type AdvanceAction interface {
	Kind() ActionKind
	String() string
}

// FollowURL navigates to Target.
type FollowURL struct {
	Target string
}

func (FollowURL) Kind() ActionKind { return ActionFollowURL }

func (a FollowURL) String() string { return "follow " + a.Target }

// SubmitForm sends the declared fields of a form to Action.
type SubmitForm struct {
	Action string
	// Method is GET or POST.
	Method string
	Fields url.Values
	// AJAX marks forms that submit through XMLHttpRequest on the live site.
	AJAX bool
}

func (SubmitForm) Kind() ActionKind { return ActionSubmitForm }

func (a SubmitForm) String() string {
	s := fmt.Sprintf("submit %s %s", strings.ToUpper(a.Method), a.Action)
	if len(a.Fields) > 0 {
		s += " [" + a.Fields.Encode() + "]"
	}
	if a.AJAX {
		s += " (ajax)"
	}
	return s
}

// ClickSelector clicks the first element matching Selector. When Frame is
// set, the element is looked up inside the embedded frame whose URL
// contains Frame.
type ClickSelector struct {
	Selector string
	Frame    string
}

func (ClickSelector) Kind() ActionKind { return ActionClickSelector }

func (a ClickSelector) String() string {
	if a.Frame != "" {
		return fmt.Sprintf("click %s in %s", a.Selector, a.Frame)
	}
	return "click " + a.Selector
}

// WaitThenReevaluate waits out a countdown and reads the current page again.
type WaitThenReevaluate struct {
	Duration time.Duration
}

func (WaitThenReevaluate) Kind() ActionKind { return ActionWait }

func (a WaitThenReevaluate) String() string { return "wait " + a.Duration.String() }

// SolveChallenge works the checkbox affordance of an embedded bot check.
// FrameURL is the challenge frame source when the markup exposes one.
type SolveChallenge struct {
	FrameURL string
}

func (SolveChallenge) Kind() ActionKind { return ActionSolveChallenge }

func (a SolveChallenge) String() string {
	if a.FrameURL == "" {
		return "solve challenge"
	}
	return "solve challenge " + a.FrameURL
}
