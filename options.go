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
	"net/http"
	"time"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Options tunes one resolution run. Zero fields take the default value.
type Options struct {
	// MaxSteps bounds the number of actions per run. Default: 15
	MaxSteps int
	// WallClockBudget bounds the whole run, pacing delays included. Default: 90s
	WallClockBudget time.Duration
	// InterStepDelayMin and InterStepDelayMax bound the pacing delay after
	// each action. Default: 2s to 5s
	InterStepDelayMin time.Duration
	InterStepDelayMax time.Duration
	// ChallengeBudget bounds one attempt at solving a bot check. Default: 40s
	ChallengeBudget time.Duration
	// ChallengeRetries is how many times the entry URL is re-fetched after a
	// failed bot check before the run fails. Default: 3. Zero keeps the
	// default; NoChallengeRetries fails on the first unsolved check.
	ChallengeRetries int
	// ChallengePollInterval is how often a pending check is re-read. Default: 2s
	ChallengePollInterval time.Duration
	// NavigationTimeout bounds the wait for a click to navigate. Default: 60s
	NavigationTimeout time.Duration
	// RetryBackoff is the wait before retrying a failed action. Default: 1s
	RetryBackoff time.Duration
	// CountdownFloor is the wait used when a countdown is unreadable. Default: 5s
	CountdownFloor time.Duration
	// CountdownCap bounds any single countdown wait. Default: 60s
	CountdownCap time.Duration
	// RequestTimeout bounds one HTTP exchange. Default: 20s
	RequestTimeout time.Duration
	// MaxBodySize limits the bytes read per response. Default: 10MB
	MaxBodySize int
	// UserAgent is sent with every request
	UserAgent string
	// Headers are added to every request
	Headers http.Header
	// StepCookie, when set, names a cookie holding the number of steps taken,
	// rewritten for each page the run reaches
	StepCookie string
	// RenderNavigation sends navigations through the interactive session
	// instead of plain fetches. Needed for sites that challenge every load.
	RenderNavigation bool
	// DisableCharsetDetection turns off sniffing the encoding of bodies that
	// declare no charset
	DisableCharsetDetection bool
}

// NoChallengeRetries disables re-entry after an unsolved bot check.
const NoChallengeRetries = -1

// DefaultOptions returns the engine defaults.
func DefaultOptions() *Options {
	return &Options{
		MaxSteps:              15,
		WallClockBudget:       90 * time.Second,
		InterStepDelayMin:     2 * time.Second,
		InterStepDelayMax:     5 * time.Second,
		ChallengeBudget:       40 * time.Second,
		ChallengeRetries:      3,
		ChallengePollInterval: 2 * time.Second,
		NavigationTimeout:     60 * time.Second,
		RetryBackoff:          time.Second,
		CountdownFloor:        5 * time.Second,
		CountdownCap:          60 * time.Second,
		RequestTimeout:        20 * time.Second,
		MaxBodySize:           10 * 1024 * 1024,
		UserAgent:             DefaultUserAgent,
	}
}

// Merge returns a copy of o with every non-zero field of over applied. A
// nil o merges over the zero Options, leaving unset fields to the resolver.
func (o *Options) Merge(over *Options) *Options {
	if o == nil {
		o = &Options{}
	}
	return mergeOptions(o, over)
}

// mergeOptions returns a copy of base with every non-zero field of o
// applied on top.
func mergeOptions(base, o *Options) *Options {
	out := *base
	if base.Headers != nil {
		out.Headers = base.Headers.Clone()
	}
	if o == nil {
		return &out
	}
	if o.MaxSteps > 0 {
		out.MaxSteps = o.MaxSteps
	}
	if o.WallClockBudget > 0 {
		out.WallClockBudget = o.WallClockBudget
	}
	if o.InterStepDelayMin > 0 {
		out.InterStepDelayMin = o.InterStepDelayMin
	}
	if o.InterStepDelayMax > 0 {
		out.InterStepDelayMax = o.InterStepDelayMax
	}
	if out.InterStepDelayMax < out.InterStepDelayMin {
		out.InterStepDelayMax = out.InterStepDelayMin
	}
	if o.ChallengeBudget > 0 {
		out.ChallengeBudget = o.ChallengeBudget
	}
	if o.ChallengeRetries > 0 {
		out.ChallengeRetries = o.ChallengeRetries
	} else if o.ChallengeRetries < 0 {
		out.ChallengeRetries = NoChallengeRetries
	}
	if o.ChallengePollInterval > 0 {
		out.ChallengePollInterval = o.ChallengePollInterval
	}
	if o.NavigationTimeout > 0 {
		out.NavigationTimeout = o.NavigationTimeout
	}
	if o.RetryBackoff > 0 {
		out.RetryBackoff = o.RetryBackoff
	}
	if o.CountdownFloor > 0 {
		out.CountdownFloor = o.CountdownFloor
	}
	if o.CountdownCap > 0 {
		out.CountdownCap = o.CountdownCap
	}
	if o.RequestTimeout > 0 {
		out.RequestTimeout = o.RequestTimeout
	}
	if o.MaxBodySize > 0 {
		out.MaxBodySize = o.MaxBodySize
	}
	if o.UserAgent != "" {
		out.UserAgent = o.UserAgent
	}
	if o.StepCookie != "" {
		out.StepCookie = o.StepCookie
	}
	for k, vs := range o.Headers {
		if out.Headers == nil {
			out.Headers = http.Header{}
		}
		out.Headers[k] = append([]string(nil), vs...)
	}
	out.RenderNavigation = out.RenderNavigation || o.RenderNavigation
	out.DisableCharsetDetection = out.DisableCharsetDetection || o.DisableCharsetDetection
	return &out
}
