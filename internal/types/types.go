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

package types

// RunInfo summarises a stored or just finished run
type RunInfo struct {
	ID         string `json:"id"`
	EntryURL   string `json:"entryUrl"`
	FinalURL   string `json:"finalUrl,omitempty"`
	Site       string `json:"site"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Steps      int    `json:"steps"`
	DurationMs int64  `json:"durationMs"`
	LinkCount  int    `json:"linkCount"`
	CreatedAt  int64  `json:"createdAt"`
}

// LinkInfo is one extracted link
type LinkInfo struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Context  string `json:"context,omitempty"`
	Position string `json:"position,omitempty"` // layout region: "content", "navigation", "header", ...
	Quality  string `json:"quality"`            // 480p, 720p, 1080p, 2160p or Other
}

// StepInfo is one page of a run's trail
type StepInfo struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	Strategy    string `json:"strategy,omitempty"`
	Action      string `json:"action,omitempty"`
	Rendered    bool   `json:"rendered,omitempty"`
	AtMs        int64  `json:"atMs"`
	FirstByteMs int64  `json:"firstByteMs,omitempty"`
}

// RunDetail is a run with its links and trail
type RunDetail struct {
	RunInfo RunInfo    `json:"run"`
	Links   []LinkInfo `json:"links"`
	Trail   []StepInfo `json:"trail"`
}

// QualityGroup collects links of one quality label
type QualityGroup struct {
	Quality string     `json:"quality"`
	Links   []LinkInfo `json:"links"`
}

// StepProgress is emitted for every page a running resolution reaches
type StepProgress struct {
	RunID    string   `json:"runId"`
	EntryURL string   `json:"entryUrl"`
	Attempt  int      `json:"attempt"`
	Index    int      `json:"index"`
	Step     StepInfo `json:"step"`
}

// SiteInfo describes a registered site handler
type SiteInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Interactive bool   `json:"interactive"`
}

// ActiveRun is the progress of a run still in flight
type ActiveRun struct {
	RunID      string `json:"runId"`
	EntryURL   string `json:"entryUrl"`
	Site       string `json:"site"`
	StartedAt  int64  `json:"startedAt"`
	Steps      int    `json:"steps"`
	CurrentURL string `json:"currentUrl,omitempty"`
}

// RunStats counts stored runs by outcome
type RunStats struct {
	Total    int64 `json:"total"`
	Resolved int64 `json:"resolved"`
	Failed   int64 `json:"failed"`
	TimedOut int64 `json:"timedOut"`
}

// SystemHealthCheck reports whether the configured renderer can start
type SystemHealthCheck struct {
	IsHealthy  bool   `json:"isHealthy"`
	ErrorTitle string `json:"errorTitle,omitempty"`
	ErrorMsg   string `json:"errorMsg,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
