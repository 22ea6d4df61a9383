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

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outcomeText(outcome string) string {
	switch outcome {
	case "resolved":
		return text.FgGreen.Sprint(outcome)
	case "timed_out":
		return text.FgYellow.Sprint(outcome)
	}
	return text.FgRed.Sprint(outcome)
}

// printRun prints a run header followed by its links grouped by quality
func printRun(detail *types.RunDetail) {
	info := detail.RunInfo
	fmt.Printf("%s %s [%s]\n", outcomeText(info.Outcome), info.EntryURL, info.Site)
	if info.Error != "" {
		fmt.Printf("  %s\n", info.Error)
	}
	if info.FinalURL != "" && info.FinalURL != info.EntryURL {
		fmt.Printf("  final page: %s\n", info.FinalURL)
	}
	fmt.Printf("  %d steps in %s", info.Steps, formatDuration(info.DurationMs))
	if info.ID != "" {
		fmt.Printf(", run %s", shortID(info.ID))
	}
	fmt.Println()
	if len(detail.Links) == 0 {
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"Quality", "Label", "URL"})
	for _, g := range app.GroupByQuality(detail.Links) {
		for _, l := range g.Links {
			t.AppendRow(table.Row{g.Quality, truncate(l.Label, 40), l.URL})
		}
		t.AppendSeparator()
	}
	t.Render()
}

// printTrail prints the pages a run went through
func printTrail(trail []types.StepInfo) {
	if len(trail) == 0 {
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"#", "Status", "Strategy", "Action", "URL"})
	for i, s := range trail {
		action := s.Action
		if s.Rendered {
			action += " (browser)"
		}
		t.AppendRow(table.Row{i, s.Status, s.Strategy, truncate(action, 50), s.URL})
	}
	t.Render()
}

// progressEmitter prints run events on stderr while runs are in flight
type progressEmitter struct {
	out io.Writer
	mu  sync.Mutex
}

func (p *progressEmitter) Emit(eventType app.EventType, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch eventType {
	case app.EventRunStarted:
		if r, ok := data.(types.ActiveRun); ok {
			fmt.Fprintf(p.out, "%s %s [%s]\n", text.FgCyan.Sprint("→"), r.EntryURL, r.Site)
		}
	case app.EventRunStep:
		if s, ok := data.(types.StepProgress); ok {
			label := s.Step.Strategy
			if label == "" {
				label = "entry"
			}
			fmt.Fprintf(p.out, "  %s %d %-15s %d %s\n", shortID(s.RunID), s.Index, label, s.Step.Status, s.Step.URL)
		}
	}
}

// truncate truncates a string to the specified length
func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration in milliseconds to a human-readable string
func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(10 * time.Millisecond).String()
}

func formatTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}
