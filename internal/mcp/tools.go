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

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools registers every tool with the MCP server
func (s *MCPServer) registerTools() {
	// Resolution
	s.registerResolveLinkTool()
	s.registerResolveLinksTool()
	s.registerStopRunTool()
	s.registerGetActiveRunsTool()

	// History
	s.registerListRunsTool()
	s.registerGetRunTool()
	s.registerDeleteRunTool()

	s.registerListSitesTool()
}

// ResolveLinkArgs defines the input schema for resolve_link tool
type ResolveLinkArgs struct {
	URL      string `json:"url" jsonschema:"entry URL of the protector chain"`
	MaxSteps int    `json:"maxSteps,omitempty" jsonschema:"action budget for this run, 0 keeps the default of 15"`
	Render   bool   `json:"render,omitempty" jsonschema:"load every page in the browser session"`
}

func (a ResolveLinkArgs) options() *linkwalk.Options {
	if a.MaxSteps <= 0 && !a.Render {
		return nil
	}
	return &linkwalk.Options{MaxSteps: a.MaxSteps, RenderNavigation: a.Render}
}

// registerResolveLinkTool registers the resolve_link tool
func (s *MCPServer) registerResolveLinkTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_link",
		Description: "Follows a link-protector chain from its entry URL to the destination page and returns the download links found there",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ResolveLinkArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info("tool called", "tool", "resolve_link", "url", args.URL)

		detail, err := s.app.Resolve(ctx, args.URL, args.options())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summarizeRun(detail)},
			},
		}, detail, nil
	})
}

// ResolveLinksArgs defines the input schema for resolve_links tool
type ResolveLinksArgs struct {
	URLs        []string `json:"urls" jsonschema:"entry URLs to resolve"`
	Parallelism int      `json:"parallelism,omitempty" jsonschema:"concurrent runs, 0 keeps the configured value"`
	MaxSteps    int      `json:"maxSteps,omitempty" jsonschema:"action budget per run"`
}

// registerResolveLinksTool registers the resolve_links tool
func (s *MCPServer) registerResolveLinksTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_links",
		Description: "Resolves several entry URLs concurrently; results keep the input order",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ResolveLinksArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info("tool called", "tool", "resolve_links", "count", len(args.URLs))
		if len(args.URLs) == 0 {
			return nil, nil, fmt.Errorf("no urls given")
		}

		var over *linkwalk.Options
		if args.MaxSteps > 0 {
			over = &linkwalk.Options{MaxSteps: args.MaxSteps}
		}
		details := s.app.ResolveAll(ctx, args.URLs, args.Parallelism, over)

		var b strings.Builder
		resolved := 0
		for _, d := range details {
			if d.RunInfo.Outcome == "resolved" {
				resolved++
			}
			b.WriteString(summarizeRun(d))
			b.WriteString("\n")
		}
		result := map[string]interface{}{
			"resolved": resolved,
			"total":    len(details),
			"runs":     details,
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Resolved %d of %d:\n%s", resolved, len(details), b.String())},
			},
		}, result, nil
	})
}

// RunIDArgs identifies a run by id or unique id prefix
type RunIDArgs struct {
	RunID string `json:"runId" jsonschema:"run id, or a unique prefix of at least 4 characters"`
}

// registerStopRunTool registers the stop_run tool
func (s *MCPServer) registerStopRunTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stop_run",
		Description: "Cancels a run that is still in progress",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RunIDArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info("tool called", "tool", "stop_run", "run", args.RunID)

		if err := s.app.StopRun(args.RunID); err != nil {
			return nil, map[string]interface{}{
				"success": false,
				"message": fmt.Sprintf("Failed to stop run: %v", err),
			}, nil
		}
		result := map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Run %s stopped", args.RunID),
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: result["message"].(string)},
			},
		}, result, nil
	})
}

// EmptyArgs is the input of tools without parameters
type EmptyArgs struct{}

// registerGetActiveRunsTool registers the get_active_runs tool
func (s *MCPServer) registerGetActiveRunsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_active_runs",
		Description: "Lists runs still in progress with the page each one has reached",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, any, error) {
		active := s.app.GetActiveRuns()
		result := map[string]interface{}{"runs": active}
		activeJSON, _ := json.MarshalIndent(active, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%d active runs:\n%s", len(active), activeJSON)},
			},
		}, result, nil
	})
}

// ListRunsArgs defines the input schema for list_runs tool
type ListRunsArgs struct {
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of runs, newest first (default 20)"`
	Site    string `json:"site,omitempty" jsonschema:"only runs handled by this site"`
	Outcome string `json:"outcome,omitempty" jsonschema:"resolved, failed, timed_out or all"`
	Query   string `json:"query,omitempty" jsonschema:"substring of the entry or final URL"`
}

// registerListRunsTool registers the list_runs tool
func (s *MCPServer) registerListRunsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "Lists stored runs, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info("tool called", "tool", "list_runs", "limit", args.Limit)

		limit := args.Limit
		if limit <= 0 {
			limit = 20
		}
		runs, err := s.app.ListRuns(store.RunFilter{Limit: limit, Site: args.Site, Outcome: args.Outcome, Query: args.Query})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list runs: %w", err)
		}

		result := map[string]interface{}{"runs": runs}
		runsJSON, _ := json.MarshalIndent(runs, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d runs:\n%s", len(runs), runsJSON)},
			},
		}, result, nil
	})
}

// registerGetRunTool registers the get_run tool
func (s *MCPServer) registerGetRunTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_run",
		Description: "Returns a stored run with its links and the trail of pages it went through",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RunIDArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info("tool called", "tool", "get_run", "run", args.RunID)

		detail, err := s.app.GetRun(args.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get run: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summarizeRun(detail)},
			},
		}, detail, nil
	})
}

// registerDeleteRunTool registers the delete_run tool
func (s *MCPServer) registerDeleteRunTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_run",
		Description: "Deletes a stored run with its links and trail",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RunIDArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info("tool called", "tool", "delete_run", "run", args.RunID)

		if err := s.app.DeleteRun(args.RunID); err != nil {
			return nil, map[string]interface{}{
				"success": false,
				"message": fmt.Sprintf("Failed to delete run: %v", err),
			}, nil
		}
		result := map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Run %s deleted successfully", args.RunID),
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: result["message"].(string)},
			},
		}, result, nil
	})
}

// registerListSitesTool registers the list_sites tool
func (s *MCPServer) registerListSitesTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sites",
		Description: "Lists the site handlers that entry URLs are dispatched to",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, any, error) {
		infos := s.app.Sites()
		var b strings.Builder
		for _, si := range infos {
			fmt.Fprintf(&b, "- %s: %s", si.Name, si.Description)
			if si.Interactive {
				b.WriteString(" (needs a browser)")
			}
			b.WriteString("\n")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: b.String()},
			},
		}, map[string]interface{}{"sites": infos}, nil
	})
}

// summarizeRun renders a run as plain text for the model
func summarizeRun(d *types.RunDetail) string {
	var b strings.Builder
	info := d.RunInfo
	fmt.Fprintf(&b, "%s [%s] %s", info.EntryURL, info.Site, info.Outcome)
	if info.Error != "" {
		fmt.Fprintf(&b, " (%s)", info.Error)
	}
	if info.ID != "" {
		fmt.Fprintf(&b, " run %s", info.ID)
	}
	fmt.Fprintf(&b, ", %d steps\n", info.Steps)
	if info.FinalURL != "" {
		fmt.Fprintf(&b, "final page: %s\n", info.FinalURL)
	}
	for _, l := range d.Links {
		fmt.Fprintf(&b, "  [%s] %s %s\n", l.Quality, l.Label, l.URL)
	}
	return b.String()
}
