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
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/config"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestApp creates an app backed by a temporary database and a mock
// transport
func setupTestApp(t *testing.T) (*app.App, *linkwalk.MockTransport) {
	t.Helper()
	st, err := store.NewStoreForTesting(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Engine.StepDelayMin = time.Millisecond
	cfg.Engine.StepDelayMax = time.Millisecond

	mock := linkwalk.NewMockTransport()
	testApp, err := app.NewApp(cfg, st, &app.NoOpEmitter{}, app.WithTransport(mock))
	require.NoError(t, err)
	return testApp, mock
}

// connect serves testApp in memory and returns a connected client session
func connect(t *testing.T, testApp *app.App) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	s := NewMCPServer(testApp, nil)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.GetServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func text(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func registerChain(mock *linkwalk.MockTransport) {
	mock.RegisterHTML("https://vplink.in/abc", `<html><head>
		<meta http-equiv="refresh" content="0;url=https://hubcloud.one/drive/xyz"></head><body>Redirecting</body></html>`)
	mock.RegisterHTML("https://hubcloud.one/drive/xyz", `<html><body><main>
		<a href="https://gofile.io/d/abc">Download 1080p</a>
	</main></body></html>`)
}

func TestListTools(t *testing.T) {
	testApp, _ := setupTestApp(t)
	session := connect(t, testApp)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{"resolve_link", "resolve_links", "stop_run", "get_active_runs", "list_runs", "get_run", "delete_run", "list_sites"} {
		assert.Contains(t, names, want)
	}
}

func TestResolveLinkTool(t *testing.T) {
	testApp, mock := setupTestApp(t)
	registerChain(mock)
	session := connect(t, testApp)

	t.Run("ChainResolves", func(t *testing.T) {
		res := callTool(t, session, "resolve_link", map[string]any{"url": "https://vplink.in/abc"})
		require.False(t, res.IsError, text(res))
		out := text(res)
		assert.Contains(t, out, "resolved")
		assert.Contains(t, out, "[1080p] Download 1080p https://gofile.io/d/abc")
	})

	t.Run("InvalidURL_ReturnsError", func(t *testing.T) {
		res := callTool(t, session, "resolve_link", map[string]any{"url": "   "})
		assert.True(t, res.IsError)
	})

	t.Run("RenderWithoutBrowser_ReturnsError", func(t *testing.T) {
		res := callTool(t, session, "resolve_link", map[string]any{"url": "https://vplink.in/abc", "render": true})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "renderer")
	})
}

func TestResolveLinksTool(t *testing.T) {
	testApp, mock := setupTestApp(t)
	registerChain(mock)
	mock.RegisterHTML("https://dead.example/x", `<html><body>Nothing</body></html>`)
	session := connect(t, testApp)

	res := callTool(t, session, "resolve_links", map[string]any{
		"urls": []string{"https://vplink.in/abc", "https://dead.example/x"},
	})
	require.False(t, res.IsError, text(res))
	out := text(res)
	assert.Contains(t, out, "Resolved 1 of 2")
	assert.Less(t, strings.Index(out, "vplink.in"), strings.Index(out, "dead.example"))
}

func TestRunHistoryTools(t *testing.T) {
	testApp, mock := setupTestApp(t)
	registerChain(mock)
	session := connect(t, testApp)

	detail, err := testApp.Resolve(context.Background(), "https://vplink.in/abc", nil)
	require.NoError(t, err)
	id := detail.RunInfo.ID

	t.Run("ListRuns", func(t *testing.T) {
		res := callTool(t, session, "list_runs", map[string]any{"limit": 5})
		require.False(t, res.IsError)
		assert.Contains(t, text(res), "Found 1 runs")
		assert.Contains(t, text(res), id)
	})

	t.Run("GetRunByPrefix", func(t *testing.T) {
		res := callTool(t, session, "get_run", map[string]any{"runId": id[:6]})
		require.False(t, res.IsError, text(res))
		assert.Contains(t, text(res), "https://gofile.io/d/abc")
	})

	t.Run("GetUnknownRun", func(t *testing.T) {
		res := callTool(t, session, "get_run", map[string]any{"runId": "ffffffff"})
		assert.True(t, res.IsError)
	})

	t.Run("DeleteRun", func(t *testing.T) {
		res := callTool(t, session, "delete_run", map[string]any{"runId": id})
		require.False(t, res.IsError)
		assert.Contains(t, text(res), "deleted successfully")

		runs, err := testApp.ListRuns(store.RunFilter{})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestStopRunTool(t *testing.T) {
	testApp, _ := setupTestApp(t)
	session := connect(t, testApp)

	res := callTool(t, session, "stop_run", map[string]any{"runId": "missing"})
	assert.Contains(t, text(res), "Failed to stop run")

	res = callTool(t, session, "get_active_runs", map[string]any{})
	assert.Contains(t, text(res), "0 active runs")
}

func TestListSitesTool(t *testing.T) {
	testApp, _ := setupTestApp(t)
	session := connect(t, testApp)

	res := callTool(t, session, "list_sites", map[string]any{})
	out := text(res)
	assert.Contains(t, out, "- extralink:")
	assert.Contains(t, out, "filepress")
	assert.Contains(t, out, "(needs a browser)")
}
