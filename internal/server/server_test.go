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

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/config"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.NewStoreForTesting(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Engine.StepDelayMin = time.Millisecond
	cfg.Engine.StepDelayMax = time.Millisecond

	mock := linkwalk.NewMockTransport()
	mock.RegisterHTML("https://vplink.in/abc", `<html><head>
		<meta http-equiv="refresh" content="0;url=https://hubcloud.one/drive/xyz"></head><body>Please wait</body></html>`)
	mock.RegisterHTML("https://hubcloud.one/drive/xyz", `<html><body><main>
		<h2>Movie.2025.1080p.mkv</h2>
		<a href="https://gofile.io/d/abc">Download 1080p</a>
	</main></body></html>`)
	mock.RegisterHTML("https://vplink.in/dead", `<html><body>Link expired</body></html>`)

	testApp, err := app.NewApp(cfg, st, &app.NoOpEmitter{}, app.WithTransport(mock))
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(testApp, nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode(t *testing.T, res *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestResolveAndFetchRun(t *testing.T) {
	srv := setupTestServer(t)

	res := postJSON(t, srv.URL+"/api/v1/resolve", map[string]interface{}{"url": "vplink.in/abc"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var detail types.RunDetail
	decode(t, res, &detail)
	assert.Equal(t, "resolved", detail.RunInfo.Outcome)
	require.Len(t, detail.Links, 1)
	assert.Equal(t, "https://gofile.io/d/abc", detail.Links[0].URL)

	getRes, err := http.Get(srv.URL + "/api/v1/runs/" + detail.RunInfo.ID[:8])
	require.NoError(t, err)
	defer getRes.Body.Close()
	require.Equal(t, http.StatusOK, getRes.StatusCode)
	var stored types.RunDetail
	decode(t, getRes, &stored)
	assert.Equal(t, detail.RunInfo.ID, stored.RunInfo.ID)
	assert.Len(t, stored.Trail, 2)

	groupsRes, err := http.Get(srv.URL + "/api/v1/runs/" + detail.RunInfo.ID + "/groups")
	require.NoError(t, err)
	defer groupsRes.Body.Close()
	var groups []types.QualityGroup
	decode(t, groupsRes, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "1080p", groups[0].Quality)

	filteredRes, err := http.Get(srv.URL + "/api/v1/runs/" + detail.RunInfo.ID + "/groups?quality=720p")
	require.NoError(t, err)
	defer filteredRes.Body.Close()
	var filtered []types.QualityGroup
	decode(t, filteredRes, &filtered)
	assert.Empty(t, filtered)

	badRes, err := http.Get(srv.URL + "/api/v1/runs/" + detail.RunInfo.ID + "/groups?quality=360p")
	require.NoError(t, err)
	badRes.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badRes.StatusCode)

	listRes, err := http.Get(srv.URL + "/api/v1/runs?outcome=resolved")
	require.NoError(t, err)
	defer listRes.Body.Close()
	var runs []types.RunInfo
	decode(t, listRes, &runs)
	assert.Len(t, runs, 1)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/runs/"+detail.RunInfo.ID, nil)
	require.NoError(t, err)
	delRes, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delRes.Body.Close()
	assert.Equal(t, http.StatusNoContent, delRes.StatusCode)

	missing, err := http.Get(srv.URL + "/api/v1/runs/" + detail.RunInfo.ID)
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestResolveRejectsBadInput(t *testing.T) {
	srv := setupTestServer(t)

	res := postJSON(t, srv.URL+"/api/v1/resolve", map[string]interface{}{"url": "ftp://example.com/file"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = postJSON(t, srv.URL+"/api/v1/resolve", map[string]interface{}{"url": "vplink.in/abc", "render": true})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	getRes, err := http.Get(srv.URL + "/api/v1/resolve")
	require.NoError(t, err)
	getRes.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getRes.StatusCode)
}

func TestBatch(t *testing.T) {
	srv := setupTestServer(t)

	res := postJSON(t, srv.URL+"/api/v1/batch", map[string]interface{}{
		"urls":        []string{"vplink.in/abc", "vplink.in/dead", "not a url://"},
		"parallelism": 2,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var details []types.RunDetail
	decode(t, res, &details)
	require.Len(t, details, 3)
	assert.Equal(t, "resolved", details[0].RunInfo.Outcome)
	assert.Equal(t, "failed", details[1].RunInfo.Outcome)
	assert.Equal(t, "failed", details[2].RunInfo.Outcome)

	statsRes, err := http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer statsRes.Body.Close()
	var stats types.RunStats
	decode(t, statsRes, &stats)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Resolved)

	empty := postJSON(t, srv.URL+"/api/v1/batch", map[string]interface{}{"urls": []string{}})
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)
}

func TestMetaEndpoints(t *testing.T) {
	srv := setupTestServer(t)

	health, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
	var check types.SystemHealthCheck
	decode(t, health, &check)
	assert.True(t, check.IsHealthy)

	sitesRes, err := http.Get(srv.URL + "/api/v1/sites")
	require.NoError(t, err)
	defer sitesRes.Body.Close()
	var sites []types.SiteInfo
	decode(t, sitesRes, &sites)
	assert.NotEmpty(t, sites)

	active, err := http.Get(srv.URL + "/api/v1/active-runs")
	require.NoError(t, err)
	defer active.Body.Close()
	var runs []types.ActiveRun
	decode(t, active, &runs)
	assert.Empty(t, runs)

	stop := postJSON(t, srv.URL+"/api/v1/stop-run/nope", nil)
	assert.Equal(t, http.StatusNotFound, stop.StatusCode)

	preflight, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/resolve", nil)
	require.NoError(t, err)
	pre, err := http.DefaultClient.Do(preflight)
	require.NoError(t, err)
	pre.Body.Close()
	assert.Equal(t, "*", pre.Header.Get("Access-Control-Allow-Origin"))
}
