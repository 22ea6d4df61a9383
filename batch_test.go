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
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingTransport records the highest number of concurrent requests.
type countingTransport struct {
	next     http.RoundTripper
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return c.next.RoundTrip(req)
}

func TestResolveAllKeepsInputOrder(t *testing.T) {
	mock := NewMockTransport()
	var reqs []*Request
	for i := 0; i < 5; i++ {
		entry := fmt.Sprintf("https://short.example/%d", i)
		mock.RegisterResponse(entry, &MockResponse{
			Body:    metaRefresh(fmt.Sprintf("https://hubcloud.example/file/%d", i)),
			Headers: http.Header{"Content-Type": []string{"text/html"}},
			Delay:   time.Duration(5-i) * 10 * time.Millisecond,
		})
		mock.RegisterHTML(fmt.Sprintf("https://hubcloud.example/file/%d", i),
			fmt.Sprintf(`<html><body><a href="https://gofile.io/d/%d">Download</a></body></html>`, i))
		reqs = append(reqs, &Request{ID: fmt.Sprint(i), EntryURL: entry})
	}
	counting := &countingTransport{next: mock}
	r := newTestResolver(mock, newFakeClock(), nil)
	r.WithTransport(counting)

	var mu sync.Mutex
	seen := map[string]int{}
	r.SetOnStep(func(e StepEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.RunID]++
	})

	results := r.ResolveAll(context.Background(), reqs, 2)

	if len(results) != len(reqs) {
		t.Fatalf("Expected %d results, got %d", len(reqs), len(results))
	}
	for i, res := range results {
		if res.Outcome != Resolved {
			t.Errorf("Request %d: expected Resolved, got %v (%s)", i, res.Outcome, res.Error())
			continue
		}
		want := fmt.Sprintf("https://gofile.io/d/%d", i)
		if len(res.Links) != 1 || res.Links[0].URL != want {
			t.Errorf("Request %d: expected link %s, got %+v", i, want, res.Links)
		}
	}
	if p := counting.peak.Load(); p > 2 {
		t.Errorf("Expected at most 2 concurrent requests, saw %d", p)
	}
	for i := range reqs {
		if seen[fmt.Sprint(i)] != 2 {
			t.Errorf("Expected 2 step events for run %d, got %d", i, seen[fmt.Sprint(i)])
		}
	}
}

func TestResolveAllCancelled(t *testing.T) {
	mock := NewMockTransport()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []*Request{{EntryURL: "https://short.example/a"}, {EntryURL: "https://short.example/b"}, {EntryURL: "https://short.example/c"}}
	results := newTestResolver(mock, newFakeClock(), nil).ResolveAll(ctx, reqs, 1)

	for i, res := range results {
		if res == nil {
			t.Fatalf("Result %d is nil", i)
		}
		if res.Outcome != Failed || res.Reason != FailureCancelled {
			t.Errorf("Result %d: expected cancelled, got %v %v", i, res.Outcome, res.Reason)
		}
	}
}

func TestResolveAllEmpty(t *testing.T) {
	results := NewResolver(nil).ResolveAll(context.Background(), nil, 0)
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
