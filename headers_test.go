// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
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
	"net/http"
	"net/url"
	"testing"
)

func TestUserAgent(t *testing.T) {
	const exampleUserAgent = "Example/1.0"

	for _, tc := range []struct {
		name string
		opts *Options
		want string
	}{
		{"default", nil, DefaultUserAgent},
		{"custom", &Options{UserAgent: exampleUserAgent}, exampleUserAgent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mock := NewMockTransport()
			mock.RegisterHTML("https://example.com/", "<html></html>")

			sess, err := NewSession(tc.opts, SessionConfig{Transport: mock, Logger: discardLogger})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := sess.Fetch(context.Background(), http.MethodGet, "https://example.com/", nil, nil); err != nil {
				t.Fatal(err)
			}
			if got := mock.Requests()[0].Header.Get("User-Agent"); got != tc.want {
				t.Errorf("Expected user agent %q, got %q", tc.want, got)
			}
		})
	}
}

func TestHeaderPrecedence(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterHTML("https://example.com/", "<html></html>")

	opts := &Options{Headers: http.Header{
		"X-Run":           []string{"run"},
		"Accept-Language": []string{"de-DE"},
	}}
	sess, err := NewSession(opts, SessionConfig{Transport: mock, Logger: discardLogger})
	if err != nil {
		t.Fatal(err)
	}
	extra := http.Header{"X-Run": []string{"action"}, "Referer": []string{"https://example.com/from"}}
	if _, err := sess.Fetch(context.Background(), http.MethodGet, "https://example.com/", nil, extra); err != nil {
		t.Fatal(err)
	}

	h := mock.Requests()[0].Header
	if got := h.Get("Accept-Language"); got != "de-DE" {
		t.Errorf("Expected option header to replace the default, got %q", got)
	}
	if got := h.Get("X-Run"); got != "action" {
		t.Errorf("Expected per-request header to win, got %q", got)
	}
	if got := h.Get("Referer"); got != "https://example.com/from" {
		t.Errorf("Expected Referer to be sent, got %q", got)
	}
}

func TestFetchEncodesFields(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterHTML("https://example.com/go?a=1&b=2", "<html></html>")
	mock.RegisterHTML("https://example.com/post", "<html></html>")

	sess, err := NewSession(nil, SessionConfig{Transport: mock, Logger: discardLogger})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := sess.Fetch(ctx, http.MethodGet, "https://example.com/go?a=1", url.Values{"b": {"2"}}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Fetch(ctx, http.MethodPost, "https://example.com/post", url.Values{"token": {"x y"}}, nil); err != nil {
		t.Fatal(err)
	}

	reqs := mock.Requests()
	if reqs[0].URL != "https://example.com/go?a=1&b=2" {
		t.Errorf("Expected GET fields in the query, got %q", reqs[0].URL)
	}
	if reqs[1].Body != "token=x+y" {
		t.Errorf("Expected form-encoded body, got %q", reqs[1].Body)
	}
	if got := reqs[1].Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Expected form content type, got %q", got)
	}
}
