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
	"testing"
)

func TestHostAllowList(t *testing.T) {
	h, err := NewHostAllowList("*.gofile.io", "Mega.nz", "hubcloud", ".pixeldrain.com")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		host string
		want bool
	}{
		{"store1.gofile.io", true},
		{"gofile.io", false},
		{"a.b.gofile.io", false},
		{"mega.nz", true},
		{"www.mega.nz", true},
		{"notmega.nz", false},
		{"hubcloud.lol", true},
		{"new3.HubCloud.foo", true},
		{"pixeldrain.com", true},
		{"cdn.pixeldrain.com", true},
		{"example.com", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := h.MatchHost(tc.host); got != tc.want {
			t.Errorf("MatchHost(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
	if h.Empty() {
		t.Error("Expected a populated list")
	}
}

func TestHostAllowListErrors(t *testing.T) {
	if _, err := NewHostAllowList("gofile.io", "  "); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("Expected ErrEmptyPattern, got %v", err)
	}
	if _, err := NewHostAllowList("[gofile.io"); err == nil {
		t.Error("Expected an error for an unterminated class")
	}
	defer func() {
		if recover() == nil {
			t.Error("Expected MustHostAllowList to panic")
		}
	}()
	MustHostAllowList("")
}

func TestIsTerminal(t *testing.T) {
	hub := mustSnapshot(t, "https://hubcloud.lol/drive/x", `<html><body><a id="download" href="/f">Download</a></body></html>`)
	short := mustSnapshot(t, "https://short.test/a", `<html><body><a href="/b">Continue</a></body></html>`)

	if !IsTerminal(hub, DefaultTerminal()) {
		t.Error("Expected hubcloud to be terminal by default")
	}
	if IsTerminal(short, DefaultTerminal()) {
		t.Error("Expected a shortener page not to be terminal")
	}
	if IsTerminal(hub, nil) {
		t.Error("Expected a nil predicate never to match")
	}
	if IsTerminal(nil, DefaultTerminal()) {
		t.Error("Expected a nil snapshot never to match")
	}

	hasButton := HasSelector("a#download")
	if !IsTerminal(hub, AllOf(DefaultTerminal(), hasButton)) {
		t.Error("Expected AllOf to match when every predicate does")
	}
	if IsTerminal(short, AllOf(DefaultTerminal(), hasButton)) {
		t.Error("Expected AllOf to fail when one predicate fails")
	}
	if IsTerminal(hub, AllOf()) {
		t.Error("Expected an empty AllOf never to match")
	}
	onShort := TerminalFunc(func(s *PageSnapshot) bool { return s.Host() == "short.test" })
	if !IsTerminal(short, AnyOf(hasButton, onShort)) {
		t.Error("Expected AnyOf to match when one predicate does")
	}
	if IsTerminal(short, AnyOf()) {
		t.Error("Expected an empty AnyOf never to match")
	}
}
