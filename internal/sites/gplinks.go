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

package sites

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentberlin/linkwalk"
)

// gplinksDefaultPages is assumed when the pages parameter is unreadable.
const gplinksDefaultPages = 3

// gplinksSite walks gplinks chains. Their landing page carries base64 lid,
// pid and pages parameters that every later step expects back as cookies,
// along with a step_count cookie bumped on each page.
func gplinksSite(terminal linkwalk.TerminalPredicate, rule *linkwalk.ExtractionRule) *Site {
	return &Site{
		Name:        "gplinks",
		Description: "GPLinks chains that track progress in cookies",
		Match:       hostContains("gplink"),
		Terminal:    terminal,
		Rule:        rule,
		Options: &linkwalk.Options{
			StepCookie: "step_count",
			Headers:    http.Header{"Referer": {"https://gplinks.co/"}},
		},
		Prepare: GPLinksCookies,
	}
}

// GPLinksCookies decodes the lid, pid and pages parameters of u into the
// lid, pid, vid and pages cookies gplinks checks on every step. It returns
// nil when u does not carry lid, pid and vid.
func GPLinksCookies(u *url.URL) []*http.Cookie {
	q := u.Query()
	lid := decodeParam(q.Get("lid"))
	pid := decodeParam(q.Get("pid"))
	vid := q.Get("vid")
	if lid == "" || pid == "" || vid == "" {
		return nil
	}
	pages := gplinksDefaultPages
	if n, err := strconv.Atoi(strings.TrimSpace(decodeParam(q.Get("pages")))); err == nil && n > 0 {
		pages = n
	}
	return []*http.Cookie{
		{Name: "lid", Value: lid, Path: "/"},
		{Name: "pid", Value: pid, Path: "/"},
		{Name: "vid", Value: vid, Path: "/"},
		{Name: "pages", Value: strconv.Itoa(pages), Path: "/"},
	}
}

// decodeParam reads a base64 query value with or without padding. Query
// parsing turns '+' into a space, so spaces are read back as '+'.
func decodeParam(s string) string {
	s = strings.TrimRight(strings.ReplaceAll(s, " ", "+"), "=")
	if s == "" {
		return ""
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		if b, err = base64.RawURLEncoding.DecodeString(s); err != nil {
			return ""
		}
	}
	return string(b)
}
