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
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is one extracted destination.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	// Context is the surrounding text (heading, list item) of the anchor.
	Context string `json:"context,omitempty"`
	// Position is the layout region of the anchor: content, navigation,
	// header, footer, sidebar, breadcrumbs, pagination or unknown.
	Position string `json:"position,omitempty"`
}

// ExtractionRule selects the links of interest on a terminal page.
type ExtractionRule struct {
	// Selector picks candidate elements. Default: "a[href]"
	Selector string
	// Keywords match the anchor label, case-insensitively
	Keywords []string
	// Hosts match the target host, using HostAllowList semantics. Links
	// back to the page's own host need a keyword match.
	Hosts []string
	// Exclude drops targets on a listed domain, or whose URL contains a
	// listed keyword or path. Exclusions win over every inclusion.
	Exclude []string
	// IncludeExternal also keeps links to any host other than the page's own
	IncludeExternal bool
	// SkipBoilerplate drops anchors in navigation, header, footer and
	// sidebar regions
	SkipBoilerplate bool
}

// DefaultExtractionRule returns the rule used when a request carries none.
func DefaultExtractionRule() *ExtractionRule {
	return &ExtractionRule{
		Selector: "a[href]",
		Keywords: []string{
			"download", "get link", "direct link", "g-direct", "v-cloud",
			"480p", "720p", "1080p", "2160p", "4k",
		},
		Hosts:           append([]string(nil), DefaultTerminalHosts...),
		Exclude:         append([]string(nil), socialHosts...),
		SkipBoilerplate: true,
	}
}

// Validate reports the first host entry of r that does not compile. Extract
// skips such entries instead of failing.
func (r *ExtractionRule) Validate() error {
	if _, errs := lenientHostAllowList(r.Hosts); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Extract returns the links on s selected by rule, deduplicated by
// normalised URL in first-seen order. A nil rule uses
// DefaultExtractionRule. No match yields an empty list.
func Extract(s *PageSnapshot, rule *ExtractionRule) []Link {
	if rule == nil {
		rule = DefaultExtractionRule()
	}
	selector := rule.Selector
	if selector == "" {
		selector = "a[href]"
	}
	hosts, _ := lenientHostAllowList(rule.Hosts)

	links := make([]Link, 0)
	seen := make(map[string]bool)
	s.Document().Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !navigable(href) {
			return
		}
		target, err := s.ResolveReference(href)
		if err != nil {
			return
		}
		if excludedHref(target) || rule.excludes(target) {
			return
		}
		label := controlLabel(sel)
		if !rule.includes(s, label, target, hosts) {
			return
		}
		position := linkPosition(sel)
		if rule.SkipBoilerplate && isBoilerplate(position) {
			return
		}
		key := normalizeURL(target)
		if seen[key] {
			return
		}
		seen[key] = true
		if label == "" {
			label = "Link"
		}
		links = append(links, Link{Label: label, URL: target, Context: linkContext(sel), Position: position})
	})
	return links
}

func (r *ExtractionRule) excludes(target string) bool {
	t := strings.ToLower(target)
	host := hostOf(t)
	for _, e := range r.Exclude {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if strings.Contains(e, ".") && !strings.Contains(e, "/") {
			if host == e || strings.HasSuffix(host, "."+e) {
				return true
			}
			continue
		}
		if strings.Contains(t, e) {
			return true
		}
	}
	return false
}

func (r *ExtractionRule) includes(s *PageSnapshot, label, target string, hosts *HostAllowList) bool {
	l := strings.ToLower(label)
	for _, k := range r.Keywords {
		if k != "" && strings.Contains(l, strings.ToLower(k)) {
			return true
		}
	}
	host := hostOf(target)
	if host == "" || host == s.Host() {
		return false
	}
	return r.IncludeExternal || hosts.MatchHost(host)
}
