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

// Package sites holds per-site knowledge: which entry URLs a site owns, how
// to rewrite them, what its destination pages look like and which links to
// keep. Sites with a public API bypass the chain engine entirely.
package sites

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentberlin/linkwalk"
	"github.com/go-resty/resty/v2"
)

// Generic is the name of the fallback site
const Generic = "generic"

// Site describes how to resolve the entry URLs of one site.
type Site struct {
	Name        string
	Description string
	// Match reports whether the site owns u
	Match func(u *url.URL) bool
	// Rewrite maps the entry URL before resolution. Nil keeps it.
	Rewrite func(u *url.URL) *url.URL
	// Terminal recognises the site's destination pages
	Terminal linkwalk.TerminalPredicate
	// Rule selects links on the destination page
	Rule *linkwalk.ExtractionRule
	// Options override the resolver defaults for this site
	Options *linkwalk.Options
	// Interactive sites need a renderer to get past their bot check
	Interactive bool
	// Prepare returns cookies the site expects for a page of its chain
	Prepare func(u *url.URL) []*http.Cookie
	// Resolve, when set, replaces the chain engine
	Resolve func(ctx context.Context, entry string) *linkwalk.Result
}

// Request returns the chain engine request for entry.
func (s *Site) Request(entry string) *linkwalk.Request {
	return &linkwalk.Request{
		EntryURL: entry,
		Terminal: s.Terminal,
		Rule:     s.Rule,
		Options:  s.Options,
		Prepare:  s.Prepare,
	}
}

// Config carries what the built-in sites need.
type Config struct {
	// Client is used by API-backed sites. Nil creates one.
	Client *resty.Client
	// UserAgent is sent by API-backed sites
	UserAgent string
	// TerminalHosts extend the default destination hosts
	TerminalHosts []string
	// Rule selects links for the generic and shortener sites. Nil uses the
	// default rule extended with TerminalHosts.
	Rule *linkwalk.ExtractionRule
}

// Registry finds the site owning an entry URL. Sites are tried in
// registration order and the generic site answers for everything else.
type Registry struct {
	sites   []*Site
	generic *Site
}

// NewRegistry returns a registry with the built-in sites.
func NewRegistry(cfg Config) (*Registry, error) {
	hosts := append(append([]string(nil), linkwalk.DefaultTerminalHosts...), cfg.TerminalHosts...)
	terminal, err := linkwalk.NewHostAllowList(hosts...)
	if err != nil {
		return nil, fmt.Errorf("terminal hosts: %w", err)
	}
	rule := cfg.Rule
	if rule == nil {
		rule = linkwalk.DefaultExtractionRule()
		rule.Hosts = hosts
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("extraction rule: %w", err)
	}

	client := cfg.Client
	if client == nil {
		client = newAPIClient(cfg.UserAgent)
	}

	r := &Registry{generic: genericSite(terminal, rule)}
	r.Register(extralinkSite(NewExtralinkClient(client)))
	r.Register(filepressSite())
	r.Register(mediafireSite())
	r.Register(gplinksSite(terminal, rule))
	r.Register(shortenerSite(terminal, rule))
	return r, nil
}

// Register adds s ahead of the generic fallback.
func (r *Registry) Register(s *Site) {
	r.sites = append(r.sites, s)
}

// Sites returns the registered sites followed by the generic one.
func (r *Registry) Sites() []*Site {
	return append(append([]*Site(nil), r.sites...), r.generic)
}

// Get returns the site called name.
func (r *Registry) Get(name string) (*Site, bool) {
	for _, s := range r.Sites() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Lookup returns the site owning rawURL and the entry URL to resolve,
// rewritten when the site asks for it.
func (r *Registry) Lookup(rawURL string) (*Site, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("invalid URL: unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, "", fmt.Errorf("invalid URL: no hostname in %q", rawURL)
	}
	site := r.generic
	for _, s := range r.sites {
		if s.Match(u) {
			site = s
			break
		}
	}
	if site.Rewrite != nil {
		u = site.Rewrite(u)
	}
	return site, u.String(), nil
}

func hostContains(keywords ...string) func(u *url.URL) bool {
	return func(u *url.URL) bool {
		host := strings.ToLower(u.Hostname())
		for _, k := range keywords {
			if strings.Contains(host, k) {
				return true
			}
		}
		return false
	}
}

func hostIs(domain string) func(u *url.URL) bool {
	return func(u *url.URL) bool {
		host := strings.ToLower(u.Hostname())
		return host == domain || strings.HasSuffix(host, "."+domain)
	}
}

// hasLinks matches pages where rule finds at least one link and no bot
// check is pending.
func hasLinks(rule *linkwalk.ExtractionRule) linkwalk.TerminalPredicate {
	return linkwalk.TerminalFunc(func(s *linkwalk.PageSnapshot) bool {
		if linkwalk.ChallengePresent(s.Title(), s.Body()) {
			return false
		}
		return len(linkwalk.Extract(s, rule)) > 0
	})
}

func genericSite(terminal linkwalk.TerminalPredicate, rule *linkwalk.ExtractionRule) *Site {
	return &Site{
		Name:        Generic,
		Description: "Any protector chain ending on a known file host",
		Match:       func(*url.URL) bool { return true },
		Terminal:    terminal,
		Rule:        rule,
	}
}

// shortenerSite covers vplink-style chains of interstitial pages.
func shortenerSite(terminal linkwalk.TerminalPredicate, rule *linkwalk.ExtractionRule) *Site {
	return &Site{
		Name:        "shortener",
		Description: "vplink style shortener chains",
		Match:       hostContains("vplink"),
		Terminal:    terminal,
		Rule:        rule,
	}
}

// filepressSite serves its links behind a bot check on every load.
func filepressSite() *Site {
	rule := &linkwalk.ExtractionRule{
		Selector: "a[href]",
		Keywords: []string{"download", "get link", "480p", "720p", "1080p", "2160p", "4k"},
		Hosts: []string{
			"drive.google.com", "mega.nz", "mediafire.com", "gofile.io",
			"pixeldrain.com", "1fichier.com",
		},
		Exclude: []string{"telegram"},
	}
	return &Site{
		Name:        "filepress",
		Description: "FilePress pages behind a bot check",
		Match:       hostContains("filepress."),
		Rewrite: func(u *url.URL) *url.URL {
			if !strings.Contains(strings.ToLower(u.Hostname()), "filepress.top") {
				return u
			}
			out := *u
			out.Host = strings.Replace(strings.ToLower(u.Host), "filepress.top", "filepress.cloud", 1)
			return &out
		},
		Terminal:    hasLinks(rule),
		Rule:        rule,
		Options:     &linkwalk.Options{RenderNavigation: true},
		Interactive: true,
	}
}

// mediafireSite keeps the download button of a file page.
func mediafireSite() *Site {
	return &Site{
		Name:        "mediafire",
		Description: "MediaFire file pages",
		Match:       hostIs("mediafire.com"),
		Terminal:    linkwalk.HasSelector("a#downloadButton"),
		Rule: &linkwalk.ExtractionRule{
			Selector:        "a#downloadButton",
			IncludeExternal: true,
			Keywords:        []string{"download"},
		},
	}
}
